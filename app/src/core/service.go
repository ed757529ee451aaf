package core

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"mission-telemetry/app/src/domain"
)

const maxMissionNameLength = 255

// Service is the transport-facing facade over the mission components.
type Service struct {
	store    *MissionAggregateStore
	importer *BatchImportPipeline
	ingester *StreamIngester
	query    *MissionQueryService
	repo     domain.MissionWriter
}

func NewService(repo domain.Repository, normalizer *TimestampNormalizer, cfg StoreConfig, logger Logger) *Service {
	if normalizer == nil {
		normalizer = NewTimestampNormalizer(nil)
	}
	store := NewMissionAggregateStore(repo, normalizer, cfg, logger)
	return &Service{
		store:    store,
		importer: NewBatchImportPipeline(store, repo, normalizer, logger),
		ingester: NewStreamIngester(store, repo, logger),
		query:    NewMissionQueryService(repo, repo),
		repo:     repo,
	}
}

func (s *Service) CreateMission(ctx context.Context, mission domain.NewMission) (domain.Mission, error) {
	mission.Name = strings.TrimSpace(mission.Name)
	if mission.Name == "" {
		return domain.Mission{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(mission.Name) > maxMissionNameLength {
		return domain.Mission{}, fmt.Errorf("%w: name exceeds %d characters", domain.ErrValidation, maxMissionNameLength)
	}
	switch mission.Mode {
	case domain.ModeBatch, domain.ModeRealtime:
	case "":
		mission.Mode = domain.ModeBatch
	default:
		return domain.Mission{}, fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, mission.Mode)
	}
	return s.repo.CreateMission(ctx, mission)
}

func (s *Service) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	return s.query.GetMission(ctx, id)
}

func (s *Service) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	return s.query.ListMissions(ctx)
}

func (s *Service) ImportRecords(ctx context.Context, missionID int64, payloads []domain.Payload) (domain.ImportResult, error) {
	return s.importer.Import(ctx, missionID, payloads)
}

func (s *Service) AppendRecord(ctx context.Context, missionID int64, payload domain.Payload) (int64, error) {
	return s.ingester.Append(ctx, missionID, payload)
}

func (s *Service) ListRecords(ctx context.Context, missionID int64) ([]domain.TelemetryRecord, error) {
	return s.query.ListRecords(ctx, missionID)
}

func (s *Service) UpdateMission(ctx context.Context, missionID int64, update domain.MissionUpdate) (domain.Mission, error) {
	return s.store.UpdateFields(ctx, missionID, update)
}

func (s *Service) CurrentLiveMission(ctx context.Context) (domain.Mission, bool, error) {
	return s.query.FindCurrentUnstartedRealtimeMission(ctx)
}

var _ domain.MissionService = (*Service)(nil)
