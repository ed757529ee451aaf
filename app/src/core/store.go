package core

import (
	"context"
	"fmt"
	"time"

	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	"mission-telemetry/app/src/infra/utils"
)

// StoreConfig tunes a MissionAggregateStore.
type StoreConfig struct {
	// Strict makes lifecycle changes single compare-and-swap writes. When false the store reads
	// the mission and writes it back, and concurrent callers race (last write wins).
	Strict bool
	Now    func() time.Time
}

// MissionAggregateStore owns every mutation of the mission aggregate fields.
type MissionAggregateStore struct {
	repo       domain.MissionRepository
	normalizer *TimestampNormalizer
	strict     bool
	now        func() time.Time
	logger     Logger
}

func NewMissionAggregateStore(repo domain.MissionRepository, normalizer *TimestampNormalizer, cfg StoreConfig, logger Logger) *MissionAggregateStore {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if normalizer == nil {
		normalizer = NewTimestampNormalizer(nil)
	}
	return &MissionAggregateStore{
		repo:       repo,
		normalizer: normalizer,
		strict:     cfg.Strict,
		now:        now,
		logger:     logger,
	}
}

func (s *MissionAggregateStore) Get(ctx context.Context, id int64) (domain.Mission, error) {
	return s.repo.GetMission(ctx, id)
}

// ApplyImportWindow folds the instants observed by one import into the mission.
func (s *MissionAggregateStore) ApplyImportWindow(ctx context.Context, id int64, window domain.ImportWindow) (domain.Mission, error) {
	if s.strict {
		return s.repo.ApplyImportWindowAtomic(ctx, id, window)
	}

	mission, err := s.repo.GetMission(ctx, id)
	if err != nil {
		return domain.Mission{}, err
	}
	lifecycle := window.Apply(mission.Lifecycle())
	if err := s.repo.SaveLifecycle(ctx, id, lifecycle); err != nil {
		return domain.Mission{}, err
	}
	return mission.WithLifecycle(lifecycle), nil
}

// MarkStartedNow stamps the start of a realtime mission that has not started yet.
// It reports whether this call wrote the start.
func (s *MissionAggregateStore) MarkStartedNow(ctx context.Context, id int64) (bool, error) {
	now := s.now().UTC()

	var started bool
	if s.strict {
		changed, err := s.repo.MarkStartedAtomic(ctx, id, now)
		if err != nil {
			return false, err
		}
		started = changed
	} else {
		mission, err := s.repo.GetMission(ctx, id)
		if err != nil {
			return false, err
		}
		if !mission.IsRealtime() || mission.StartDate != nil {
			return false, nil
		}
		if err := s.repo.SetStartDate(ctx, id, now); err != nil {
			return false, err
		}
		started = true
	}

	if started {
		infra.RecordMissionStarted()
		s.log(ctx, "mission %d started at %s", id, now.Format(time.RFC3339Nano))
	}
	return started, nil
}

// UpdateFields applies an administrative close. All input is validated before the mission is
// touched, so a rejected update leaves it unchanged.
func (s *MissionAggregateStore) UpdateFields(ctx context.Context, id int64, update domain.MissionUpdate) (domain.Mission, error) {
	var (
		end      *time.Time
		duration *time.Duration
	)

	if update.Duration != nil {
		d, err := ParseDurationText(*update.Duration)
		if err != nil {
			return domain.Mission{}, err
		}
		duration = &d
	}

	if update.EndDate != nil {
		result := s.normalizer.Normalize(*update.EndDate)
		if !result.OK {
			return domain.Mission{}, fmt.Errorf("%w: end_date %q: %s", domain.ErrValidation, *update.EndDate, result.Reason)
		}
		end = &result.Instant
	}

	mission, err := s.repo.GetMission(ctx, id)
	if err != nil {
		return domain.Mission{}, err
	}
	if end == nil && duration == nil {
		return mission, nil
	}

	lifecycle := mission.Lifecycle()
	if end != nil {
		if lifecycle.StartDate != nil && end.Before(*lifecycle.StartDate) {
			return domain.Mission{}, fmt.Errorf("%w: end_date precedes start_date", domain.ErrValidation)
		}
		lifecycle.EndDate = end
		if duration == nil && lifecycle.StartDate != nil {
			d := end.Sub(*lifecycle.StartDate)
			duration = &d
		}
	}
	if duration != nil {
		lifecycle.Duration = duration
	}

	if err := s.repo.SaveLifecycle(ctx, id, lifecycle); err != nil {
		return domain.Mission{}, err
	}
	s.log(ctx, "mission %d updated: end_date=%q duration=%q", id, utils.Deref(update.EndDate), utils.Deref(update.Duration))
	return mission.WithLifecycle(lifecycle), nil
}

func (s *MissionAggregateStore) log(ctx context.Context, format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(ctx, format, v...)
	}
}
