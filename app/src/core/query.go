package core

import (
	"context"
	"errors"

	"mission-telemetry/app/src/domain"
)

// MissionQueryService answers read-only questions about missions and their records.
type MissionQueryService struct {
	missions domain.MissionReader
	records  domain.TelemetryLog
}

func NewMissionQueryService(missions domain.MissionReader, records domain.TelemetryLog) *MissionQueryService {
	return &MissionQueryService{missions: missions, records: records}
}

func (q *MissionQueryService) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	return q.missions.GetMission(ctx, id)
}

func (q *MissionQueryService) ListMissions(ctx context.Context) ([]domain.Mission, error) {
	return q.missions.ListMissions(ctx)
}

// ListRecords returns the records of an existing mission; none is an empty slice, not an error.
func (q *MissionQueryService) ListRecords(ctx context.Context, missionID int64) ([]domain.TelemetryRecord, error) {
	if _, err := q.missions.GetMission(ctx, missionID); err != nil {
		return nil, err
	}
	records, err := q.records.ListByMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.TelemetryRecord{}
	}
	return records, nil
}

// FindCurrentUnstartedRealtimeMission returns the newest realtime mission with no start.
func (q *MissionQueryService) FindCurrentUnstartedRealtimeMission(ctx context.Context) (domain.Mission, bool, error) {
	mission, err := q.missions.LatestUnstartedRealtime(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Mission{}, false, nil
	}
	if err != nil {
		return domain.Mission{}, false, err
	}
	return mission, true, nil
}
