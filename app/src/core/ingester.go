package core

import (
	"context"
	"errors"
	"fmt"

	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
)

// StreamIngester appends live events one at a time.
type StreamIngester struct {
	store   *MissionAggregateStore
	records domain.TelemetryLog
	logger  Logger
}

func NewStreamIngester(store *MissionAggregateStore, records domain.TelemetryLog, logger Logger) *StreamIngester {
	return &StreamIngester{store: store, records: records, logger: logger}
}

// Append stores payload and, for a realtime mission that has not started, stamps its start.
func (i *StreamIngester) Append(ctx context.Context, missionID int64, payload domain.Payload) (int64, error) {
	mission, err := i.store.Get(ctx, missionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			infra.RecordIngestRejected("not_found")
		}
		return 0, err
	}
	if mission.Closed() {
		infra.RecordIngestRejected("closed")
		return 0, fmt.Errorf("mission %d: %w", missionID, domain.ErrMissionClosed)
	}

	id, err := i.records.AppendOne(ctx, missionID, payload)
	if err != nil {
		return 0, fmt.Errorf("append record: %w", err)
	}
	infra.RecordIngested(string(mission.Mode), 1)

	if mission.IsRealtime() && mission.StartDate == nil {
		if _, err := i.store.MarkStartedNow(ctx, missionID); err != nil {
			if i.logger != nil {
				i.logger.Errorf(ctx, "record %d stored but mission %d start not set: %v", id, missionID, err)
			}
			return id, fmt.Errorf("mark started: %w", err)
		}
	}

	return id, nil
}
