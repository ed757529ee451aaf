package core

import (
	"context"
	"fmt"
	"time"

	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
)

// BatchImportPipeline stores a historical batch and folds its time span into the mission.
type BatchImportPipeline struct {
	store      *MissionAggregateStore
	records    domain.TelemetryLog
	normalizer *TimestampNormalizer
	logger     Logger
}

func NewBatchImportPipeline(store *MissionAggregateStore, records domain.TelemetryLog, normalizer *TimestampNormalizer, logger Logger) *BatchImportPipeline {
	if normalizer == nil {
		normalizer = NewTimestampNormalizer(nil)
	}
	return &BatchImportPipeline{store: store, records: records, normalizer: normalizer, logger: logger}
}

// Import applies the window before appending. The window write is not rolled back if the
// append fails, so a retried import may apply it twice.
func (p *BatchImportPipeline) Import(ctx context.Context, missionID int64, payloads []domain.Payload) (domain.ImportResult, error) {
	if len(payloads) == 0 {
		infra.RecordIngestRejected("empty_batch")
		return domain.ImportResult{}, fmt.Errorf("%w: records must not be empty", domain.ErrValidation)
	}

	mission, err := p.store.Get(ctx, missionID)
	if err != nil {
		return domain.ImportResult{}, err
	}

	window, parsed, failures := p.scan(payloads)
	if len(failures) > 0 {
		infra.RecordUnparseableTimestamps(len(failures))
		first := failures[0]
		p.log(ctx, "import mission=%d: %d of %d timestamps unusable (first index=%d reason=%s raw=%q)",
			missionID, len(failures), len(payloads), first.Index, first.Reason, first.Raw)
	}

	if _, err := p.store.ApplyImportWindow(ctx, missionID, window); err != nil {
		return domain.ImportResult{}, err
	}

	stored, err := p.records.AppendMany(ctx, missionID, payloads)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("append records: %w", err)
	}

	infra.RecordImportBatch()
	infra.RecordIngested(string(mission.Mode), stored)

	return domain.ImportResult{
		MissionID: missionID,
		Count:     stored,
		Parsed:    parsed,
		Failures:  failures,
	}, nil
}

func (p *BatchImportPipeline) scan(payloads []domain.Payload) (domain.ImportWindow, int, []domain.TimestampFailure) {
	var (
		earliest, latest time.Time
		parsed   int
		failures []domain.TimestampFailure
	)
	for i, payload := range payloads {
		result := p.normalizer.FromPayload(payload)
		if !result.OK {
			failures = append(failures, domain.TimestampFailure{Index: i, Raw: result.Raw, Reason: result.Reason})
			continue
		}
		if parsed == 0 || result.Instant.Before(earliest) {
			earliest = result.Instant
		}
		if parsed == 0 || result.Instant.After(latest) {
			latest = result.Instant
		}
		parsed++
	}

	if parsed == 0 {
		return domain.ImportWindow{}, 0, failures
	}
	return domain.ImportWindow{Min: &earliest, Max: &latest}, parsed, failures
}

func (p *BatchImportPipeline) log(ctx context.Context, format string, v ...any) {
	if p.logger != nil {
		p.logger.Printf(ctx, format, v...)
	}
}
