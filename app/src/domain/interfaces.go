package domain

import (
	"context"
	"time"
)

// MissionReader exposes mission lookups.
type MissionReader interface {
	GetMission(ctx context.Context, id int64) (Mission, error)
	ListMissions(ctx context.Context) ([]Mission, error)
	// LatestUnstartedRealtime returns the most recently created realtime mission without a
	// start instant, or ErrNotFound.
	LatestUnstartedRealtime(ctx context.Context) (Mission, error)
}

// MissionWriter persists mission rows. SaveLifecycle and SetStartDate are plain writes with no
// precondition; callers that read first are exposed to concurrent writers.
type MissionWriter interface {
	CreateMission(ctx context.Context, mission NewMission) (Mission, error)
	SaveLifecycle(ctx context.Context, id int64, lifecycle Lifecycle) error
	SetStartDate(ctx context.Context, id int64, at time.Time) error
}

// MissionAtomicWriter applies aggregate changes as a single compare-and-swap on the mission row.
type MissionAtomicWriter interface {
	ApplyImportWindowAtomic(ctx context.Context, id int64, window ImportWindow) (Mission, error)
	// MarkStartedAtomic sets the start instant only if it is unset and the mission is realtime.
	// It reports whether the row changed.
	MarkStartedAtomic(ctx context.Context, id int64, at time.Time) (bool, error)
}

// MissionRepository aggregates the mission persistence capabilities.
type MissionRepository interface {
	MissionReader
	MissionWriter
	MissionAtomicWriter
}

// TelemetryLog is the append-only record store. It never reorders or deduplicates.
type TelemetryLog interface {
	AppendMany(ctx context.Context, missionID int64, payloads []Payload) (int, error)
	AppendOne(ctx context.Context, missionID int64, payload Payload) (int64, error)
	ListByMission(ctx context.Context, missionID int64) ([]TelemetryRecord, error)
}

// Repository is the full persistence contract implemented by the storage drivers.
type Repository interface {
	MissionRepository
	TelemetryLog
	Close() error
}

// TimestampFailure describes a payload whose embedded timestamp could not be used.
type TimestampFailure struct {
	Index  int
	Raw    string
	Reason string
}

// ImportResult is the outcome of a batch import.
type ImportResult struct {
	MissionID int64
	Count     int
	Parsed    int
	Failures  []TimestampFailure
}

// MissionUpdate carries the administrative overrides accepted by the update operation.
type MissionUpdate struct {
	EndDate  *string
	Duration *string
}

// MissionService describes the behaviour exposed to transport layers.
type MissionService interface {
	CreateMission(ctx context.Context, mission NewMission) (Mission, error)
	GetMission(ctx context.Context, id int64) (Mission, error)
	ListMissions(ctx context.Context) ([]Mission, error)
	ImportRecords(ctx context.Context, missionID int64, payloads []Payload) (ImportResult, error)
	AppendRecord(ctx context.Context, missionID int64, payload Payload) (int64, error)
	ListRecords(ctx context.Context, missionID int64) ([]TelemetryRecord, error)
	UpdateMission(ctx context.Context, missionID int64, update MissionUpdate) (Mission, error)
	CurrentLiveMission(ctx context.Context) (Mission, bool, error)
}
