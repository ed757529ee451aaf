package domain

import "time"

// Mode distinguishes historical imports from live feeds.
type Mode string

const (
	ModeBatch    Mode = "batch"
	ModeRealtime Mode = "realtime"
)

// ModeFromRealtime maps the persisted is_realtime flag onto a Mode.
func ModeFromRealtime(realtime bool) Mode {
	if realtime {
		return ModeRealtime
	}
	return ModeBatch
}

// Mission is the aggregate root for telemetry. Values are snapshots; mutate through the
// aggregate store only.
type Mission struct {
	ID        int64
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
	Duration  *time.Duration
	Mode      Mode
	CreatedAt time.Time
}

// IsRealtime reports whether the mission receives live events.
func (m Mission) IsRealtime() bool {
	return m.Mode == ModeRealtime
}

// Closed reports whether the mission has an end instant. Closed missions reject single events.
func (m Mission) Closed() bool {
	return m.EndDate != nil
}

// Lifecycle holds the mutable aggregate fields of a mission.
type Lifecycle struct {
	StartDate *time.Time
	EndDate   *time.Time
	Duration  *time.Duration
}

// Lifecycle returns the aggregate fields of the mission.
func (m Mission) Lifecycle() Lifecycle {
	return Lifecycle{StartDate: m.StartDate, EndDate: m.EndDate, Duration: m.Duration}
}

// WithLifecycle returns a copy of the mission carrying the provided aggregate fields.
func (m Mission) WithLifecycle(l Lifecycle) Mission {
	m.StartDate = l.StartDate
	m.EndDate = l.EndDate
	m.Duration = l.Duration
	return m
}

// ImportWindow is the span of event time observed in one batch import.
// Nil bounds mean no timestamp in the batch could be parsed.
type ImportWindow struct {
	Min *time.Time
	Max *time.Time
}

// Apply folds the window into the lifecycle. The start is only assigned when unset, the end is
// overwritten whenever the window has a max (even when it moves backwards), and the duration is
// recomputed when both instants exist. Otherwise the stored duration is kept.
func (w ImportWindow) Apply(l Lifecycle) Lifecycle {
	if l.StartDate == nil && w.Min != nil {
		start := w.Min.UTC()
		l.StartDate = &start
	}
	if w.Max != nil {
		end := w.Max.UTC()
		l.EndDate = &end
	}
	if l.StartDate != nil && l.EndDate != nil {
		d := l.EndDate.Sub(*l.StartDate)
		l.Duration = &d
	}
	return l
}

// NewMission describes a mission to be created.
type NewMission struct {
	Name string
	Mode Mode
}
