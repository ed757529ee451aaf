// Package memory keeps missions and telemetry records in process memory. It backs local runs
// with STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mission-telemetry/app/src/domain"
)

// Repository stores missions and their records in memory and satisfies domain.Repository.
type Repository struct {
	mu       sync.RWMutex
	missions map[int64]domain.Mission
	records  []domain.TelemetryRecord

	nextMissionID int64
	nextRecordID  int64

	now func() time.Time
}

// Option customises a Repository.
type Option func(*Repository)

// WithClock replaces the wall clock used for created_at values.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates an empty in-memory repository instance.
func New(opts ...Option) *Repository {
	r := &Repository{
		missions: make(map[int64]domain.Mission),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Seed stores missions as given, keeping their ids. Later creates continue after the highest id.
func (r *Repository) Seed(missions ...domain.Mission) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range missions {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = r.now().UTC()
		}
		r.missions[m.ID] = m
		if m.ID > r.nextMissionID {
			r.nextMissionID = m.ID
		}
	}
}

// Close is a no-op; it exists to satisfy domain.Repository.
func (r *Repository) Close() error { return nil }

func (r *Repository) GetMission(_ context.Context, id int64) (domain.Mission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.missions[id]
	if !ok {
		return domain.Mission{}, domain.ErrNotFound
	}
	return m, nil
}

// ListMissions returns all missions, newest first.
func (r *Repository) ListMissions(_ context.Context) ([]domain.Mission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Mission, 0, len(r.missions))
	for _, m := range r.missions {
		out = append(out, m)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *Repository) LatestUnstartedRealtime(ctx context.Context) (domain.Mission, error) {
	missions, _ := r.ListMissions(ctx)
	for _, m := range missions {
		if m.IsRealtime() && m.StartDate == nil {
			return m, nil
		}
	}
	return domain.Mission{}, domain.ErrNotFound
}

func (r *Repository) CreateMission(_ context.Context, mission domain.NewMission) (domain.Mission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextMissionID++
	m := domain.Mission{
		ID:        r.nextMissionID,
		Name:      mission.Name,
		Mode:      domain.ModeFromRealtime(mission.Mode == domain.ModeRealtime),
		CreatedAt: r.now().UTC(),
	}
	r.missions[m.ID] = m
	return m, nil
}

func (r *Repository) SaveLifecycle(_ context.Context, id int64, lifecycle domain.Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.missions[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.missions[id] = m.WithLifecycle(lifecycle)
	return nil
}

func (r *Repository) SetStartDate(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.missions[id]
	if !ok {
		return domain.ErrNotFound
	}
	start := at.UTC()
	m.StartDate = &start
	r.missions[id] = m
	return nil
}

// ApplyImportWindowAtomic folds the window into the mission while holding the write lock.
func (r *Repository) ApplyImportWindowAtomic(_ context.Context, id int64, window domain.ImportWindow) (domain.Mission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.missions[id]
	if !ok {
		return domain.Mission{}, domain.ErrNotFound
	}
	m = m.WithLifecycle(window.Apply(m.Lifecycle()))
	r.missions[id] = m
	return m, nil
}

// MarkStartedAtomic sets the start only if it is unset on a realtime mission.
func (r *Repository) MarkStartedAtomic(_ context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.missions[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !m.IsRealtime() || m.StartDate != nil {
		return false, nil
	}
	start := at.UTC()
	m.StartDate = &start
	r.missions[id] = m
	return true, nil
}

func (r *Repository) AppendMany(_ context.Context, missionID int64, payloads []domain.Payload) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.missions[missionID]; !ok {
		return 0, domain.ErrNotFound
	}
	for _, payload := range payloads {
		r.appendLocked(missionID, payload)
	}
	return len(payloads), nil
}

func (r *Repository) AppendOne(_ context.Context, missionID int64, payload domain.Payload) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.missions[missionID]; !ok {
		return 0, domain.ErrNotFound
	}
	return r.appendLocked(missionID, payload), nil
}

// ListByMission returns the records of a mission in insertion order.
func (r *Repository) ListByMission(_ context.Context, missionID int64) ([]domain.TelemetryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.TelemetryRecord{}
	for _, rec := range r.records {
		if rec.MissionID == missionID {
			rec.Data = clonePayload(rec.Data)
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *Repository) appendLocked(missionID int64, payload domain.Payload) int64 {
	r.nextRecordID++
	data := clonePayload(payload)
	if data == nil {
		data = domain.Payload{}
	}
	r.records = append(r.records, domain.TelemetryRecord{
		ID:        r.nextRecordID,
		MissionID: missionID,
		Data:      data,
		CreatedAt: r.now().UTC(),
	})
	return r.nextRecordID
}

// clonePayload copies nested objects and arrays too, so stored records never share state with
// callers.
func clonePayload(p domain.Payload) domain.Payload {
	if p == nil {
		return nil
	}
	out := make(domain.Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case domain.Payload:
		return clonePayload(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func sortNewestFirst(missions []domain.Mission) {
	sort.Slice(missions, func(i, j int) bool {
		if !missions[i].CreatedAt.Equal(missions[j].CreatedAt) {
			return missions[i].CreatedAt.After(missions[j].CreatedAt)
		}
		return missions[i].ID > missions[j].ID
	})
}

var _ domain.Repository = (*Repository)(nil)
