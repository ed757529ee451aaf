package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mission-telemetry/app/src/database/memory"
	"mission-telemetry/app/src/domain"
)

type stubLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *stubLogger) Printf(_ context.Context, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, v...))
}

func (l *stubLogger) Println(_ context.Context, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintln(v...))
}

func (l *stubLogger) Errorf(_ context.Context, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, "ERROR "+fmt.Sprintf(format, v...))
}

func (l *stubLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

var baseTime = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return baseTime.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// steppingClock returns base+1s, base+2s, ... on successive calls.
func steppingClock(base time.Time) func() time.Time {
	var n int64
	return func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&n, 1)) * time.Second)
	}
}

func newTestService(t *testing.T, strict bool) (*Service, *memory.Repository) {
	t.Helper()
	repo := memory.New(memory.WithClock(steppingClock(baseTime)))
	svc := NewService(repo, NewTimestampNormalizer(time.UTC), StoreConfig{Strict: strict, Now: steppingClock(at(12, 0))}, &stubLogger{})
	return svc, repo
}

func seedMission(t *testing.T, repo *memory.Repository, mode domain.Mode) domain.Mission {
	t.Helper()
	m, err := repo.CreateMission(context.Background(), domain.NewMission{Name: "test", Mode: mode})
	if err != nil {
		t.Fatalf("seed mission: %v", err)
	}
	return m
}

// gatedRepo holds the first `readers` GetMission calls until all of them have read, so every
// racing caller observes the same snapshot before anyone writes.
type gatedRepo struct {
	*memory.Repository

	readers int32
	seen    int32
	reads   sync.WaitGroup

	mu          sync.Mutex
	startWrites []time.Time
	saves       []domain.Lifecycle
}

func newGatedRepo(inner *memory.Repository, readers int) *gatedRepo {
	g := &gatedRepo{Repository: inner, readers: int32(readers)}
	g.reads.Add(readers)
	return g
}

func (g *gatedRepo) GetMission(ctx context.Context, id int64) (domain.Mission, error) {
	m, err := g.Repository.GetMission(ctx, id)
	if atomic.AddInt32(&g.seen, 1) <= g.readers {
		g.reads.Done()
		g.reads.Wait()
	}
	return m, err
}

func (g *gatedRepo) SetStartDate(ctx context.Context, id int64, when time.Time) error {
	g.mu.Lock()
	g.startWrites = append(g.startWrites, when)
	g.mu.Unlock()
	return g.Repository.SetStartDate(ctx, id, when)
}

func (g *gatedRepo) SaveLifecycle(ctx context.Context, id int64, l domain.Lifecycle) error {
	g.mu.Lock()
	g.saves = append(g.saves, l)
	g.mu.Unlock()
	return g.Repository.SaveLifecycle(ctx, id, l)
}
