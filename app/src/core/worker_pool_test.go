package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mission-telemetry/app/src/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAppender struct {
	mu       sync.Mutex
	payloads []domain.Payload
	err      error
	failAt   int
}

func (r *recordingAppender) AppendRecord(_ context.Context, _ int64, payload domain.Payload) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil && len(r.payloads) >= r.failAt {
		return 0, r.err
	}
	r.payloads = append(r.payloads, payload)
	return int64(len(r.payloads)), nil
}

func (r *recordingAppender) calls() []domain.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Payload(nil), r.payloads...)
}

type staticFinder struct {
	mission domain.Mission
	ok      bool
	err     error
}

func (f staticFinder) CurrentLiveMission(context.Context) (domain.Mission, bool, error) {
	return f.mission, f.ok, f.err
}

// ------------------
// Тесты
// ------------------

func TestNewWorkerPoolNormalizesWorkerCount(t *testing.T) {
	pool := NewWorkerPool(-1, 1, &recordingAppender{}, &stubLogger{})
	assert.Equal(t, 0, pool.workerCount)
}

func TestWorkerPoolRunWithZeroWorkersDrainsChannel(t *testing.T) {
	appender := &recordingAppender{}
	pool := NewWorkerPool(0, 1, appender, &stubLogger{})

	payloads := make(chan domain.Payload, 2)
	payloads <- domain.Payload{"n": 1}
	payloads <- domain.Payload{"n": 2}
	close(payloads)

	assert.NoError(t, pool.Run(context.Background(), payloads))
	assert.Empty(t, appender.calls())
}

func TestWorkerPoolRunStoresPayloads(t *testing.T) {
	appender := &recordingAppender{}
	pool := NewWorkerPool(2, 1, appender, &stubLogger{})

	payloads := make(chan domain.Payload, 3)
	for i := 0; i < 3; i++ {
		payloads <- domain.Payload{"n": i}
	}
	close(payloads)

	require.NoError(t, pool.Run(context.Background(), payloads))
	assert.Len(t, appender.calls(), 3)
}

func TestWorkerPoolStopsWhenMissionCloses(t *testing.T) {
	t.Log("Шаг 1: третья запись отклоняется закрытой миссией")
	appender := &recordingAppender{err: fmt.Errorf("mission 1: %w", domain.ErrMissionClosed), failAt: 2}
	pool := NewWorkerPool(1, 1, appender, &stubLogger{})

	payloads := make(chan domain.Payload)
	go func() {
		for i := 0; ; i++ {
			select {
			case payloads <- domain.Payload{"n": i}:
			case <-time.After(200 * time.Millisecond):
				return
			}
		}
	}()

	t.Log("Шаг 2: пул завершает работу и возвращает доменную ошибку")
	err := pool.Run(context.Background(), payloads)
	assert.ErrorIs(t, err, domain.ErrMissionClosed)
	assert.Len(t, appender.calls(), 2)
}

func TestWorkerPoolKeepsGoingOnTransientErrors(t *testing.T) {
	appender := &recordingAppender{err: errors.New("connection reset"), failAt: 0}
	logger := &stubLogger{}
	pool := NewWorkerPool(1, 1, appender, logger)

	payloads := make(chan domain.Payload, 2)
	payloads <- domain.Payload{}
	payloads <- domain.Payload{}
	close(payloads)

	assert.NoError(t, pool.Run(context.Background(), payloads))
	assert.Len(t, logger.messages(), 2)
}

func TestWorkerPoolHonoursContext(t *testing.T) {
	pool := NewWorkerPool(2, 1, &recordingAppender{}, &stubLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error)
	go func() { done <- pool.Run(ctx, make(chan domain.Payload)) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker pool did not stop")
	}
}

func TestResolveFeedMission(t *testing.T) {
	ctx := context.Background()

	id, err := ResolveFeedMission(ctx, staticFinder{}, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	id, err = ResolveFeedMission(ctx, staticFinder{mission: domain.Mission{ID: 4}, ok: true}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	_, err = ResolveFeedMission(ctx, staticFinder{}, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ResolveFeedMission(ctx, staticFinder{err: assert.AnError}, 0)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFeedEndToEndAgainstService(t *testing.T) {
	t.Log("генератор и пул пишут в живую миссию через сервис")
	svc, repo := newTestService(t, false)
	live := seedMission(t, repo, domain.ModeRealtime)
	ctx := context.Background()

	id, err := ResolveFeedMission(ctx, svc, 0)
	require.NoError(t, err)
	require.Equal(t, live.ID, id)

	gen := NewGenerator(GeneratorConfig{}, nil)
	payloads := make(chan domain.Payload, 5)
	for i := 0; i < 5; i++ {
		payloads <- gen.Next()
	}
	close(payloads)

	require.NoError(t, NewWorkerPool(1, id, svc, nil).Run(ctx, payloads))

	records, err := svc.ListRecords(ctx, id)
	require.NoError(t, err)
	assert.Len(t, records, 5)

	got, _ := svc.GetMission(ctx, id)
	assert.NotNil(t, got.StartDate)
	_, ok, _ := svc.CurrentLiveMission(ctx)
	assert.False(t, ok)
}
