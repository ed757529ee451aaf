package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
)

// RecordAppender is the ingestion entry point the feed writes through.
type RecordAppender interface {
	AppendRecord(ctx context.Context, missionID int64, payload domain.Payload) (int64, error)
}

// LiveMissionFinder locates the mission a live feed should attach to.
type LiveMissionFinder interface {
	CurrentLiveMission(ctx context.Context) (domain.Mission, bool, error)
}

// ResolveFeedMission returns configured when it is set, otherwise the newest unstarted
// realtime mission.
func ResolveFeedMission(ctx context.Context, finder LiveMissionFinder, configured int64) (int64, error) {
	if configured > 0 {
		return configured, nil
	}
	mission, ok, err := finder.CurrentLiveMission(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("no unstarted realtime mission: %w", domain.ErrNotFound)
	}
	return mission.ID, nil
}

// WorkerPool drains generated payloads into one mission. It stops on its own once the mission
// is closed or disappears.
type WorkerPool struct {
	appender    RecordAppender
	missionID   int64
	workerCount int
	logger      Logger
}

func NewWorkerPool(workerCount int, missionID int64, appender RecordAppender, logger Logger) *WorkerPool {
	if workerCount < 0 {
		workerCount = 0
	}
	return &WorkerPool{appender: appender, missionID: missionID, workerCount: workerCount, logger: logger}
}

// Run blocks until payloads is closed, ctx ends, or the mission stops accepting events.
// The terminal domain error, if any, is returned.
func (p *WorkerPool) Run(ctx context.Context, payloads <-chan domain.Payload) error {
	if p.workerCount == 0 {
		p.drainUntilClosed(ctx, payloads)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		stopOnce sync.Once
		stopErr  error
	)
	stop := func(err error) {
		stopOnce.Do(func() {
			stopErr = err
			cancel()
		})
	}

	wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go func() {
			infra.FeedWorkerStarted()
			defer wg.Done()
			defer infra.FeedWorkerFinished()
			if err := p.workerLoop(ctx, payloads); err != nil {
				stop(err)
			}
		}()
	}
	wg.Wait()

	return stopErr
}

func (p *WorkerPool) workerLoop(ctx context.Context, payloads <-chan domain.Payload) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-payloads:
			if !ok {
				return nil
			}
			if err := p.process(ctx, payload); err != nil {
				return err
			}
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, payload domain.Payload) error {
	id, err := p.appender.AppendRecord(ctx, p.missionID, payload)
	switch {
	case err == nil:
		p.log(ctx, "worker: stored record=%d mission=%d", id, p.missionID)
		return nil
	case errors.Is(err, domain.ErrMissionClosed), errors.Is(err, domain.ErrNotFound):
		p.log(ctx, "worker: mission %d no longer accepts events: %v", p.missionID, err)
		return err
	case ctx.Err() != nil:
		return nil
	default:
		if p.logger != nil {
			p.logger.Errorf(ctx, "worker: failed to store payload for mission %d: %v", p.missionID, err)
		}
		return nil
	}
}

func (p *WorkerPool) drainUntilClosed(ctx context.Context, payloads <-chan domain.Payload) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-payloads:
			if !ok {
				return
			}
		}
	}
}

func (p *WorkerPool) log(ctx context.Context, format string, v ...any) {
	if p.logger != nil {
		p.logger.Printf(ctx, format, v...)
	}
}
