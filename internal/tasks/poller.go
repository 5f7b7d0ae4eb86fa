package tasks

import (
	"context"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// TaskFetcher fetches the current snapshot of a backend task.
type TaskFetcher interface {
	Task(ctx context.Context, sessionID, taskID string) (*domain.GenerationTask, error)
}

// Poller drives periodic snapshot fetches for tracked tasks. Each Start call
// owns one polling goroutine with an explicit stop handle; the loop also
// stops itself once a terminal snapshot has been observed.
type Poller struct {
	fetcher  TaskFetcher
	tracker  *Tracker
	interval time.Duration
	logger   infra.Logger
}

// NewPoller builds a poller feeding snapshots into the tracker.
func NewPoller(fetcher TaskFetcher, tracker *Tracker, interval time.Duration, logger infra.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{fetcher: fetcher, tracker: tracker, interval: interval, logger: logger}
}

// Start begins polling the given task and returns a cancellation handle.
// Calling stop more than once is safe.
func (p *Poller) Start(ctx context.Context, sessionID, taskID string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	go p.loop(ctx, sessionID, taskID)
	return cancel
}

func (p *Poller) loop(ctx context.Context, sessionID, taskID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snapshot, err := p.fetcher.Task(ctx, sessionID, taskID)
		if err != nil {
			// Best-effort read; the next tick retries.
			p.logger.Warn().Err(err).Str("task_id", taskID).Msg("poller: snapshot fetch failed")
			continue
		}
		p.tracker.Observe(*snapshot)
		if snapshot.Status.Terminal() {
			p.logger.Debug().Str("task_id", taskID).Str("status", string(snapshot.Status)).Msg("poller: task reached terminal status")
			return
		}
	}
}
