package tasks

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/atharvwasthere/Orion/pkg/logging"
)

// Runner executes fire-and-forget background work, deduplicating concurrent
// runs by key: while a task for a key is in flight, further submissions for
// the same key attach to it instead of spawning another run.
type Runner struct {
	group   singleflight.Group
	logger  logging.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRunner(logger logging.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Runner{logger: logger, timeout: timeout}
}

// Submit schedules fn on its own goroutine. Errors are logged, not returned;
// background work must never fail a request.
func (r *Runner) Submit(key string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, err, _ := r.group.Do(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			return nil, fn(ctx)
		})
		if err != nil {
			r.logger.WithError(err).WithField("task", key).Warn("Background task failed")
		}
	}()
}

// Wait blocks until all submitted tasks have finished. Used during shutdown
// and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
