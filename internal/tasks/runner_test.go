package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atharvwasthere/Orion/pkg/logging"
)

func TestRunnerRunsSubmittedTask(t *testing.T) {
	runner := NewRunner(logging.NewLoggerWithService("test"), time.Second)

	var ran atomic.Bool
	runner.Submit("task", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	runner.Wait()

	if !ran.Load() {
		t.Fatal("submitted task never ran")
	}
}

func TestRunnerDeduplicatesByKey(t *testing.T) {
	runner := NewRunner(logging.NewLoggerWithService("test"), time.Second)

	var runs atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	runner.Submit("summary:s1", func(ctx context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	})
	<-started

	// Submitted while the first run is in flight: must attach, not rerun.
	for i := 0; i < 3; i++ {
		runner.Submit("summary:s1", func(ctx context.Context) error {
			runs.Add(1)
			return nil
		})
	}
	// Give the duplicate submissions time to reach the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	runner.Wait()

	if got := runs.Load(); got != 1 {
		t.Fatalf("expected a single run for the key, got %d", got)
	}
}

func TestRunnerDistinctKeysRunIndependently(t *testing.T) {
	runner := NewRunner(logging.NewLoggerWithService("test"), time.Second)

	var runs atomic.Int32
	runner.Submit("a", func(ctx context.Context) error { runs.Add(1); return nil })
	runner.Submit("b", func(ctx context.Context) error { runs.Add(1); return nil })
	runner.Wait()

	if got := runs.Load(); got != 2 {
		t.Fatalf("expected 2 runs, got %d", got)
	}
}
