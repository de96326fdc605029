package attio

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Scheduler runs a delivery group after the triggering call returns.
// Without one the dispatcher awaits deliveries inline.
type Scheduler interface {
	Schedule(ctx context.Context, task func(ctx context.Context))
}

// GoScheduler runs each task in its own goroutine and tracks it so shutdown can wait.
// Tasks run on a context detached from the caller's cancellation.
type GoScheduler struct {
	wg sync.WaitGroup
}

func NewGoScheduler() *GoScheduler {
	return &GoScheduler{}
}

func (s *GoScheduler) Schedule(ctx context.Context, task func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(detached, "panic in scheduled delivery",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		task(detached)
	}()
}

// Drain waits for scheduled tasks to finish or ctx to end.
func (s *GoScheduler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
