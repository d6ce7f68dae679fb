package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guildsync/guildsync/domain"
)

// Executor runs one-shot, cancellable futures with a timeout (spec.md §5:
// "asynchronous executor for cancellable futures with timeouts"), grounded
// on the futures::sync::mpsc spawner original_source/src/discord_bot.rs uses
// to dispatch the Event-Source sync task off the command-handling goroutine.
type Executor struct {
	timeout time.Duration
}

// NewExecutor returns an Executor bounding every submitted future to timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Future is a cancellable unit of async work.
type Future func(ctx context.Context) error

// Submit runs fn in its own goroutine bounded by the Executor's timeout,
// derived from parent. It returns immediately; the result (wrapped as
// domain.ErrTimeout if fn didn't finish in time) arrives on the returned
// channel.
func (e *Executor) Submit(parent context.Context, fn Future) <-chan error {
	done := make(chan error, 1)
	ctx, cancel := context.WithTimeout(parent, e.timeout)
	go func() {
		defer cancel()
		err := fn(ctx)
		if err == nil {
			err = ctx.Err()
		}
		done <- wrapTimeout(err)
	}()
	return done
}

// wrapTimeout reclassifies a context deadline as domain.ErrTimeout so
// callers can distinguish "ran out of time" from every other failure with
// errors.Is instead of comparing against context.DeadlineExceeded directly.
func wrapTimeout(err error) error {
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
}
