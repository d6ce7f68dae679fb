package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guildsync/guildsync/domain"
)

func TestWallClockRunsDueTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wc := NewWallClock(ctx)
	defer wc.Close()

	runs := make(chan time.Time, 2)
	var task Task
	task = func(ctx context.Context) Result {
		runs <- time.Now()
		return Done()
	}
	wc.AddTask(time.Now().Add(10*time.Millisecond), task)

	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestWallClockReArmsRepeatingTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wc := NewWallClock(ctx)
	defer wc.Close()

	runs := make(chan struct{}, 3)
	count := 0
	var task Task
	task = func(ctx context.Context) Result {
		count++
		runs <- struct{}{}
		if count >= 2 {
			return Done()
		}
		return Repeat(time.Now().Add(5 * time.Millisecond))
	}
	wc.AddTask(time.Now().Add(5*time.Millisecond), task)

	for i := 0; i < 2; i++ {
		select {
		case <-runs:
		case <-time.After(2 * time.Second):
			t.Fatalf("task did not re-arm (got %d runs)", i)
		}
	}
}

func TestExecutorSubmitReturnsTimeoutErrorWhenFutureHangs(t *testing.T) {
	e := NewExecutor(20 * time.Millisecond)
	done := e.Submit(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrTimeout) {
			t.Fatalf("expected domain.ErrTimeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit never returned")
	}
}

func TestExecutorSubmitReturnsNilOnSuccess(t *testing.T) {
	e := NewExecutor(time.Second)
	done := e.Submit(context.Background(), func(ctx context.Context) error { return nil })
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit never returned")
	}
}
