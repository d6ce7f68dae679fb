// Package scheduler provides guildsync's two task-running primitives
// (spec.md §5, C7): WallClock, a wall-clock-driven scheduler whose tasks
// dynamically re-arm themselves for their next run (grounded on
// original_source/src/discord_bot.rs's use of the white_rabbit crate, which
// isn't a fetchable Go library and is therefore reimplemented here over a
// min-heap and a single timer goroutine), and Executor, a cancellable
// one-shot async runner with a timeout for the Event-Source sync task.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/guildsync/guildsync/guildlog"
)

var log = guildlog.New("scheduler")

// Result is what a Task returns after running: either Done (it will never
// run again) or Repeat(when) (re-arm for the given time). Mirrors
// white_rabbit's DateResult::{Done,Repeat}.
type Result struct {
	done bool
	next time.Time
}

// Done marks a task as finished; it will not be re-armed.
func Done() Result { return Result{done: true} }

// Repeat re-arms a task to run again at when.
func Repeat(when time.Time) Result { return Result{next: when} }

// Task is a unit of work the WallClock scheduler runs at a specific wall
// clock time. Its return value decides whether and when it runs again.
type Task func(ctx context.Context) Result

type scheduledTask struct {
	at   time.Time
	task Task
	seq  uint64
}

type taskHeap []*scheduledTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*scheduledTask)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// WallClock runs Tasks at specific wall-clock times, serially (spec.md §5:
// "the scheduler serialises sweeps - no two sweep tasks run concurrently").
// A single goroutine owns the heap and the timer; AddTask is safe to call
// from any goroutine.
type WallClock struct {
	mu      sync.Mutex
	heap    taskHeap
	seq     uint64
	wake    chan struct{}
	closing chan struct{}
	closed  sync.Once
}

// NewWallClock starts the scheduler's background goroutine. Call Close to
// stop it.
func NewWallClock(ctx context.Context) *WallClock {
	wc := &WallClock{
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
	}
	go wc.run(ctx)
	return wc
}

// AddTask schedules task to run at `at`.
func (wc *WallClock) AddTask(at time.Time, task Task) {
	wc.mu.Lock()
	wc.seq++
	heap.Push(&wc.heap, &scheduledTask{at: at, task: task, seq: wc.seq})
	wc.mu.Unlock()
	select {
	case wc.wake <- struct{}{}:
	default:
	}
}

// Close stops the scheduler. Pending tasks never run.
func (wc *WallClock) Close() {
	wc.closed.Do(func() { close(wc.closing) })
}

func (wc *WallClock) run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		wc.mu.Lock()
		var d time.Duration
		if wc.heap.Len() == 0 {
			d = time.Hour
		} else {
			d = time.Until(wc.heap[0].at)
			if d < 0 {
				d = 0
			}
		}
		wc.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d)

		select {
		case <-ctx.Done():
			return
		case <-wc.closing:
			return
		case <-wc.wake:
			continue
		case <-timer.C:
			wc.runDue(ctx)
		}
	}
}

func (wc *WallClock) runDue(ctx context.Context) {
	now := time.Now()
	for {
		wc.mu.Lock()
		if wc.heap.Len() == 0 || wc.heap[0].at.After(now) {
			wc.mu.Unlock()
			return
		}
		next := heap.Pop(&wc.heap).(*scheduledTask)
		wc.mu.Unlock()

		result := next.task(ctx)
		if !result.done {
			wc.AddTask(result.next, next.task)
		}
	}
}
