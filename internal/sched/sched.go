// Package sched runs delayed and periodic tasks with explicit
// cancellation.
package sched

import (
	"context"
	"sync"
	"time"
)

// Task is a scheduled unit of work. Cancel stops it; Done is closed
// once the task will not run again.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops the task. Safe to call multiple times and after the
// task has finished.
func (t *Task) Cancel() {
	t.once.Do(t.cancel)
}

// Done is closed when the task has stopped, whether by cancellation or
// by running to completion.
func (t *Task) Done() <-chan struct{} { return t.done }

// After runs fn once after delay, unless cancelled first. The parent
// context also cancels the task.
func After(ctx context.Context, delay time.Duration, fn func()) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(task.done)
		defer cancel()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			fn()
		}
	}()
	return task
}

// Every runs fn once per interval, first after one interval, until
// cancelled. Runs do not overlap; a slow fn delays the next tick.
func Every(ctx context.Context, interval time.Duration, fn func()) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(task.done)
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return task
}
