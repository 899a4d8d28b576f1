package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAfterRuns(t *testing.T) {
	var ran atomic.Bool
	task := After(context.Background(), 10*time.Millisecond, func() { ran.Store(true) })

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not finish")
	}
	require.True(t, ran.Load())
}

func TestAfterCancelledBeforeDelay(t *testing.T) {
	var ran atomic.Bool
	task := After(context.Background(), 500*time.Millisecond, func() { ran.Store(true) })
	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop")
	}
	require.False(t, ran.Load())
}

func TestEveryRepeatsUntilCancel(t *testing.T) {
	var runs atomic.Int32
	task := Every(context.Background(), 10*time.Millisecond, func() { runs.Add(1) })

	require.Eventually(t, func() bool { return runs.Load() >= 3 },
		time.Second, 5*time.Millisecond)

	task.Cancel()
	<-task.Done()

	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, settled, runs.Load())
}

func TestEveryStopsOnParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := Every(ctx, 10*time.Millisecond, func() {})
	cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop on parent cancellation")
	}
}

func TestCancelIdempotent(t *testing.T) {
	task := After(context.Background(), time.Hour, func() {})
	task.Cancel()
	task.Cancel()
	<-task.Done()
}
