package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllJobs(t *testing.T) {
	// --- Arrange ---
	p := New(context.Background(), 3, 10)
	var count atomic.Int32

	// --- Act ---
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(Job{ID: "j", Run: func(context.Context) { count.Add(1) }}))
	}
	require.NoError(t, p.Shutdown(context.Background()))

	// --- Assert ---
	assert.Equal(t, int32(10), count.Load())
}

func TestPool_QueueFull(t *testing.T) {
	p := New(context.Background(), 1, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, p.Submit(Job{Run: func(context.Context) {
		close(started)
		<-release
	}}))
	<-started
	require.NoError(t, p.Submit(Job{Run: func(context.Context) {}}))

	err := p.Submit(Job{Run: func(context.Context) {}})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, p.Queued())
	assert.Equal(t, 1, p.Running())

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := New(context.Background(), 1, 1)
	require.NoError(t, p.Shutdown(context.Background()))

	assert.ErrorIs(t, p.Submit(Job{Run: func(context.Context) {}}), ErrClosed)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_ShutdownTimeoutCancelsJobs(t *testing.T) {
	// --- Arrange ---
	p := New(context.Background(), 1, 4)
	started := make(chan struct{})
	var sawCancel atomic.Bool
	var skipped sync.WaitGroup
	skipped.Add(1)

	require.NoError(t, p.Submit(Job{Run: func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	}}))
	require.NoError(t, p.Submit(Job{
		Run:  func(context.Context) { t.Error("queued job should have been skipped") },
		Skip: func(error) { skipped.Done() },
	}))
	<-started

	// --- Act ---
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Shutdown(ctx)

	// --- Assert ---
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, sawCancel.Load())
	skipped.Wait()
}

func TestPool_PanickingJobDoesNotKillWorker(t *testing.T) {
	p := New(context.Background(), 1, 2)
	done := make(chan struct{})

	require.NoError(t, p.Submit(Job{Run: func(context.Context) { panic("boom") }}))
	require.NoError(t, p.Submit(Job{Run: func(context.Context) { close(done) }}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second job never ran")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}
