package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobRecorder struct {
	mu       sync.Mutex
	attempts map[string]int
	done     chan string
	failFor  map[string]int
}

func newJobRecorder() *jobRecorder {
	return &jobRecorder{
		attempts: make(map[string]int),
		done:     make(chan string, 16),
		failFor:  make(map[string]int),
	}
}

func (r *jobRecorder) handle(ctx context.Context, job Job) error {
	r.mu.Lock()
	r.attempts[job.ID]++
	seen := r.attempts[job.ID]
	failures := r.failFor[job.ID]
	r.mu.Unlock()

	if seen <= failures {
		return errors.New("transient failure")
	}
	r.done <- job.ID
	return nil
}

func (r *jobRecorder) attemptCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[id]
}

func waitForJob(t *testing.T, done <-chan string, want string) {
	t.Helper()
	select {
	case id := <-done:
		require.Equal(t, want, id)
	case <-time.After(2 * time.Second):
		t.Fatalf("job %s never completed", want)
	}
}

func TestQueueProcessesJobs(t *testing.T) {
	rec := newJobRecorder()
	q := NewQueue("test", rec.handle, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "email"}))
	require.NoError(t, q.Enqueue(Job{ID: "job-2", Type: "email"}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-rec.done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("jobs never completed")
		}
	}
	assert.True(t, seen["job-1"])
	assert.True(t, seen["job-2"])
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	rec := newJobRecorder()
	rec.failFor["flaky"] = 2

	q := NewQueue("test", rec.handle, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky", Type: "email"}))
	waitForJob(t, rec.done, "flaky")
	assert.Equal(t, 3, rec.attemptCount("flaky"))
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "early"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestQueueStopIsIdempotent(t *testing.T) {
	q := NewQueue("stop", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	q.Stop()
}

func TestQueueConfigDefaults(t *testing.T) {
	cfg := QueueConfig{}
	cfg.applyDefaults()
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 4, cfg.BufferSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.NotNil(t, cfg.Logger)
}
