package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}
	done := make(chan struct{}, 2)
	q := NewQueue("exports", func(ctx context.Context, job Job[string]) error {
		mu.Lock()
		seen[job.ID] = job.Payload
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig[string]{Workers: 2})

	require.Error(t, q.Enqueue(Job[string]{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job[string]{ID: "a", Payload: "csv"}))
	require.NoError(t, q.Enqueue(Job[string]{ID: "b", Payload: "pdf"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]string{"a": "csv", "b": "pdf"}, seen)
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	gaveUp := make(chan error, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job[int]) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("disk full")
	}, QueueConfig[int]{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnGiveUp: func(ctx context.Context, job Job[int], err error) {
			gaveUp <- err
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job[int]{ID: "job-1", Payload: 7}))
	select {
	case err := <-gaveUp:
		assert.EqualError(t, err, "disk full")
	case <-time.After(2 * time.Second):
		t.Fatal("job never gave up")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("exports", func(ctx context.Context, job Job[int]) error {
		<-block
		return nil
	}, QueueConfig[int]{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job[int]{ID: "1"}))
	require.Eventually(t, func() bool { return q.Pending() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job[int]{ID: "2"}))
	err := q.Enqueue(Job[int]{ID: "3"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueBackoffDoubles(t *testing.T) {
	q := NewQueue[int]("exports", nil, QueueConfig[int]{RetryDelay: 100 * time.Millisecond})
	assert.Equal(t, 100*time.Millisecond, q.backoff(1))
	assert.Equal(t, 200*time.Millisecond, q.backoff(2))
	assert.Equal(t, 400*time.Millisecond, q.backoff(3))
}
