package cache

import (
	"context"
	"crewflow/internal/models"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned by MemoryQueue.Push when no slot is free.
var ErrQueueFull = errors.New("notification queue is full")

// MemoryQueue is the in-process stand-in for PublishedQueue, used with the
// memory storage backend and in tests.
type MemoryQueue struct {
	mu      sync.Mutex
	pending map[int64]bool
	jobs    chan models.PublishedJob
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryQueue{
		pending: make(map[int64]bool),
		jobs:    make(chan models.PublishedJob, capacity),
	}
}

// Push never waits: a full queue drops the pending marker and reports
// ErrQueueFull.
func (q *MemoryQueue) Push(_ context.Context, job models.PublishedJob) (bool, error) {
	q.mu.Lock()
	if q.pending[job.VideoID] {
		q.mu.Unlock()
		return false, nil
	}
	q.pending[job.VideoID] = true
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return true, nil
	default:
		q.Release(context.Background(), job.VideoID)
		return false, ErrQueueFull
	}
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) (*models.PublishedJob, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case job := <-q.jobs:
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Release(_ context.Context, videoID int64) error {
	q.mu.Lock()
	delete(q.pending, videoID)
	q.mu.Unlock()
	return nil
}

// Len reports how many jobs are waiting.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}
