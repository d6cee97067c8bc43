package core

import (
	"context"
	"sync"

	"github.com/hupe1980/agenthub/metrics"
)

// JobQueue is the process-wide FIFO hand-off point between every producer
// (scheduler, ingester, recursive dispatch) and the router. Enqueue never
// blocks; Dequeue suspends the caller until a job is available.
//
// The queue is unbounded so the executor's re-enqueue path can never deadlock
// against a full buffer. The router is its single consumer, but the
// implementation is safe for concurrent use on both sides anyway.
type JobQueue struct {
	mu      sync.Mutex
	jobs    []*Job
	wake    chan struct{}
	metrics *metrics.Metrics
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{wake: make(chan struct{}, 1), metrics: metrics.Shared()}
}

// Enqueue appends a job to the tail and wakes a waiting consumer.
func (q *JobQueue) Enqueue(job *Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.metrics.QueueDepth.Set(float64(len(q.jobs)))
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the head job in FIFO order, suspending until a
// job is available or ctx is cancelled.
func (q *JobQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			q.metrics.QueueDepth.Set(float64(len(q.jobs)))
			q.mu.Unlock()
			return job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

// Len returns the current queue depth.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type queueCtxKey struct{}

// WithQueue returns a context carrying the shared job queue so code running
// inside a session turn (the recursive dispatch client) can reach it.
func WithQueue(ctx context.Context, q *JobQueue) context.Context {
	return context.WithValue(ctx, queueCtxKey{}, q)
}

// QueueFromContext extracts the shared job queue if present.
func QueueFromContext(ctx context.Context) (*JobQueue, bool) {
	q, ok := ctx.Value(queueCtxKey{}).(*JobQueue)
	return q, ok
}
