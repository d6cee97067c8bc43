package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/metrics"
)

// DefaultMaxRetries bounds how often a job is re-enqueued after transient
// failures before its future is failed.
const DefaultMaxRetries = 3

// ExecutorOptions holds dependency + configuration overrides passed to NewExecutor().
type ExecutorOptions struct {
	// MaxRetries is the retry bound for transient failures.
	MaxRetries int
	// Logger receives execution diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// Executor runs exactly one job to completion under admission control: it
// acquires a permit, resolves the target session, executes the conversational
// turn and delivers the outcome. Transient failures go back onto the shared
// queue with the continuation marker until the retry bound is reached.
type Executor struct {
	queue    *core.JobQueue
	sessions core.SessionService

	maxRetries int
	logger     logging.Logger
	metrics    *metrics.Metrics
}

// NewExecutor constructs an Executor resolving sessions via sessions and
// re-enqueuing retries onto queue.
func NewExecutor(queue *core.JobQueue, sessions core.SessionService, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		MaxRetries: DefaultMaxRetries,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{
		queue:      queue,
		sessions:   sessions,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
		metrics:    metrics.Shared(),
	}
}

// Execute runs one job. It is called on its own goroutine by the router.
func (e *Executor) Execute(ctx context.Context, job *core.Job, def *core.AgentDefinition, slot *admission) {
	if err := slot.acquire(ctx); err != nil {
		job.Future.Fail(err)
		return
	}
	defer slot.release()

	e.metrics.ActiveExecutors.WithLabelValues(def.ID).Inc()
	defer e.metrics.ActiveExecutors.WithLabelValues(def.ID).Dec()
	start := time.Now()
	defer func() {
		e.metrics.ExecutorDuration.WithLabelValues(def.ID).Observe(time.Since(start).Seconds())
	}()

	session, err := e.resolveSession(ctx, job, def)
	if err != nil {
		e.failOrRetry(job, err)
		return
	}

	result, err := session.Chat(ctx, job.Message, job.Frontend)
	if err != nil {
		e.failOrRetry(job, err)
		return
	}

	e.logger.Debug("job completed", "job_id", job.ID, "agent_id", def.ID, "session_id", job.SessionID)
	e.metrics.JobsSucceeded.Inc()
	job.Future.Resolve(result)
}

// resolveSession resumes the job's session, recovering a lost one under its
// original id, or creates a fresh session and records the generated id back
// onto the job so awaiting callers can observe it.
func (e *Executor) resolveSession(ctx context.Context, job *core.Job, def *core.AgentDefinition) (core.Session, error) {
	if job.SessionID != "" {
		session, err := e.sessions.Resume(ctx, def, job.SessionID)
		if errors.Is(err, core.ErrSessionNotFound) {
			e.logger.Warn("session lost, recreating under same id", "job_id", job.ID, "session_id", job.SessionID)
			return e.sessions.Create(ctx, def, job.Mode, job.SessionID)
		}
		return session, err
	}

	session, err := e.sessions.Create(ctx, def, job.Mode, "")
	if err != nil {
		return nil, err
	}
	job.SessionID = session.ID()
	return session, nil
}

// failOrRetry applies the bounded retry policy: below the bound the job goes
// back onto the queue with the continuation marker in place of its payload
// (the session's persisted history carries the context); at the bound the
// failure is delivered on the future so callers never wait indefinitely.
func (e *Executor) failOrRetry(job *core.Job, err error) {
	if job.RetryCount < e.maxRetries {
		job.RetryCount++
		job.Message = core.ContinuationMessage
		e.logger.Warn("transient job failure, re-enqueuing", "job_id", job.ID, "agent_id", job.AgentID, "retry_count", job.RetryCount, "error", err)
		e.metrics.JobRetries.Inc()
		e.queue.Enqueue(job)
		return
	}

	e.logger.Error("job failed after max retries", "job_id", job.ID, "agent_id", job.AgentID, "retry_count", job.RetryCount, "error", err)
	e.metrics.JobsFailed.Inc()
	job.Future.Fail(err)
}
