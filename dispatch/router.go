package dispatch

import (
	"context"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/metrics"
)

// DefaultCleanupThreshold is the slot-table size above which the router
// reconciles admission slots against the directory.
const DefaultCleanupThreshold = 32

// RouterOptions holds dependency + configuration overrides passed to NewRouter().
type RouterOptions struct {
	// CleanupThreshold triggers a reconcile of the admission-slot table when
	// the table grows past it, bounding memory as agents come and go.
	CleanupThreshold int
	// Logger receives routing diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// Router is the single consumer of the shared job queue. Per job it resolves
// the target agent's definition, obtains or creates the agent's admission
// slot and starts a session executor bound to both, without waiting for it,
// so the router immediately returns to dequeuing.
//
// The slot table is mutated only by the Run goroutine; no lock is needed.
type Router struct {
	queue     *core.JobQueue
	directory core.Directory
	executor  *Executor

	cleanupThreshold int
	logger           logging.Logger
	metrics          *metrics.Metrics

	slots map[string]*admission
}

// NewRouter constructs a Router draining queue and dispatching via executor.
func NewRouter(queue *core.JobQueue, directory core.Directory, executor *Executor, optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{
		CleanupThreshold: DefaultCleanupThreshold,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		queue:            queue,
		directory:        directory,
		executor:         executor,
		cleanupThreshold: opts.CleanupThreshold,
		logger:           opts.Logger,
		metrics:          metrics.Shared(),
		slots:            make(map[string]*admission),
	}
}

// Name identifies the router to the supervision loop.
func (r *Router) Name() string { return "router" }

// Run consumes the queue until ctx is cancelled. Spawned executors inherit a
// non-cancellable context: shutdown does not cancel in-flight session turns,
// they run to completion or failure independently.
func (r *Router) Run(ctx context.Context) error {
	for {
		job, err := r.queue.Dequeue(ctx)
		if err != nil {
			return err
		}

		r.route(ctx, job)
		r.reconcileSlots(ctx)
	}
}

// route resolves the job's agent and hands it to an executor. Definition
// errors are not transient: the job is dropped without retry and its future
// failed so no caller waits indefinitely.
func (r *Router) route(ctx context.Context, job *core.Job) {
	def, err := r.directory.Load(ctx, job.AgentID)
	if err != nil {
		r.logger.Error("dropping job for unresolvable agent", "job_id", job.ID, "agent_id", job.AgentID, "error", err)
		r.metrics.JobsDropped.WithLabelValues("agent_not_found").Inc()
		job.Future.Fail(err)
		return
	}

	slot := r.slotFor(def)
	r.logger.Debug("dispatching job", "job_id", job.ID, "agent_id", def.ID, "retry_count", job.RetryCount)
	r.metrics.JobsDispatched.WithLabelValues(def.ID).Inc()

	execCtx := core.WithQueue(context.WithoutCancel(ctx), r.queue)
	go r.executor.Execute(execCtx, job, def, slot)
}

// slotFor returns the agent's admission slot, creating it on first reference
// sized to the definition's max concurrency. An existing slot keeps its
// original capacity: resizing a pool with outstanding permits is unsafe, so
// concurrency changes take effect after the slot is reclaimed.
func (r *Router) slotFor(def *core.AgentDefinition) *admission {
	if slot, ok := r.slots[def.ID]; ok {
		return slot
	}
	slot := newAdmission(def.EffectiveConcurrency())
	r.slots[def.ID] = slot
	return slot
}

// reconcileSlots discards slots for agents no longer defined once the table
// exceeds the cleanup threshold, bounding growth as agents are created and
// deleted over the process lifetime.
func (r *Router) reconcileSlots(ctx context.Context) {
	if len(r.slots) <= r.cleanupThreshold {
		return
	}

	defs, err := r.directory.List(ctx)
	if err != nil {
		r.logger.Warn("slot reconcile skipped, directory listing failed", "error", err)
		return
	}

	defined := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		defined[def.ID] = struct{}{}
	}

	removed := 0
	for id := range r.slots {
		if _, ok := defined[id]; !ok {
			delete(r.slots, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("reclaimed stale admission slots", "removed", removed, "remaining", len(r.slots))
		r.metrics.SlotsReconciled.Inc()
	}
}

// slotCount reports the size of the admission-slot table. Test hook; only
// safe once Run has returned.
func (r *Router) slotCount() int { return len(r.slots) }
