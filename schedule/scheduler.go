// Package schedule implements the cron producer: a background loop that
// polls the cron-definition store once per interval and enqueues a background
// job for every definition whose schedule matches the current minute.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/metrics"
	"github.com/robfig/cron/v3"
)

// DefaultPollInterval is the scheduler's tick. It must be at least as coarse
// as the finest granularity of the five-field expressions (one minute).
const DefaultPollInterval = time.Minute

// cronParser accepts standard five-field expressions (minute granularity).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Options holds dependency + configuration overrides passed to NewScheduler().
type Options struct {
	// PollInterval is the loop tick; defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Now supplies the current time; replaceable for tests.
	Now func() time.Time
	// Logger receives scheduling diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// Scheduler polls the cron store and enqueues due jobs. A definition is due
// when its expression matches the tick time truncated to the minute. This is
// an exact match, not "matches at or before", so a missed tick is a missed fire.
type Scheduler struct {
	queue *core.JobQueue
	crons core.CronStore

	pollInterval time.Duration
	now          func() time.Time
	logger       logging.Logger
	metrics      *metrics.Metrics
}

// NewScheduler constructs a Scheduler producing onto queue from crons.
func NewScheduler(queue *core.JobQueue, crons core.CronStore, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		PollInterval: DefaultPollInterval,
		Now:          time.Now,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scheduler{
		queue:        queue,
		crons:        crons,
		pollInterval: opts.PollInterval,
		now:          opts.Now,
		logger:       opts.Logger,
		metrics:      metrics.Shared(),
	}
}

// Name identifies the scheduler to the supervision loop.
func (s *Scheduler) Name() string { return "cron-scheduler" }

// Run polls once per interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.poll(ctx, s.now())
		}
	}
}

// poll evaluates every definition against now. Errors evaluating one
// definition are logged and do not prevent evaluating the rest.
func (s *Scheduler) poll(ctx context.Context, now time.Time) {
	defs, err := s.crons.Discover(ctx)
	if err != nil {
		s.logger.Error("cron discovery failed", "error", err)
		return
	}

	now = now.Truncate(time.Minute)
	for _, def := range defs {
		due, err := isDue(def.Schedule, now)
		if err != nil {
			s.logger.Warn("skipping cron with invalid schedule", "cron", def.Name, "schedule", def.Schedule, "error", err)
			continue
		}
		if !due {
			continue
		}
		s.fire(ctx, def)
	}
}

// fire enqueues the definition's job. Background runs always start fresh: no
// session id, silent frontend. One-off definitions are deleted immediately
// after enqueuing so they never fire again.
func (s *Scheduler) fire(ctx context.Context, def *core.CronDefinition) {
	job := core.NewJob(def.AgentID, def.Prompt, core.ModeBackground)
	s.queue.Enqueue(job)
	s.logger.Info("cron fired", "cron", def.Name, "agent_id", def.AgentID, "job_id", job.ID)
	s.metrics.CronFires.WithLabelValues(def.Name).Inc()
	s.metrics.JobsEnqueued.WithLabelValues("cron").Inc()

	if def.OneOff {
		if err := s.crons.Delete(ctx, def.Name); err != nil {
			s.logger.Error("failed to delete one-off cron", "cron", def.Name, "error", err)
		}
	}
}

// isDue reports whether expr matches now (already truncated to the minute).
func isDue(expr string, now time.Time) (bool, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return false, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return sched.Next(now.Add(-time.Second)).Equal(now), nil
}
