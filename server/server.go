// Package server implements the orchestrator that owns the router and the
// background producers, supervising their tasks and restarting any that
// terminate unexpectedly.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/metrics"
)

// DefaultSuperviseInterval is how often worker tasks are checked for
// unexpected termination.
const DefaultSuperviseInterval = 5 * time.Second

// Worker is a long-running task managed by the server: the router, the cron
// scheduler and the message ingester all implement it. Run blocks until its
// context is cancelled or the worker crashes.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// SuperviseInterval is the supervision tick; defaults to
	// DefaultSuperviseInterval.
	SuperviseInterval time.Duration
	// Logger receives lifecycle diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// Server launches each worker as an independent task and runs a supervision
// loop: a worker task that finished while the server is still running is
// logged and replaced with a fresh task for the same worker instance.
//
// Shutdown cancels every managed task and awaits their completion. Session
// executors spawned by the router are not tracked here; they run to
// completion independently.
type Server struct {
	workers []Worker

	superviseInterval time.Duration
	logger            logging.Logger
	metrics           *metrics.Metrics
}

// taskHandle associates a running worker with its current execution. It is
// replaced, not destroyed, on restart.
type taskHandle struct {
	done chan struct{}
	err  error // written before done is closed
}

// finished reports non-blockingly whether the task has terminated.
func (h *taskHandle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// New constructs a Server managing workers.
func New(workers []Worker, optFns ...func(o *Options)) *Server {
	opts := Options{
		SuperviseInterval: DefaultSuperviseInterval,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{
		workers:           workers,
		superviseInterval: opts.SuperviseInterval,
		logger:            opts.Logger,
		metrics:           metrics.Shared(),
	}
}

// Run launches all workers and supervises them until ctx is cancelled, then
// awaits every task, tolerating cancellation-induced errors.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	handles := make([]*taskHandle, len(s.workers))
	for i, w := range s.workers {
		handles[i] = s.launch(runCtx, w)
		s.logger.Info("worker started", "worker", w.Name())
	}

	ticker := time.NewTicker(s.superviseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cancel()
			for i, h := range handles {
				<-h.done
				s.logger.Info("worker stopped", "worker", s.workers[i].Name())
			}
			return ctx.Err()
		case <-ticker.C:
			s.supervise(runCtx, handles)
		}
	}
}

// supervise replaces the handle of every worker whose task finished even
// though the server was not shutting down.
func (s *Server) supervise(runCtx context.Context, handles []*taskHandle) {
	for i, h := range handles {
		if !h.finished() || runCtx.Err() != nil {
			continue
		}
		w := s.workers[i]
		s.logger.Error("worker terminated unexpectedly, restarting", "worker", w.Name(), "error", h.err)
		s.metrics.WorkerRestarts.WithLabelValues(w.Name()).Inc()
		handles[i] = s.launch(runCtx, w)
	}
}

// launch starts one worker task. Panics are contained so a crashing worker
// surfaces as a finished task for the supervision loop instead of taking the
// process down.
func (s *Server) launch(ctx context.Context, w Worker) *taskHandle {
	h := &taskHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				h.err = fmt.Errorf("worker %q panicked: %v", w.Name(), r)
			}
		}()
		h.err = w.Run(ctx)
	}()
	return h
}
