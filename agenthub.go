// Package agenthub provides a high-level façade over the job-dispatch core
// (queue, router, executor) and its producers (cron scheduler, message
// ingester) enabling rapid construction of multi-agent assistant backends.
// Most applications interact with this package by:
//  1. Creating an AgentHub via New() (optionally overriding default in-memory services)
//  2. Registering one or more agent definitions and cron jobs
//  3. Dispatching jobs asynchronously (Dispatch) or synchronously (DispatchSync)
//  4. Calling Run() to start the supervised worker pipeline
//
// The façade delegates orchestration to server.Server while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a file-backed directory,
// platform connections and a structured logger.
package agenthub

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/delegate"
	"github.com/hupe1980/agenthub/directory"
	"github.com/hupe1980/agenthub/dispatch"
	"github.com/hupe1980/agenthub/ingest"
	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/metrics"
	"github.com/hupe1980/agenthub/model"
	"github.com/hupe1980/agenthub/schedule"
	"github.com/hupe1980/agenthub/server"
	"github.com/hupe1980/agenthub/session"
)

// Options configures the AgentHub instance.
type Options struct {
	// Directory resolves agent definitions (defaults to an in-memory
	// directory populated via RegisterAgent).
	Directory core.Directory

	// CronStore holds scheduled job definitions (defaults to an in-memory
	// store populated via RegisterCron).
	CronStore core.CronStore

	// Sessions overrides the default session service. When set, the façade
	// does not wire the recursive dispatch client; the caller owns that.
	Sessions core.SessionService

	// Platforms lists the message-bus connections the ingester should serve.
	// The ingester worker is only started when at least one is configured.
	Platforms []ingest.PlatformConnection

	// DefaultAgentID is the agent that handles inbound platform messages.
	DefaultAgentID string

	// MaxRetries bounds executor retries per job. Defaults to
	// dispatch.DefaultMaxRetries.
	MaxRetries int

	// CleanupThreshold is the slot-table size above which the router
	// reconciles admission slots against the directory.
	CleanupThreshold int

	// PollInterval is the cron scheduler tick (defaults to one minute).
	PollInterval time.Duration

	// SuperviseInterval is the worker supervision tick (defaults to 5s).
	SuperviseInterval time.Duration

	// BackgroundHistoryDepth bounds the conversation window for background
	// sessions. Chat sessions always use the full history.
	BackgroundHistoryDepth int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentHub is the high-level façade aggregating the queue, the collaborator
// services and the supervised worker pipeline.
type AgentHub struct {
	opts      Options
	queue     *core.JobQueue
	directory core.Directory
	crons     core.CronStore
	sessions  core.SessionService
	server    *server.Server
}

// New creates a new AgentHub instance driving chatModel, with optional
// overrides. Any unset service is initialized with an in-memory
// implementation.
func New(chatModel model.ChatModel, optFns ...func(o *Options)) *AgentHub {
	opts := Options{
		Directory:         directory.NewInMemoryDirectory(),
		CronStore:         directory.NewInMemoryCronStore(),
		MaxRetries:        dispatch.DefaultMaxRetries,
		CleanupThreshold:  dispatch.DefaultCleanupThreshold,
		PollInterval:      schedule.DefaultPollInterval,
		SuperviseInterval: server.DefaultSuperviseInterval,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	sessions := opts.Sessions
	if sessions == nil {
		del := delegate.New(func(o *delegate.Options) {
			o.Directory = opts.Directory
			o.Logger = opts.Logger
		})
		sessions = session.NewService(chatModel, func(o *session.Options) {
			o.Delegate = del
			o.Logger = opts.Logger
			if opts.BackgroundHistoryDepth > 0 {
				o.BackgroundHistoryDepth = opts.BackgroundHistoryDepth
			}
		})
		// The session service and the delegate client reference each other;
		// bind the service back so the queue-less direct fallback works for
		// single-shot use outside the server.
		del.BindSessions(sessions)
	}

	queue := core.NewJobQueue()

	executor := dispatch.NewExecutor(queue, sessions, func(o *dispatch.ExecutorOptions) {
		o.MaxRetries = opts.MaxRetries
		o.Logger = opts.Logger
	})
	router := dispatch.NewRouter(queue, opts.Directory, executor, func(o *dispatch.RouterOptions) {
		o.CleanupThreshold = opts.CleanupThreshold
		o.Logger = opts.Logger
	})
	scheduler := schedule.NewScheduler(queue, opts.CronStore, func(o *schedule.Options) {
		o.PollInterval = opts.PollInterval
		o.Logger = opts.Logger
	})

	workers := []server.Worker{router, scheduler}
	if len(opts.Platforms) > 0 {
		workers = append(workers, ingest.NewIngester(queue, opts.Directory, opts.DefaultAgentID, opts.Platforms, func(o *ingest.Options) {
			o.Logger = opts.Logger
		}))
	}

	srv := server.New(workers, func(o *server.Options) {
		o.SuperviseInterval = opts.SuperviseInterval
		o.Logger = opts.Logger
	})

	return &AgentHub{
		opts:      opts,
		queue:     queue,
		directory: opts.Directory,
		crons:     opts.CronStore,
		sessions:  sessions,
		server:    srv,
	}
}

// agentWriter is satisfied by directories that support programmatic
// registration, such as the in-memory default.
type agentWriter interface {
	Put(def *core.AgentDefinition)
}

// cronWriter is the cron-store counterpart of agentWriter.
type cronWriter interface {
	Put(def *core.CronDefinition)
}

// RegisterAgent adds an agent definition to the underlying directory. It
// fails when the configured directory does not support registration (for
// example a read-only file directory, which is edited on disk instead).
func (h *AgentHub) RegisterAgent(def *core.AgentDefinition) error {
	w, ok := h.directory.(agentWriter)
	if !ok {
		return fmt.Errorf("directory %T does not support programmatic registration", h.directory)
	}
	w.Put(def)
	return nil
}

// RegisterCron adds a cron definition to the underlying store.
func (h *AgentHub) RegisterCron(def *core.CronDefinition) error {
	w, ok := h.crons.(cronWriter)
	if !ok {
		return fmt.Errorf("cron store %T does not support programmatic registration", h.crons)
	}
	w.Put(def)
	return nil
}

// Dispatch enqueues a job for agentID and returns it immediately. The result
// is observed through job.Future.
func (h *AgentHub) Dispatch(_ context.Context, agentID, message string, mode core.Mode) *core.Job {
	job := core.NewJob(agentID, message, mode)
	h.queue.Enqueue(job)
	metrics.Shared().JobsEnqueued.WithLabelValues("api").Inc()
	return job
}

// DispatchSync enqueues a job and blocks until its result is available or
// ctx is cancelled.
func (h *AgentHub) DispatchSync(ctx context.Context, agentID, message string, mode core.Mode) (string, error) {
	job := h.Dispatch(ctx, agentID, message, mode)
	return job.Future.Await(ctx)
}

// Run starts the supervised worker pipeline and blocks until ctx is
// cancelled.
func (h *AgentHub) Run(ctx context.Context) error {
	return h.server.Run(ctx)
}

// Queue exposes the shared job queue, mainly for tests and advanced
// producers.
func (h *AgentHub) Queue() *core.JobQueue { return h.queue }

// Sessions exposes the session service backing the executors.
func (h *AgentHub) Sessions() core.SessionService { return h.sessions }
