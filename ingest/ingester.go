// Package ingest implements the message-bus producer: platform connections
// deliver inbound user messages, which the ingester maps to stable sessions
// and turns into chat-mode jobs on the shared queue.
package ingest

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/logging"
	"github.com/hupe1980/agenthub/metrics"
)

// InboundMessage is one user message received from a platform.
type InboundMessage struct {
	// Platform names the connection the message arrived on.
	Platform string
	// SenderID identifies the user; used for the allow predicate and the
	// stable session mapping.
	SenderID string
	// ChatID identifies the conversation (channel, DM, room) for replies.
	ChatID string
	// Text is the message payload.
	Text string
}

// PlatformConnection is one messaging-platform attachment. Implementations
// own the wire protocol; the ingester only sees this contract.
type PlatformConnection interface {
	// PlatformName returns a stable identifier ("nats", "websocket", ...).
	PlatformName() string
	// Start begins delivering inbound messages to onMessage until Stop.
	Start(ctx context.Context, onMessage func(msg InboundMessage)) error
	// Stop tears the connection down.
	Stop() error
	// Reply sends content back to the message's origin.
	Reply(ctx context.Context, content string, msg InboundMessage) error
	// IsAllowed reports whether the sender may talk to the platform agent.
	IsAllowed(msg InboundMessage) bool
}

// failureReporter is implemented by connections that cannot self-heal and
// instead report a dead transport, like WSConnection. The ingester fails its
// worker run on such a report so the supervision loop restarts it with fresh
// connections.
type failureReporter interface {
	Failures() <-chan error
}

// Options holds dependency + configuration overrides passed to NewIngester().
type Options struct {
	// Logger receives ingestion diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// Ingester owns zero or more platform connections and produces one chat-mode
// job per allowed inbound message. Repeated messages from the same user and
// chat map to the same session id, continuing the conversation.
type Ingester struct {
	queue          *core.JobQueue
	directory      core.Directory
	defaultAgentID string
	connections    []PlatformConnection

	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewIngester constructs an Ingester producing onto queue for the platform's
// default agent.
func NewIngester(queue *core.JobQueue, dir core.Directory, defaultAgentID string, connections []PlatformConnection, optFns ...func(o *Options)) *Ingester {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Ingester{
		queue:          queue,
		directory:      dir,
		defaultAgentID: defaultAgentID,
		connections:    connections,
		logger:         opts.Logger,
		metrics:        metrics.Shared(),
	}
}

// Name identifies the ingester to the supervision loop.
func (i *Ingester) Name() string { return "message-ingester" }

// Run resolves the default agent once, starts every connection and blocks
// until ctx is cancelled or a connection reports a dead transport. Both a
// connection that cannot start and one that dies mid-run fail the worker;
// the supervision loop restarts it.
func (i *Ingester) Run(ctx context.Context) error {
	def, err := i.directory.Load(ctx, i.defaultAgentID)
	if err != nil {
		return fmt.Errorf("resolve default agent: %w", err)
	}

	fatal := make(chan error, len(i.connections))
	started := make([]PlatformConnection, 0, len(i.connections))
	for _, conn := range i.connections {
		conn := conn
		handler := func(msg InboundMessage) { i.handleMessage(ctx, conn, def, msg) }
		if err := conn.Start(ctx, handler); err != nil {
			i.stopAll(started)
			return fmt.Errorf("start platform %q: %w", conn.PlatformName(), err)
		}
		started = append(started, conn)
		i.logger.Info("platform connection started", "platform", conn.PlatformName())

		if reporter, ok := conn.(failureReporter); ok {
			go func(name string, failures <-chan error) {
				select {
				case <-ctx.Done():
				case err := <-failures:
					select {
					case fatal <- fmt.Errorf("platform %q died: %w", name, err):
					default:
					}
				}
			}(conn.PlatformName(), reporter.Failures())
		}
	}

	select {
	case <-ctx.Done():
		i.stopAll(started)
		return ctx.Err()
	case err := <-fatal:
		i.stopAll(started)
		return err
	}
}

func (i *Ingester) stopAll(conns []PlatformConnection) {
	for _, conn := range conns {
		if err := conn.Stop(); err != nil {
			i.logger.Warn("platform stop failed", "platform", conn.PlatformName(), "error", err)
		}
	}
}

// handleMessage applies the allow predicate, maps the sender to its stable
// session and enqueues the job. A goroutine awaits the result future so
// permanently failed turns are at least logged; the reply itself travels
// through the frontend adapter.
func (i *Ingester) handleMessage(ctx context.Context, conn PlatformConnection, def *core.AgentDefinition, msg InboundMessage) {
	platform := conn.PlatformName()
	if !conn.IsAllowed(msg) {
		i.logger.Warn("rejected message from disallowed sender", "platform", platform, "sender_id", msg.SenderID)
		i.metrics.MessagesDenied.WithLabelValues(platform).Inc()
		return
	}

	job := core.NewJob(def.ID, msg.Text, core.ModeChat)
	job.SessionID = SessionIDFor(platform, msg)
	job.Frontend = newPlatformFrontend(conn, msg, i.logger)

	i.queue.Enqueue(job)
	i.logger.Debug("inbound message enqueued", "platform", platform, "job_id", job.ID, "session_id", job.SessionID)
	i.metrics.MessagesIngested.WithLabelValues(platform).Inc()
	i.metrics.JobsEnqueued.WithLabelValues("ingest").Inc()

	go func() {
		if _, err := job.Future.Await(ctx); err != nil {
			i.logger.Error("ingested job failed", "platform", platform, "job_id", job.ID, "error", err)
		}
	}()
}

// SessionIDFor derives the stable session id for a platform message: same
// platform, chat and sender always continue the same conversation.
func SessionIDFor(platform string, msg InboundMessage) string {
	return fmt.Sprintf("%s:%s:%s", platform, msg.ChatID, msg.SenderID)
}
