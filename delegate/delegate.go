// Package delegate implements the recursive dispatch client: the path by
// which a running session turn hands work to another agent and suspends on
// its result.
package delegate

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthub/core"
	"github.com/hupe1980/agenthub/logging"
)

// Options holds dependency overrides passed to New().
type Options struct {
	// Directory resolves delegate agents in direct (queue-less) mode.
	Directory core.Directory
	// Sessions creates delegate sessions in direct mode.
	Sessions core.SessionService
	// Logger receives dispatch diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// Client submits delegated jobs onto the shared queue found in the calling
// context and suspends until their result future resolves. Each delegation
// starts a fresh sub-conversation in background mode with a silent frontend.
//
// When no queue is reachable (single-shot invocation outside the server),
// the client falls back to invoking the delegate agent in-process, bypassing
// admission control in that mode only.
//
// An agent with max_concurrency = 1 that delegates to itself, directly or
// transitively, holds its only permit while waiting for a second one and
// deadlocks. The limit is inherited from the source design and intentionally
// not papered over here.
type Client struct {
	directory core.Directory
	sessions  core.SessionService
	logger    logging.Logger
}

// New constructs a Client with optional overrides. Directory and Sessions
// are only required when the direct fallback must work.
func New(optFns ...func(o *Options)) *Client {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{directory: opts.Directory, sessions: opts.Sessions, logger: opts.Logger}
}

// BindSessions sets the session service used by the direct fallback. The
// session service and the client reference each other, so one of the two has
// to be bound after construction; call this during assembly, before any
// dispatch runs.
func (c *Client) BindSessions(sessions core.SessionService) {
	c.sessions = sessions
}

// Dispatch runs one delegation: it brackets the caller's frontend with
// delegation visibility, enqueues a background job for agentID on the shared
// queue from ctx, and awaits the result. The returned error carries the
// delegate's failure when its future fails.
func (c *Client) Dispatch(ctx context.Context, frontend core.Frontend, agentID, message string) (string, error) {
	if frontend == nil {
		frontend = core.SilentFrontend{}
	}

	frontend.BeginDelegation(ctx, agentID)
	defer frontend.EndDelegation(ctx, agentID)

	queue, ok := core.QueueFromContext(ctx)
	if !ok {
		c.logger.Debug("no shared queue in context, invoking delegate directly", "agent_id", agentID)
		return c.dispatchDirect(ctx, agentID, message)
	}

	job := core.NewJob(agentID, message, core.ModeBackground)
	queue.Enqueue(job)
	c.logger.Info("delegated job enqueued", "job_id", job.ID, "agent_id", agentID)

	result, err := job.Future.Await(ctx)
	if err != nil {
		return "", fmt.Errorf("delegation to %q failed: %w", agentID, err)
	}
	return result, nil
}

// dispatchDirect invokes the delegate agent in-process, without admission
// control. Used only when no shared queue is available.
func (c *Client) dispatchDirect(ctx context.Context, agentID, message string) (string, error) {
	if c.directory == nil || c.sessions == nil {
		return "", core.ErrNoQueue
	}

	def, err := c.directory.Load(ctx, agentID)
	if err != nil {
		return "", fmt.Errorf("delegation to %q failed: %w", agentID, err)
	}

	session, err := c.sessions.Create(ctx, def, core.ModeBackground, "")
	if err != nil {
		return "", fmt.Errorf("delegation to %q failed: %w", agentID, err)
	}

	result, err := session.Chat(ctx, message, core.SilentFrontend{})
	if err != nil {
		return "", fmt.Errorf("delegation to %q failed: %w", agentID, err)
	}
	return result, nil
}
