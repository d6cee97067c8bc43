package core

import "context"

// Frontend is the opaque sink a session turn writes user-visible output to.
// Producers supply the frontend: the ingester wraps a platform connection,
// the scheduler and the recursive dispatch client use SilentFrontend.
//
// Delegation visibility brackets a recursive dispatch: BeginDelegation is
// called right before the delegated job is enqueued and EndDelegation after
// its future resolves, so interactive frontends can show progress.
type Frontend interface {
	// Show displays a plain message. Errors are the frontend's own delivery
	// errors; callers log and swallow them.
	Show(ctx context.Context, text string) error
	// BeginDelegation marks the start of a recursive dispatch to agentID.
	BeginDelegation(ctx context.Context, agentID string)
	// EndDelegation marks the end of a recursive dispatch to agentID.
	EndDelegation(ctx context.Context, agentID string)
}

// SilentFrontend discards all output. Background jobs do not need an
// interactive sink.
type SilentFrontend struct{}

// Show discards the message.
func (SilentFrontend) Show(context.Context, string) error { return nil }

// BeginDelegation is a no-op.
func (SilentFrontend) BeginDelegation(context.Context, string) {}

// EndDelegation is a no-op.
func (SilentFrontend) EndDelegation(context.Context, string) {}
