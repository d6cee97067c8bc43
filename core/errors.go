package core

import "errors"

// Sentinel errors returned by collaborator contracts. Callers branch on these
// with errors.Is; anything else is treated as transient by the dispatch
// pipeline.
var (
	// ErrAgentNotFound indicates the requested agent has no definition in the
	// Directory. Jobs targeting such agents are dropped without retry.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrSessionNotFound indicates a session id could not be resumed because
	// its state no longer exists (lost or rotated history).
	ErrSessionNotFound = errors.New("session not found")

	// ErrCronNotFound indicates a cron definition name is unknown to the store.
	ErrCronNotFound = errors.New("cron definition not found")

	// ErrNoQueue indicates no shared job queue is reachable from the current
	// execution context (single-shot invocation mode).
	ErrNoQueue = errors.New("no job queue in context")
)
