package core

import "context"

// Session is opaque conversation state keyed by its id. A session is owned
// exclusively by the session executor instance currently running it; the
// dispatch core does not serialize concurrent jobs that reference the same
// session id (documented risk, not an invariant).
type Session interface {
	// ID returns the session's stable identifier.
	ID() string
	// Chat runs one conversational turn: it hands message and frontend to the
	// session's conversation contract and returns the textual result.
	Chat(ctx context.Context, message string, frontend Frontend) (string, error)
}

// SessionService creates and resumes sessions for an agent definition.
type SessionService interface {
	// Create starts a new session. An empty sessionID asks the service to
	// generate one; a non-empty id is adopted as-is (used to recover a lost
	// session under its original id).
	Create(ctx context.Context, def *AgentDefinition, mode Mode, sessionID string) (Session, error)
	// Resume reopens an existing session or returns an error wrapping
	// ErrSessionNotFound when its state no longer exists.
	Resume(ctx context.Context, def *AgentDefinition, sessionID string) (Session, error)
}
