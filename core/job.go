package core

import "github.com/google/uuid"

// Mode selects how a session turn is executed. It affects history depth and
// tool availability downstream of the dispatch core.
type Mode string

const (
	// ModeChat marks an interactive conversation turn started by a user message.
	ModeChat Mode = "chat"
	// ModeBackground marks a non-interactive run (cron fires, delegated work).
	ModeBackground Mode = "background"
)

// ContinuationMessage is the neutral payload substituted in when a job is
// re-enqueued after a transient failure. The session's own persisted history
// carries the needed context, so the stale user turn is not re-sent.
const ContinuationMessage = "Please continue with the previous request."

// Job is the unit of work passed through the dispatch pipeline. It is a
// mutable record: the executor writes a generated session id back onto it,
// and the retry path replaces Message and increments RetryCount.
//
// Exactly one session executor writes to Future; exactly one awaiter reads
// it. RetryCount only increases, monotonically, via the re-enqueue path.
type Job struct {
	// ID identifies the job in logs. It is stable across retries.
	ID string
	// AgentID names the target agent.
	AgentID string
	// Message is the text payload handed to the session turn.
	Message string
	// SessionID selects the conversation to resume; empty means "create a
	// new session".
	SessionID string
	// Mode selects chat-turn vs. background-job execution.
	Mode Mode
	// Frontend is the opaque sink for user-visible output, supplied by
	// whichever producer created the job.
	Frontend Frontend
	// Future eventually carries the turn's textual result or its failure.
	Future *ResultFuture
	// RetryCount starts at 0 and is incremented on each re-enqueue.
	RetryCount int
}

// NewJob builds a job with a fresh id and result future. SessionID and
// Frontend default to empty / silent and can be set by the producer.
func NewJob(agentID, message string, mode Mode) *Job {
	return &Job{
		ID:       NewID(),
		AgentID:  agentID,
		Message:  message,
		Mode:     mode,
		Frontend: SilentFrontend{},
		Future:   NewResultFuture(),
	}
}

// NewID generates a new unique identifier for jobs and sessions.
func NewID() string { return uuid.NewString() }
