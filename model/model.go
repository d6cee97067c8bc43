// Package model defines the ChatModel abstraction session turns run against,
// decoupling the dispatch core from any concrete LLM provider. Concrete
// adapters live in sub-packages (openai, anthropic).
package model

import "context"

// Message is one prior turn of a conversation.
type Message struct {
	// Role is "user" or "assistant".
	Role string
	// Text is the turn's plain text content.
	Text string
}

// Request is a normalized, provider-agnostic chat completion request.
type Request struct {
	// Model optionally overrides the adapter's configured model id.
	Model string
	// System is the agent's instruction; empty omits the system turn.
	System string
	// Messages is the conversation history, oldest first, ending with the
	// current user turn.
	Messages []Message
}

// Response carries the assistant's textual reply.
type Response struct {
	Text string
}

// Info describes a concrete model adapter.
type Info struct {
	Name     string
	Provider string
}

// ChatModel generates one assistant reply for a request. Implementations
// must be safe for concurrent use; the dispatch pipeline shares one adapter
// across all session executors.
type ChatModel interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	Info() Info
}
