// Package core provides the foundational domain types, interfaces and
// contracts used by AgentHub. It defines the core abstractions for:
//
//   - Jobs (units of dispatched work with a result future)
//   - The shared JobQueue (the single hand-off point between producers and the router)
//   - Agent definitions and the Directory that resolves them
//   - Sessions (opaque conversation state run by an executor)
//   - Cron definitions and their store
//   - Frontends (opaque sinks for user-visible output)
//
// The package intentionally keeps implementation concerns (routing, admission
// control, scheduling, platform transports) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
