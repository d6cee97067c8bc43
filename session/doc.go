// Package session houses the in-memory implementation of core.SessionService.
// The contracts themselves (Session, SessionService) live in the core package
// to centralize domain interfaces; keeping only implementations here prevents
// higher level packages (dispatch, server) from depending on concrete storage.
//
// Add durable backends (Redis, Postgres, ...) in sub-packages without
// changing any calling code; only the wiring layer decides which
// implementation to instantiate.
package session
