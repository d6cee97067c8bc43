// Package directory houses implementations of core.Directory and
// core.CronStore: an in-memory store for tests and embedding, and a
// YAML-file-backed store with live reload for deployments that edit their
// agent roster while running.
package directory
