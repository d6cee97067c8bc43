// Package dispatch contains the consumer half of the pipeline: the Router
// that drains the shared job queue and the session Executor it spawns per
// job, running under per-agent admission control with bounded retry.
package dispatch
