package dispatch

import "context"

// admission is a counting permit pool bounding how many session executors may
// run for one agent at once. Blocked acquirers are served in roughly the
// order they arrived (subject to scheduler jitter), so per-agent ordering is
// best effort, not a strict guarantee.
type admission struct {
	permits chan struct{}
}

// newAdmission creates a pool with the given capacity (at least 1).
func newAdmission(capacity int) *admission {
	if capacity < 1 {
		capacity = 1
	}
	return &admission{permits: make(chan struct{}, capacity)}
}

// acquire takes one permit, suspending until one is available or ctx is
// cancelled.
func (a *admission) acquire(ctx context.Context) error {
	select {
	case a.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release returns one permit.
func (a *admission) release() { <-a.permits }

// capacity returns the pool size.
func (a *admission) capacity() int { return cap(a.permits) }

// inUse returns how many permits are currently held.
func (a *admission) inUse() int { return len(a.permits) }
