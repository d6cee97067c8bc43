package core

import (
	"context"
	"sync"
)

// ResultFuture is a write-once handle used to deliver a job's eventual
// success or failure to whoever is waiting on it. It has exactly one writer
// (the session executor, or the router on an unroutable job) and exactly one
// reader; later writes are ignored.
type ResultFuture struct {
	once  sync.Once
	done  chan struct{}
	value string
	err   error
}

// NewResultFuture creates an unresolved future.
func NewResultFuture() *ResultFuture {
	return &ResultFuture{done: make(chan struct{})}
}

// Resolve delivers a success value. Only the first Resolve/Fail wins.
func (f *ResultFuture) Resolve(value string) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

// Fail delivers a failure. Only the first Resolve/Fail wins.
func (f *ResultFuture) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Await suspends the caller until the future resolves or ctx is cancelled.
func (f *ResultFuture) Await(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-f.done:
		return f.value, f.err
	}
}

// Done reports whether the future has been resolved or failed.
func (f *ResultFuture) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
