// Package keyedlock provides exclusive, key-scoped critical sections with a
// bounded wait.
//
// The scan path serializes all work for one subject (read last event, decide
// next kind, append) while scans for different subjects proceed independently.
// This is the in-process equivalent of a per-row SELECT ... FOR UPDATE: same
// external semantics, no database round trip.
package keyedlock

import (
	"context"
	"sync"
	"time"

	dErrors "taptrail/pkg/domain-errors"
)

// DefaultWait bounds how long Acquire blocks before giving up. Callers see a
// retryable timeout error instead of a deadlock.
const DefaultWait = 3 * time.Second

// Locker hands out exclusive per-key guards. Keys that are not currently held
// or waited on consume no memory.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
	wait    time.Duration
}

type entry struct {
	// ch is a channel-based mutex: holding the token means holding the lock.
	// A channel is used instead of sync.Mutex so waiters can abandon the
	// wait on timeout or context cancellation.
	ch   chan struct{}
	refs int
}

// Option configures a Locker.
type Option func(*Locker)

// WithWait overrides the bounded wait applied to every Acquire call.
func WithWait(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.wait = d
		}
	}
}

// New constructs a Locker.
func New(opts ...Option) *Locker {
	l := &Locker{
		entries: make(map[string]*entry),
		wait:    DefaultWait,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the key's lock is held, the bounded wait elapses, or
// ctx is cancelled. On success it returns a release function that must be
// called exactly once. On failure the lock is not held and no cleanup is
// needed; the error is retryable (CodeTimeout).
func (l *Locker) Acquire(ctx context.Context, key string) (release func(), err error) {
	e := l.ref(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			l.unref(key, e)
		}, nil
	case <-timer.C:
		l.unref(key, e)
		return nil, dErrors.New(dErrors.CodeTimeout, "operation is busy, please retry")
	case <-ctx.Done():
		l.unref(key, e)
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "operation cancelled while waiting")
	}
}

func (l *Locker) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
