// Package ratelimit implements a sliding-window request limiter keyed
// by caller identifier.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most maxRequests per identifier within a sliding
// window. Denied requests are not recorded, so a steady stream of
// rejected calls cannot extend a caller's lockout.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time
	now         func() time.Time
}

// Option configures the limiter
type Option func(*Limiter)

// WithClock sets the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter allowing maxRequests per window
func New(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether id may proceed, recording the request when it may.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(id, now)
	if len(recent) >= l.maxRequests {
		l.requests[id] = recent
		return false
	}
	l.requests[id] = append(recent, now)
	return true
}

// Remaining returns how many requests id has left in the current window.
func (l *Limiter) Remaining(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(id, l.now())
	l.requests[id] = recent
	if n := l.maxRequests - len(recent); n > 0 {
		return n
	}
	return 0
}

// RetryAfter returns how long id must wait before a request can succeed.
// Zero means a request would be allowed now.
func (l *Limiter) RetryAfter(id string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(id, now)
	l.requests[id] = recent
	if len(recent) < l.maxRequests {
		return 0
	}
	// oldest recorded request ages out first
	return recent[0].Add(l.window).Sub(now)
}

// Reset clears the recorded history for id.
func (l *Limiter) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, id)
}

// Limit returns the configured request budget per window.
func (l *Limiter) Limit() int {
	return l.maxRequests
}

// Window returns the configured sliding window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// prune drops timestamps older than the window. Caller holds the lock.
func (l *Limiter) prune(id string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	history := l.requests[id]
	recent := history[:0:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	return recent
}
