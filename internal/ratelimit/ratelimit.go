package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a sliding-window counter per caller identity. Requests
// over quota are rejected immediately, never queued or delayed. It is
// an injected state object with its own lifecycle, not a process-wide
// singleton.
type Limiter struct {
	max    int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// New creates a limiter allowing max calls per window per key.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		panic("ratelimit: max must be positive")
	}
	if window <= 0 {
		panic("ratelimit: window must be positive")
	}
	return &Limiter{
		max:    max,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records one call attempt for key and reports whether it fits
// the window.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.hits[key] = recent
		return Decision{
			Allowed:    false,
			Limit:      l.max,
			Remaining:  0,
			RetryAfter: recent[0].Sub(cutoff),
		}
	}

	recent = append(recent, now)
	l.hits[key] = recent
	return Decision{
		Allowed:   true,
		Limit:     l.max,
		Remaining: l.max - len(recent),
	}
}

// Reset clears the window for one key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, key)
}
