package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window call limiter. It fails fast: an exceeded
// window rejects the call, it never queues or waits.
//
// Each Limiter owns its window, so independent instances (one per tenant,
// one per provider) never interact.
type Limiter struct {
	cfg   Config
	clock Clock

	mu    sync.Mutex
	calls []time.Time // oldest first
}

// New creates a limiter. A nil clock uses time.Now.
func New(cfg Config, clock Clock) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{cfg: cfg, clock: clock}
}

// Allow records a call if the window has room.
// Dropping expired timestamps, comparing and appending happen under one lock.
func (l *Limiter) Allow() CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.expire(now)

	result := Check(len(l.calls), l.cfg)
	if result.Exceeded || !l.cfg.HasLimit() {
		return result
	}
	l.calls = append(l.calls, now)
	return result
}

// Snapshot returns the number of calls currently inside the window.
func (l *Limiter) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expire(l.clock())
	return len(l.calls)
}

// expire drops timestamps older than the window. Caller holds mu.
func (l *Limiter) expire(now time.Time) {
	windowStart := now.Add(-l.cfg.window())
	i := 0
	for i < len(l.calls) && l.calls[i].Before(windowStart) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}
