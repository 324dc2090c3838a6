// Package ratelimit implements the sliding-window limiter applied to
// generative backend calls. Callers block until a slot frees rather than
// being rejected (cooperative backpressure).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"propertygpt/internal/common/metrics"
)

// SlidingWindow caps the number of requests admitted within a rolling window.
// The timestamp slice is guarded by a mutex; the mutex is never held while
// waiting, so unrelated requests are not blocked.
type SlidingWindow struct {
	mu       sync.Mutex
	stamps   []time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	newTimer func(d time.Duration) <-chan time.Time
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock injects the time source, used by tests.
func WithClock(now func() time.Time, timer func(d time.Duration) <-chan time.Time) Option {
	return func(l *SlidingWindow) {
		l.now = now
		l.newTimer = timer
	}
}

// NewSlidingWindow creates a limiter admitting maxRequests per window.
func NewSlidingWindow(maxRequests int, window time.Duration, opts ...Option) *SlidingWindow {
	l := &SlidingWindow{
		max:    maxRequests,
		window: window,
		now:    time.Now,
		newTimer: func(d time.Duration) <-chan time.Time {
			return time.After(d)
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait blocks until a request slot is available or the context is cancelled.
// When the window is full it sleeps until the oldest request exits the
// window, then re-checks.
func (l *SlidingWindow) Wait(ctx context.Context) error {
	waited := false
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}
		if !waited {
			metrics.RateLimitWaits.Inc()
			waited = true
		}

		select {
		case <-l.newTimer(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tryAcquire records the request if a slot is free. Otherwise it returns the
// duration until the oldest in-window request expires.
func (l *SlidingWindow) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.stamps[:0]
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.stamps = kept

	if len(l.stamps) < l.max {
		l.stamps = append(l.stamps, now)
		return 0, true
	}

	return l.window - now.Sub(l.stamps[0]), false
}

// InWindow reports the number of requests currently inside the window.
func (l *SlidingWindow) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	n := 0
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
