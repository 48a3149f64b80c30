package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx ends
	Wait(ctx context.Context) error
}

// PerMinute returns a limiter admitting n requests in any rolling minute.
// n <= 0 disables limiting.
func PerMinute(n int) Limiter {
	if n <= 0 {
		return Unlimited{}
	}
	return NewSlidingWindow(n, time.Minute)
}

// Unlimited admits every request
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}

	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		timeToWait := 100 * time.Millisecond
		sw.mu.Lock()
		if len(sw.requests) > 0 {
			if d := sw.windowSize - time.Since(sw.requests[0]); d > 0 {
				timeToWait = d
			}
		}
		sw.mu.Unlock()

		timer := time.NewTimer(timeToWait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}
