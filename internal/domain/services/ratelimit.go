package services

import (
	"context"
	"time"
)

// RateLimiter serializes calls to an external service with a fixed
// inter-call delay, plus a single longer pause after a rate-limit signal.
// It is held and passed by the pipeline, never global state.
type RateLimiter struct {
	interval time.Duration
	pause    time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter with the given inter-call interval and
// rate-limited pause.
func NewRateLimiter(interval, pause time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		pause:    pause,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// WaitForSlot blocks until the inter-call delay since the previous slot has
// elapsed, then claims the slot. Returns early only on context cancellation.
func (r *RateLimiter) WaitForSlot(ctx context.Context) error {
	if !r.last.IsZero() {
		if wait := r.interval - r.now().Sub(r.last); wait > 0 {
			if err := r.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	r.last = r.now()
	return nil
}

// OnRateLimited blocks for the fixed longer pause the backend's rate-limit
// signal demands. Not incremental: one pause, then the caller retries once.
func (r *RateLimiter) OnRateLimited(ctx context.Context) error {
	if err := r.sleep(ctx, r.pause); err != nil {
		return err
	}
	r.last = r.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
