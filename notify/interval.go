// Package notify provides the inter-cycle waiting strategies for the
// reconciliation runner: a fixed-interval sleeper and a blocking receive on an
// external scan-event channel. One strategy is selected at startup and never
// changed while running.
package notify

import (
	"context"
	"time"
)

// IntervalWaiter targets a fixed cycle period. The wait is the period minus
// the elapsed cycle time, floored at MinWait so a slow cycle still yields
// before the next one starts.
type IntervalWaiter struct {
	Interval time.Duration
	MinWait  time.Duration
}

// NewIntervalWaiter creates an interval waiter.
func NewIntervalWaiter(interval, minWait time.Duration) *IntervalWaiter {
	return &IntervalWaiter{Interval: interval, MinWait: minWait}
}

// Wait blocks until the remainder of the cycle period has passed or ctx is
// cancelled.
func (w *IntervalWaiter) Wait(ctx context.Context, elapsed time.Duration) error {
	wait := w.Interval - elapsed
	if wait < w.MinWait {
		wait = w.MinWait
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
