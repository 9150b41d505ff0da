// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"context"
	"time"
)

// Throttle enforces a minimum gap between the end of one request and the
// start of the next. It is meant for a single sequential caller and is not
// safe for concurrent use.
type Throttle struct {
	Delay time.Duration

	last time.Time
	now  func() time.Time
}

// NewThrottle returns a throttle that has not seen a request yet, so the
// first Wait returns immediately.
func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{Delay: delay, now: time.Now}
}

// Wait blocks until Delay has elapsed since the last Mark, or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.last.IsZero() || t.Delay <= 0 {
		return ctx.Err()
	}
	elapsed := t.clock().Sub(t.last)
	if elapsed >= t.Delay {
		return ctx.Err()
	}
	return sleepWithContext(ctx, t.Delay-elapsed)
}

// Mark records that a request has just finished.
func (t *Throttle) Mark() {
	t.last = t.clock()
}

func (t *Throttle) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
