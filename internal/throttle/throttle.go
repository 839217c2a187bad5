// Package throttle spaces out sequential calls to a rate-limited remote.
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle blocks until the next call may proceed.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Interval lets the first call through immediately and spaces every later
// call at least d apart.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates an interval throttle. A non-positive d never waits.
func NewInterval(d time.Duration) Throttle {
	if d <= 0 {
		return None()
	}
	return &Interval{limiter: rate.NewLimiter(rate.Every(d), 1)}
}

// Wait blocks until the interval has elapsed or ctx is done.
func (i *Interval) Wait(ctx context.Context) error {
	return i.limiter.Wait(ctx)
}

type none struct{}

// None returns a throttle that never waits.
func None() Throttle {
	return none{}
}

func (none) Wait(ctx context.Context) error {
	return ctx.Err()
}
