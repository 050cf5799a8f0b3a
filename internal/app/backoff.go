package app

import (
	"context"
	"math/rand"
	"time"
)

// Default backoff configuration values.
const (
	DefaultBackoffInitial = 10 * time.Millisecond
	DefaultBackoffMax     = 500 * time.Millisecond
)

// Backoff is exponential backoff with ±20% jitter.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff creates a backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Next returns the jittered delay for this attempt and doubles the base.
func (b *Backoff) Next() time.Duration {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Wait sleeps for the next delay or until ctx is done.
func (b *Backoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reset resets the backoff to the initial duration.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the current base delay.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Retry calls fn until it reports done, fn fails, or ctx ends. It waits with
// b between attempts.
func Retry(ctx context.Context, b *Backoff, fn func() (done bool, err error)) error {
	for {
		done, err := fn()
		if err != nil || done {
			return err
		}
		if err := b.Wait(ctx); err != nil {
			return err
		}
	}
}
