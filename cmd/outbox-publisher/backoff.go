package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// backoff tracks the wait between polls. Every wait it hands out carries up
// to jitterWindow of jitter so replicas do not poll in lockstep.
type backoff struct {
	base    time.Duration
	current time.Duration
}

func newBackoff(base time.Duration) backoff {
	return backoff{base: base, current: base}
}

// fail doubles the wait, capped at maxBackoff.
func (b *backoff) fail() time.Duration {
	b.current = nextBackoff(b.current, b.base, maxBackoff)
	return withJitter(b.current)
}

func (b *backoff) reset() time.Duration {
	b.current = b.base
	return withJitter(b.base)
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleep(ctx context.Context, d time.Duration) error {
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
