// Package retry provides the backoff policy and clock abstraction used by
// the SDK when repeating failed requests.
package retry

import (
	"math/rand"
	"time"
)

// Policy computes the delay to wait before a retry attempt. Attempts are
// numbered from 1 (the first retry after the initial failure).
type Policy interface {
	// Delay returns the backoff delay before the given attempt
	Delay(attempt int) time.Duration
}

// Exponential is a capped exponential backoff policy with jitter. Delay is a
// pure function of the attempt number: jitter is derived from the seed and
// the attempt, so a policy built with a fixed seed yields reproducible
// delays.
type Exponential struct {
	base     time.Duration
	maxDelay time.Duration
	jitter   float64
	seed     int64
}

// NewExponential returns an Exponential policy. base is the delay before the
// first retry, maxDelay caps the growth, and jitter is the fraction of the
// delay randomized downward (0 disables jitter, 1 allows the full range).
func NewExponential(base, maxDelay time.Duration, jitter float64, seed int64) *Exponential {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if maxDelay < base {
		maxDelay = base
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return &Exponential{base: base, maxDelay: maxDelay, jitter: jitter, seed: seed}
}

// Delay returns base doubled per attempt, capped at maxDelay, jittered
// uniformly within [delay*(1-jitter), delay].
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := e.base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= e.maxDelay || d <= 0 {
			d = e.maxDelay
			break
		}
	}
	if d > e.maxDelay {
		d = e.maxDelay
	}
	if e.jitter > 0 {
		rng := rand.New(rand.NewSource(e.seed + int64(attempt)))
		d -= time.Duration(rng.Float64() * e.jitter * float64(d))
	}
	return d
}

type fixed time.Duration

func (f fixed) Delay(int) time.Duration { return time.Duration(f) }

// Fixed returns a policy that waits the same delay before every attempt.
func Fixed(d time.Duration) Policy {
	if d < 0 {
		d = 0
	}
	return fixed(d)
}

// None returns a policy with no delay between attempts. Intended for tests.
func None() Policy { return fixed(0) }

// Ensure implementations satisfy the interface
var (
	_ Policy = (*Exponential)(nil)
	_ Policy = fixed(0)
)
