// Package retry implements a standalone bounded-retry utility with
// exponential backoff and jitter. It has no dependency on the cache and
// is not wired into the cache facade: spec.md's Open Question (b)
// resolves "attach retry to cache operations" as a caller concern.
package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
	"time"
)

// Source supplies the jitter perturbation. Float64 must return a value
// in [0, 1). A pluggable source allows deterministic tests; Secure()
// returns a cryptographically random source for production use that
// wants to avoid global math/rand state.
type Source interface {
	Float64() float64
}

// mathRandSource wraps a *math/rand.Rand.
type mathRandSource struct{ r *mrand.Rand }

func (s mathRandSource) Float64() float64 { return s.r.Float64() }

// NewSource returns a deterministic Source seeded with seed, suitable for
// reproducible tests.
func NewSource(seed int64) Source {
	return mathRandSource{r: mrand.New(mrand.NewSource(seed))}
}

// secureSource draws from crypto/rand.
type secureSource struct{}

func (secureSource) Float64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is a fatal environment problem; fall back to
		// the maximum jitter perturbation rather than panicking mid-retry.
		return 0.999999
	}
	// Use the top 53 bits so the result is uniform in [0,1) like math/rand.
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}

// Secure returns a Source backed by crypto/rand.
func Secure() Source { return secureSource{} }

// Policy executes an operation with bounded attempts, exponential
// backoff, and multiplicative jitter.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	// Non-positive is treated as 3 (spec.md's default).
	MaxAttempts int
	// InitialDelay is the backoff before the second attempt.
	InitialDelay time.Duration
	// MaxDelay clamps the computed backoff. Zero disables clamping.
	MaxDelay time.Duration
	// Multiplier scales the delay after each failed attempt. Non-positive
	// is treated as 2.0.
	Multiplier float64
	// Jitter is in [0,1]; the applied delay is perturbed by a factor
	// uniformly drawn from [1-Jitter, 1+Jitter].
	Jitter float64
	// Retryable decides whether a given error should be retried. A nil
	// Retryable treats every non-nil error as retryable.
	Retryable func(error) bool
	// Source supplies jitter randomness. Nil uses a process-global
	// math/rand source.
	Source Source
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return 3
	}
	return p.MaxAttempts
}

func (p Policy) multiplier() float64 {
	if p.Multiplier <= 0 {
		return 2.0
	}
	return p.Multiplier
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return err != nil
	}
	return p.Retryable(err)
}

func (p Policy) source() Source {
	if p.Source == nil {
		return globalRandSource{}
	}
	return p.Source
}

// globalRandSource draws from math/rand's process-global source.
type globalRandSource struct{}

func (globalRandSource) Float64() float64 { return mrand.Float64() }

// Do runs op until it succeeds, MaxAttempts is exhausted, Retryable
// rejects the error, or ctx is cancelled (which aborts immediately,
// returning ctx.Err()). It returns the last error encountered, or nil on
// success.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.maxAttempts()
	mult := p.multiplier()
	src := p.source()

	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := p.jittered(delay, src)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * mult)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}

func (p Policy) jittered(d time.Duration, src Source) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 0 {
		return 0
	}
	j := p.Jitter
	if j < 0 {
		j = 0
	}
	if j > 1 {
		j = 1
	}
	if j == 0 {
		return d
	}
	factor := (1 - j) + src.Float64()*(2*j)
	scaled := float64(d) * factor
	if scaled < 0 {
		scaled = 0
	}
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return d
	}
	return time.Duration(scaled)
}
