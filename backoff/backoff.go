// Package backoff provides pluggable retry delay strategies for job
// execution and error recovery. All strategies are safe for concurrent
// use (they are stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Fixed
// ──────────────────────────────────────────────────

// Fixed always returns the same delay regardless of attempt number.
type Fixed struct {
	Interval time.Duration
}

// NewFixed creates a fixed backoff strategy.
func NewFixed(interval time.Duration) *Fixed {
	return &Fixed{Interval: interval}
}

// Delay returns the fixed interval.
func (f *Fixed) Delay(_ int) time.Duration {
	return f.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear increases the delay linearly with the attempt number.
// Delay = min(Base * attempt, Max).
type Linear struct {
	Base time.Duration
	Max  time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(base, maxDelay time.Duration) *Linear {
	return &Linear{Base: base, Max: maxDelay}
}

// Delay returns Base * attempt, capped at Max.
func (l *Linear) Delay(attempt int) time.Duration {
	d := l.Base * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential grows the delay geometrically with the attempt number.
// Delay = min(Base * Multiplier^(attempt-1), Max).
type Exponential struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
}

// NewExponential creates an exponential backoff strategy. A multiplier
// of zero or less falls back to 2.
func NewExponential(base time.Duration, multiplier float64, maxDelay time.Duration) *Exponential {
	if multiplier <= 0 {
		multiplier = 2
	}
	return &Exponential{Base: base, Multiplier: multiplier, Max: maxDelay}
}

// Delay returns Base * Multiplier^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	mult := e.Multiplier
	if mult <= 0 {
		mult = 2
	}
	d := time.Duration(float64(e.Base) * math.Pow(mult, float64(attempt-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Jitter
// ──────────────────────────────────────────────────

// Jitter perturbs another strategy's delay by up to ±Fraction of its
// value. This decorrelates simultaneous retries so they do not land on
// the remote service as a synchronized storm.
type Jitter struct {
	Inner    Strategy
	Fraction float64
}

// NewJitter wraps inner with a ±fraction perturbation. A fraction of
// zero or less falls back to 0.1 (±10%).
func NewJitter(inner Strategy, fraction float64) *Jitter {
	if fraction <= 0 {
		fraction = 0.1
	}
	return &Jitter{Inner: inner, Fraction: fraction}
}

// Delay returns the inner delay shifted by a random amount in
// [-Fraction, +Fraction] of its value, never below zero.
func (j *Jitter) Delay(attempt int) time.Duration {
	base := float64(j.Inner.Delay(attempt))
	frac := j.Fraction
	if frac <= 0 {
		frac = 0.1
	}
	// rand.Float64 is non-crypto by intent; jitter needs no more.
	shift := (rand.Float64()*2 - 1) * frac * base
	d := time.Duration(base + shift)
	if d < 0 {
		return 0
	}
	return d
}

// ──────────────────────────────────────────────────
// Defaults
// ──────────────────────────────────────────────────

// DefaultQueueStrategy returns the backoff used by the queue engine's
// mechanical retry path: exponential, 1s base, doubling, capped at 1m,
// no jitter. Jitter is the recovery layer's concern.
func DefaultQueueStrategy() Strategy {
	return NewExponential(time.Second, 2, time.Minute)
}
