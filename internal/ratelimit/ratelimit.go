// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit implements the per-provider token bucket of spec §4.1
// on top of golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps a rate.Limiter for one provider. Acquire suspends the
// caller until a token is available; abandoning the wait (context
// cancellation) releases the reservation instead of consuming a token.
type Limiter struct {
	rl *rate.Limiter
}

// New creates a Limiter refilling at perSecond tokens/s with the given
// burst capacity.
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Acquire blocks until a token is available or ctx is done. On
// cancellation no token is consumed.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.rl.Wait(ctx)
}

// TryAcquire takes a token only if one is immediately available, without
// blocking.
func (l *Limiter) TryAcquire() bool {
	return l.rl.Allow()
}

// SetRate updates the refill rate and burst in place. Configured
// per-provider rates are applied when each limiter is registered, not
// through SetRate.
func (l *Limiter) SetRate(perSecond float64, burst int) {
	if burst < 1 {
		burst = 1
	}
	l.rl.SetLimit(rate.Limit(perSecond))
	l.rl.SetBurst(burst)
}

// Registry owns one Limiter per provider name.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// Register installs (or replaces) the limiter for provider.
func (r *Registry) Register(provider string, perSecond float64, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[provider] = New(perSecond, burst)
}

// For returns the limiter for provider, or nil if none is registered.
func (r *Registry) For(provider string) *Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[provider]
}

// Acquire is a convenience that looks up provider's limiter and waits on
// it; providers with no registered limiter proceed unthrottled.
func (r *Registry) Acquire(ctx context.Context, provider string) error {
	l := r.For(provider)
	if l == nil {
		return nil
	}
	return l.Acquire(ctx)
}

// windowBudget returns the maximum number of tokens a bucket with the
// given burst and refill rate can issue across a window of length t,
// per the spec §8 "rate limit respect" property: B + ceil(R*t).
func windowBudget(burst int, perSecond float64, t time.Duration) int {
	seconds := t.Seconds()
	refill := perSecond * seconds
	whole := int(refill)
	if float64(whole) < refill {
		whole++
	}
	return burst + whole
}
