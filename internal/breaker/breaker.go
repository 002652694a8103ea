// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package breaker implements the per-provider circuit breaker of spec §4.2
// on top of github.com/sony/gobreaker/v2. Each provider gets its own
// three-state breaker (Closed, Open, HalfOpen) so one misbehaving source
// cannot stall the rest of a federated search.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/meshintel/paper-mcp/internal/errs"
)

// Settings configures one provider's breaker.
type Settings struct {
	// FailureThreshold is the minimum number of requests counted since the
	// breaker last changed state before the failure ratio is evaluated.
	FailureThreshold uint32
	// FailureRatio trips the breaker to Open once the failure ratio over
	// those counted requests reaches this value. The counts are cumulative
	// while Closed; there is no sliding window of recent calls.
	FailureRatio float64
	// OpenTimeout is how long the breaker stays Open before moving to
	// HalfOpen and letting up to HalfOpenMaxProbes probe requests through.
	OpenTimeout time.Duration
	// HalfOpenMaxProbes bounds how many requests are allowed through while
	// HalfOpen before the breaker decides whether to close or re-open.
	HalfOpenMaxProbes uint32
}

// DefaultSettings mirrors spec §6.4 circuit breaker defaults.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold:  5,
		FailureRatio:      0.5,
		OpenTimeout:       30 * time.Second,
		HalfOpenMaxProbes: 3,
	}
}

// Breaker wraps a gobreaker.CircuitBreaker[T] for a single provider. T is
// any; callers type-assert the result of Execute themselves, so Breaker
// can sit in a registry keyed by provider name without generic leakage.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// New creates a Breaker named name with the given Settings.
func New(name string, s Settings) *Breaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenMaxProbes,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= s.FailureThreshold &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		// Only retriable failures and timeouts count against the breaker;
		// a provider steadily returning a non-retriable ProviderError (a
		// 4xx, say) must not trip it (spec §7: "non-retriable errors leave
		// its state unchanged").
		IsSuccessful: func(err error) bool {
			return err == nil || !errs.Classify(name, err).Retriable
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](st)}
}

// Execute runs fn through the breaker and translates gobreaker's own
// sentinels into the taxonomy: if the breaker is Open, or HalfOpen with its
// probe slot exhausted, fn is never called and the result is a
// non-retriable errs.KindCircuitOpen instead of gobreaker.ErrOpenState/
// ErrTooManyRequests, so callers fail fast rather than retrying a breaker
// that is already rejecting everything.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errs.New(errs.KindCircuitOpen, err)
	}
	return res, err
}

// State reports the breaker's current state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// IsOpen reports whether the breaker is currently rejecting requests
// outright (Open, not HalfOpen).
func (b *Breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Registry owns one Breaker per provider name, created lazily with a
// shared default Settings unless overridden via RegisterWithSettings.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	defaults Settings
}

// NewRegistry returns a Registry using defaults for any provider that has
// not been explicitly registered.
func NewRegistry(defaults Settings) *Registry {
	return &Registry{breakers: make(map[string]*Breaker), defaults: defaults}
}

// RegisterWithSettings installs a breaker for provider using custom
// Settings, overriding the registry default for that provider only.
func (r *Registry) RegisterWithSettings(provider string, s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[provider] = New(provider, s)
}

// For returns provider's Breaker, creating one from the registry defaults
// on first use.
func (r *Registry) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		b = New(provider, r.defaults)
		r.breakers[provider] = b
	}
	return b
}

// Execute is a convenience wrapping ctx-aware calls: fn is expected to
// respect ctx's deadline itself (the breaker does not impose one).
func (r *Registry) Execute(ctx context.Context, provider string, fn func(ctx context.Context) (any, error)) (any, error) {
	b := r.For(provider)
	return b.Execute(func() (any, error) {
		return fn(ctx)
	})
}

// Snapshot describes a provider breaker's observable state for the
// resolve_pdf / search_papers diagnostics surfaced by spec §5.
type Snapshot struct {
	Provider string
	State    gobreaker.State
	Counts   gobreaker.Counts
}

// Snapshot returns the current state and counters for provider without
// creating a breaker if one does not already exist.
func (r *Registry) Snapshot(provider string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{Provider: provider, State: b.cb.State(), Counts: b.cb.Counts()}, true
}
