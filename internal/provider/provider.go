// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider defines the adapter contract used by every federated
// paper source (C5) and the registry that the meta-search orchestrator
// fans requests out to. Adapters never hold a reference back to the
// orchestrator; they only know how to talk to one upstream API.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/meshintel/paper-mcp/pkg/types"
)

// Provider is the capability set every paper source implements, per
// spec §5: search, a cheap liveness probe, PDF URL resolution, and a
// static descriptor used for rate limiting and capability routing.
type Provider interface {
	// Descriptor returns this provider's static configuration: name,
	// capabilities, default rate limit, and auth requirement.
	Descriptor() types.ProviderDescriptor

	// Search queries the provider and returns matching records. q is
	// assumed already normalized (see types.SearchQuery.Normalize).
	Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error)

	// Health performs a cheap reachability probe, distinct from Search.
	// The orchestrator does not call it; its adaptive concurrency is sized
	// from the latencies of Search calls.
	Health(ctx context.Context) error

	// ResolvePDF attempts to find a downloadable PDF URL for a paper this
	// provider already knows about (via DOI, arXiv ID, or provider ID).
	// It returns an *errs.Error of kind NoPdfAvailable when the provider
	// has no full-text capability for p.
	ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error)
}

// Registry is a type-erased, name-keyed store of Providers. It has no
// knowledge of the orchestrator, rate limiter, or breaker; those wrap
// Registry.Get results at the call site.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string // insertion order, used for stable fan-out iteration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register installs p under its own descriptor name. Registering the same
// name twice replaces the previous provider but keeps its position in
// iteration order.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Descriptor().Name
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Get returns the provider registered under name, or an error if none is.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider: no provider registered under %q", name)
	}
	return p, nil
}

// All returns every registered provider in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// WithCapability returns every registered provider whose descriptor
// declares cap, in registration order.
func (r *Registry) WithCapability(cap types.Capability) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Provider
	for _, name := range r.order {
		p := r.providers[name]
		if p.Descriptor().HasCapability(cap) {
			out = append(out, p)
		}
	}
	return out
}

// Names returns every registered provider name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
