// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metasearch implements the meta-search orchestrator (C6): provider
// selection by dynamic score, adaptive-concurrency fan-out, three-tier
// deduplication, and composite-score ordering, generalizing a single-file
// fan-out-and-merge search into a registry-driven, resilience-wrapped
// pipeline.
package metasearch

import (
	"sync"
	"time"

	"github.com/meshintel/paper-mcp/internal/breaker"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// emaAlpha is the exponential-moving-average smoothing factor for response
// time, per spec §3.
const emaAlpha = 0.3

// statsWindow bounds the sliding window used for recent success/failure
// counts.
const statsWindow = time.Minute

// providerStats is the mutable per-provider runtime state the Tracker owns.
// Hot fields (counters) are guarded by a short-held lock, matching the
// spec §3 lifecycle note ("a short-held lock for EMA update").
type providerStats struct {
	mu              sync.Mutex
	avgResponseTime time.Duration
	recentOutcomes  []outcome
	lastErrorCat    string
	lastProbeAt     time.Time
}

type outcome struct {
	at      time.Time
	success bool
}

// Tracker owns ProviderStats for every provider the orchestrator has
// observed, plus a reference to the breaker registry so Snapshot can
// report the live circuit state alongside latency/error counters.
type Tracker struct {
	mu       sync.RWMutex
	stats    map[string]*providerStats
	breakers *breaker.Registry
}

// NewTracker returns a Tracker reporting circuit state from breakers.
func NewTracker(breakers *breaker.Registry) *Tracker {
	return &Tracker{stats: make(map[string]*providerStats), breakers: breakers}
}

func (t *Tracker) entry(provider string) *providerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stats[provider]
	if !ok {
		s = &providerStats{}
		t.stats[provider] = s
	}
	return s
}

// RecordSuccess updates provider's EWMA response time and success window.
func (t *Tracker) RecordSuccess(provider string, elapsed time.Duration) {
	s := t.entry(provider)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateEWMA(elapsed)
	s.record(outcome{at: time.Now(), success: true})
}

// RecordFailure updates provider's failure window and last error category.
func (t *Tracker) RecordFailure(provider string, elapsed time.Duration, errorCategory string) {
	s := t.entry(provider)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateEWMA(elapsed)
	s.record(outcome{at: time.Now(), success: false})
	s.lastErrorCat = errorCategory
}

// RecordProbe stamps the last health-probe time for provider.
func (t *Tracker) RecordProbe(provider string, at time.Time) {
	s := t.entry(provider)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastProbeAt = at
}

func (s *providerStats) updateEWMA(elapsed time.Duration) {
	if s.avgResponseTime == 0 {
		s.avgResponseTime = elapsed
		return
	}
	s.avgResponseTime = time.Duration(emaAlpha*float64(elapsed) + (1-emaAlpha)*float64(s.avgResponseTime))
}

func (s *providerStats) record(o outcome) {
	cutoff := time.Now().Add(-statsWindow)
	kept := s.recentOutcomes[:0]
	for _, existing := range s.recentOutcomes {
		if existing.at.After(cutoff) {
			kept = append(kept, existing)
		}
	}
	s.recentOutcomes = append(kept, o)
}

func (s *providerStats) counts() (successes, failures int) {
	cutoff := time.Now().Add(-statsWindow)
	for _, o := range s.recentOutcomes {
		if o.at.Before(cutoff) {
			continue
		}
		if o.success {
			successes++
		} else {
			failures++
		}
	}
	return
}

// Snapshot returns the read-only ProviderStats view for provider, per spec
// §3's description of ProviderStats as "the read-only snapshot handed to
// callers".
func (t *Tracker) Snapshot(provider string) types.ProviderStats {
	s := t.entry(provider)
	s.mu.Lock()
	successes, failures := s.counts()
	snap := types.ProviderStats{
		Name:              provider,
		AvgResponseTime:   s.avgResponseTime,
		RecentSuccesses:   successes,
		RecentFailures:    failures,
		LastErrorCategory: s.lastErrorCat,
		LastProbeAt:       s.lastProbeAt,
	}
	s.mu.Unlock()

	snap.CircuitState = types.CircuitClosed
	if t.breakers != nil {
		if bsnap, ok := t.breakers.Snapshot(provider); ok {
			switch bsnap.State.String() {
			case "open":
				snap.CircuitState = types.CircuitOpen
			case "half-open":
				snap.CircuitState = types.CircuitHalfOpen
			default:
				snap.CircuitState = types.CircuitClosed
			}
		}
	}
	return snap
}

// medianLatency returns the median of the observed EWMA latencies across
// names, used by the adaptive-concurrency semaphore sizing. Providers with
// no observations are excluded.
func (t *Tracker) medianLatency(names []string) time.Duration {
	var samples []time.Duration
	for _, name := range names {
		s := t.entry(name)
		s.mu.Lock()
		if s.avgResponseTime > 0 {
			samples = append(samples, s.avgResponseTime)
		}
		s.mu.Unlock()
	}
	if len(samples) == 0 {
		return 0
	}
	// Simple insertion sort; provider counts are small (<=~20).
	for i := 1; i < len(samples); i++ {
		for j := i; j > 0 && samples[j-1] > samples[j]; j-- {
			samples[j-1], samples[j] = samples[j], samples[j-1]
		}
	}
	return samples[len(samples)/2]
}
