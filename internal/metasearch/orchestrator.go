// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metasearch

import (
	"context"
	"sync"
	"time"

	"github.com/meshintel/paper-mcp/internal/breaker"
	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/provider"
	"github.com/meshintel/paper-mcp/internal/ratelimit"
	"github.com/meshintel/paper-mcp/internal/retry"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// maxFanout bounds how many providers a single query is routed to, per
// spec §4.6.1's provider-selection step ("route to the top-scoring
// providers, not the whole registry").
const maxFanout = 6

// Orchestrator is the meta-search entrypoint (C6): it selects providers by
// dynamic score, fans a query out to them under adaptive concurrency,
// merges results through the three-tier dedup cascade, and returns them in
// composite-score order. It generalizes a single-function, channel-fan-out
// search into a registry-driven, resilience-wrapped pipeline.
type Orchestrator struct {
	Registry    *provider.Registry
	Limiters    *ratelimit.Registry
	Breakers    *breaker.Registry
	Tracker     *Tracker
	RetryPolicy retry.Policy
	Concurrency ConcurrencyConfig
}

// New wires the meta-search pipeline from its already-constructed
// components. maxConcurrent overrides the default fleet-wide concurrency
// cap (spec §6.4 request.max_concurrent); a non-positive value keeps the
// default.
func New(reg *provider.Registry, limiters *ratelimit.Registry, breakers *breaker.Registry, tracker *Tracker, maxConcurrent int) *Orchestrator {
	cfg := DefaultConcurrencyConfig()
	if maxConcurrent > 0 {
		cfg.MaxTotal = maxConcurrent
	}
	return &Orchestrator{
		Registry:    reg,
		Limiters:    limiters,
		Breakers:    breakers,
		Tracker:     tracker,
		RetryPolicy: retry.DefaultPolicy(),
		Concurrency: cfg,
	}
}

// providerResult is one adapter's outcome, collected off the fan-out
// channel before merging.
type providerResult struct {
	name    string
	records []types.PaperMetadata
	err     error
}

// Search executes q against the federation and returns merged, ordered
// results per spec §4.6. It returns an *errs.Error of kind
// AllProvidersFailed if every selected provider's call failed.
func (o *Orchestrator) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	normalized, err := q.Normalize()
	if err != nil {
		return nil, errs.New(errs.KindValidation, err)
	}
	q = normalized

	candidates := o.selectProviders(q)
	if len(candidates) == 0 {
		return nil, errs.New(errs.KindNoResults, nil)
	}

	names := make([]string, len(candidates))
	priorities := make(map[string]int, len(candidates))
	for i, p := range candidates {
		d := p.Descriptor()
		names[i] = d.Name
		priorities[d.Name] = d.PriorityBase
	}
	providerShares := shares(names, o.Tracker, o.Concurrency)

	// One semaphore shared by every provider goroutine in this fan-out:
	// each draws its own shares() weight from the same capacity-MaxTotal
	// pool, so the fleet-wide in-flight count is actually bounded.
	sem := newWeightedSemaphore(o.Concurrency.MaxTotal)

	resultsCh := make(chan providerResult, len(candidates))
	var wg sync.WaitGroup
	for _, p := range candidates {
		p := p
		name := p.Descriptor().Name
		weight := providerShares[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem.acquire(weight)
			defer sem.release(weight)
			resultsCh <- o.callProvider(ctx, p, q)
		}()
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var all []types.PaperMetadata
	succeeded := 0
	for res := range resultsCh {
		if res.err != nil {
			continue
		}
		succeeded++
		all = append(all, res.records...)
	}

	if succeeded == 0 {
		return nil, errs.New(errs.KindAllProvidersFailed, nil)
	}

	merged, _ := deduplicate(all)
	orderResults(merged, priorities)

	return paginate(merged, q.Limit, q.Offset), nil
}

// selectProviders filters the registry to providers capable of handling
// q.Type, scores them per spec §4.6.1, and returns at most maxFanout of
// the highest scorers in descending-score order.
func (o *Orchestrator) selectProviders(q types.SearchQuery) []provider.Provider {
	var pool []provider.Provider
	switch q.Type {
	case types.SearchDOI:
		pool = o.Registry.WithCapability(types.CapDOILookup)
	case types.SearchAuthor, types.SearchAuthorYear:
		pool = o.Registry.WithCapability(types.CapAuthorSearch)
	default:
		pool = o.Registry.All()
	}
	if len(pool) == 0 {
		pool = o.Registry.All()
	}

	names := make([]string, len(pool))
	for i, p := range pool {
		names[i] = p.Descriptor().Name
	}
	median := o.Tracker.medianLatency(names)

	byName := make(map[string]provider.Provider, len(pool))
	scored := make([]scoredProvider, 0, len(pool))
	for _, p := range pool {
		d := p.Descriptor()
		stats := o.Tracker.Snapshot(d.Name)
		if stats.CircuitState == types.CircuitOpen {
			continue
		}
		byName[d.Name] = p
		scored = append(scored, scoredProvider{name: d.Name, score: selectionScore(d, q, stats, median)})
	}

	scored = topK(scored, maxFanout)
	out := make([]provider.Provider, 0, len(scored))
	for _, s := range scored {
		out = append(out, byName[s.name])
	}
	return out
}

// callProvider runs one provider's search under its rate limiter, circuit
// breaker, and retry policy, recording the outcome in the tracker.
func (o *Orchestrator) callProvider(ctx context.Context, p provider.Provider, q types.SearchQuery) providerResult {
	name := p.Descriptor().Name
	start := time.Now()

	var records []types.PaperMetadata
	op := func(ctx context.Context) error {
		if err := o.Limiters.Acquire(ctx, name); err != nil {
			return err
		}
		res, err := o.Breakers.Execute(ctx, name, func(ctx context.Context) (any, error) {
			return p.Search(ctx, q)
		})
		if err != nil {
			return err
		}
		records = res.([]types.PaperMetadata)
		return nil
	}

	err := retry.Do(ctx, o.RetryPolicy, name, op)
	elapsed := time.Since(start)
	if err != nil {
		o.Tracker.RecordFailure(name, elapsed, string(classifyKind(err)))
		return providerResult{name: name, err: err}
	}
	o.Tracker.RecordSuccess(name, elapsed)
	return providerResult{name: name, records: records}
}

// classifyKind extracts the taxonomy Kind from err for stats recording;
// an error that is not already an *errs.Error is labelled by errs.Classify
// (Timeout, Cancelled, or NetworkError).
func classifyKind(err error) errs.Kind {
	if e := errs.Classify("", err); e != nil {
		return e.Kind
	}
	return errs.KindProvider
}

// paginate applies offset/limit to an already-ordered result set.
func paginate(results []types.PaperMetadata, limit, offset int) []types.PaperMetadata {
	if offset >= len(results) {
		return []types.PaperMetadata{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
