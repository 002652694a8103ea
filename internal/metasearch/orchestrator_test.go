// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metasearch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meshintel/paper-mcp/internal/breaker"
	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/provider"
	"github.com/meshintel/paper-mcp/internal/ratelimit"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// fakeProvider is a minimal in-memory Provider used to exercise the
// orchestrator's fan-out, scoring, and dedup wiring without any network
// access.
type fakeProvider struct {
	desc    types.ProviderDescriptor
	records []types.PaperMetadata
	err     error
}

func (f *fakeProvider) Descriptor() types.ProviderDescriptor { return f.desc }

func (f *fakeProvider) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeProvider) Health(ctx context.Context) error { return f.err }

func (f *fakeProvider) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	return "", errors.New("not implemented")
}

func newOrchestrator(providers ...provider.Provider) *Orchestrator {
	reg := provider.NewRegistry()
	for _, p := range providers {
		reg.Register(p)
	}
	limiters := ratelimit.NewRegistry()
	breakers := breaker.NewRegistry(breaker.DefaultSettings())
	tracker := NewTracker(breakers)
	return New(reg, limiters, breakers, tracker, 0)
}

func descriptor(name string, priority int) types.ProviderDescriptor {
	return types.ProviderDescriptor{
		Name:         name,
		PriorityBase: priority,
		Capabilities: map[types.Capability]bool{types.CapMetadataOnly: true},
		RateLimit:    types.RateLimitSpec{PerSecond: 1000, Burst: 1000},
		Auth:         types.AuthNone,
	}
}

func TestOrchestratorMergesAcrossProviders(t *testing.T) {
	a := &fakeProvider{
		desc: descriptor("a", 80),
		records: []types.PaperMetadata{
			{DOI: "10.1/x", Title: "Shared Paper", Providers: []string{"a"}, Confidence: 0.5},
		},
	}
	b := &fakeProvider{
		desc: descriptor("b", 90),
		records: []types.PaperMetadata{
			{DOI: "10.1/x", Title: "Shared Paper", Providers: []string{"b"}, Confidence: 0.9, PDFURL: "https://x/p.pdf"},
			{Title: "Unique to B", ArxivID: "1111.2222", Providers: []string{"b"}, Confidence: 0.7},
		},
	}
	orch := newOrchestrator(a, b)

	results, err := orch.Search(context.Background(), types.SearchQuery{Query: "shared paper", Type: types.SearchAuto, Limit: 10})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 merged results, got %d: %+v", len(results), results)
	}

	var shared *types.PaperMetadata
	for i := range results {
		if results[i].DOI == "10.1/x" {
			shared = &results[i]
		}
	}
	if shared == nil {
		t.Fatal("expected merged DOI record present")
	}
	if len(shared.Providers) != 2 {
		t.Errorf("expected merged record to carry both providers, got %v", shared.Providers)
	}
	if shared.PDFURL != "https://x/p.pdf" {
		t.Errorf("expected PDFURL filled from higher-confidence record, got %q", shared.PDFURL)
	}
}

func TestOrchestratorAllProvidersFailed(t *testing.T) {
	a := &fakeProvider{desc: descriptor("a", 80), err: errors.New("boom")}
	b := &fakeProvider{desc: descriptor("b", 90), err: errors.New("boom")}
	orch := newOrchestrator(a, b)
	orch.RetryPolicy.MaxAttempts = 1

	_, err := orch.Search(context.Background(), types.SearchQuery{Query: "anything", Type: types.SearchAuto, Limit: 10})
	if !errs.Is(err, errs.KindAllProvidersFailed) {
		t.Fatalf("expected AllProvidersFailed, got %v", err)
	}
}

func TestOrchestratorPartialFailureStillReturnsResults(t *testing.T) {
	a := &fakeProvider{desc: descriptor("a", 80), err: errors.New("boom")}
	b := &fakeProvider{
		desc:    descriptor("b", 90),
		records: []types.PaperMetadata{{Title: "Still Found", ArxivID: "9999.0001", Providers: []string{"b"}, Confidence: 0.6}},
	}
	orch := newOrchestrator(a, b)
	orch.RetryPolicy.MaxAttempts = 1

	results, err := orch.Search(context.Background(), types.SearchQuery{Query: "still found", Type: types.SearchAuto, Limit: 10})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Still Found" {
		t.Fatalf("got %+v", results)
	}
}

func TestOrchestratorRespectsLimitAndOffset(t *testing.T) {
	a := &fakeProvider{
		desc: descriptor("a", 80),
		records: []types.PaperMetadata{
			{Title: "Paper One", ArxivID: "1", Providers: []string{"a"}, Confidence: 0.9, Year: 2021},
			{Title: "Paper Two", ArxivID: "2", Providers: []string{"a"}, Confidence: 0.8, Year: 2020},
			{Title: "Paper Three", ArxivID: "3", Providers: []string{"a"}, Confidence: 0.7, Year: 2019},
		},
	}
	orch := newOrchestrator(a)

	results, err := orch.Search(context.Background(), types.SearchQuery{Query: "paper", Type: types.SearchAuto, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result with limit=1, got %d", len(results))
	}
}

// concurrencyProbeProvider sleeps inside Search while tracking how many
// instances are running at once, so the fan-out's shared semaphore can be
// checked for a real bound rather than a per-goroutine one.
type concurrencyProbeProvider struct {
	desc     types.ProviderDescriptor
	current  *int32
	observed *int32
}

func (p *concurrencyProbeProvider) Descriptor() types.ProviderDescriptor { return p.desc }

func (p *concurrencyProbeProvider) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	n := atomic.AddInt32(p.current, 1)
	for {
		cur := atomic.LoadInt32(p.observed)
		if n <= cur || atomic.CompareAndSwapInt32(p.observed, cur, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt32(p.current, -1)
	return nil, nil
}

func (p *concurrencyProbeProvider) Health(ctx context.Context) error { return nil }

func (p *concurrencyProbeProvider) ResolvePDF(ctx context.Context, m types.PaperMetadata) (string, error) {
	return "", errors.New("not implemented")
}

func TestOrchestratorSharedSemaphoreBoundsFleetConcurrency(t *testing.T) {
	var current, observed int32
	reg := provider.NewRegistry()
	names := []string{"a", "b", "c", "d", "e", "f"}
	for _, name := range names {
		reg.Register(&concurrencyProbeProvider{
			desc:     descriptor(name, 80),
			current:  &current,
			observed: &observed,
		})
	}
	limiters := ratelimit.NewRegistry()
	breakers := breaker.NewRegistry(breaker.DefaultSettings())
	tracker := NewTracker(breakers)
	orch := New(reg, limiters, breakers, tracker, 3)

	if _, err := orch.Search(context.Background(), types.SearchQuery{Query: "probe", Type: types.SearchAuto, Limit: 10}); err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if got := atomic.LoadInt32(&observed); got > 3 {
		t.Fatalf("observed %d providers running concurrently, want <= MaxTotal 3", got)
	}
}

func TestOrchestratorRejectsInvalidQuery(t *testing.T) {
	orch := newOrchestrator(&fakeProvider{desc: descriptor("a", 80)})
	_, err := orch.Search(context.Background(), types.SearchQuery{Query: "   ", Type: types.SearchAuto})
	if err == nil {
		t.Fatal("expected validation error for empty query")
	}
}
