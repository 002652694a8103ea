// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/meshintel/paper-mcp/internal/breaker"
	"github.com/meshintel/paper-mcp/internal/cache"
	"github.com/meshintel/paper-mcp/internal/metasearch"
	"github.com/meshintel/paper-mcp/internal/provider"
	"github.com/meshintel/paper-mcp/internal/ratelimit"
	"github.com/meshintel/paper-mcp/pkg/types"
)

type fakeToolProvider struct {
	desc    types.ProviderDescriptor
	records []types.PaperMetadata
}

func (f *fakeToolProvider) Descriptor() types.ProviderDescriptor { return f.desc }
func (f *fakeToolProvider) Search(context.Context, types.SearchQuery) ([]types.PaperMetadata, error) {
	return f.records, nil
}
func (f *fakeToolProvider) Health(context.Context) error { return nil }
func (f *fakeToolProvider) ResolvePDF(context.Context, types.PaperMetadata) (string, error) {
	return "", nil
}

func newTestOrchestrator(providers ...provider.Provider) *metasearch.Orchestrator {
	reg := provider.NewRegistry()
	for _, p := range providers {
		reg.Register(p)
	}
	limiters := ratelimit.NewRegistry()
	breakers := breaker.NewRegistry(breaker.DefaultSettings())
	tracker := metasearch.NewTracker(breakers)
	return metasearch.New(reg, limiters, breakers, tracker, 0)
}

func TestSearchPapersReturnsProvidersUsed(t *testing.T) {
	p := &fakeToolProvider{
		desc: types.ProviderDescriptor{
			Name:         "arxiv",
			PriorityBase: 80,
			Capabilities: map[types.Capability]bool{types.CapMetadataOnly: true},
			RateLimit:    types.RateLimitSpec{PerSecond: 1000, Burst: 1000},
		},
		records: []types.PaperMetadata{
			{Title: "Attention Is All You Need", Providers: []string{"arxiv"}, Confidence: 0.9},
		},
	}
	tool := SearchPapers{Orchestrator: newTestOrchestrator(p)}

	raw, _ := json.Marshal(map[string]any{"query": "attention"})
	out, err := tool.Execute(context.Background(), raw)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result, ok := out.(searchPapersOutput)
	if !ok {
		t.Fatalf("unexpected output type %T", out)
	}
	if result.TotalCount != 1 || len(result.ProvidersUsed) != 1 || result.ProvidersUsed[0] != "arxiv" {
		t.Fatalf("got %+v", result)
	}
}

func TestSearchPapersRejectsEmptyQuery(t *testing.T) {
	tool := SearchPapers{Orchestrator: newTestOrchestrator()}
	raw, _ := json.Marshal(map[string]any{"query": ""})
	if _, err := tool.Execute(context.Background(), raw); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSearchPapersServesRepeatQueryFromCache(t *testing.T) {
	calls := 0
	p := &countingProvider{
		fakeToolProvider: fakeToolProvider{
			desc: types.ProviderDescriptor{
				Name:         "arxiv",
				PriorityBase: 80,
				Capabilities: map[types.Capability]bool{types.CapMetadataOnly: true},
				RateLimit:    types.RateLimitSpec{PerSecond: 1000, Burst: 1000},
			},
			records: []types.PaperMetadata{{Title: "Cached Paper", Providers: []string{"arxiv"}, Confidence: 0.9}},
		},
		calls: &calls,
	}
	tool := SearchPapers{Orchestrator: newTestOrchestrator(p), Cache: cache.New()}

	raw, _ := json.Marshal(map[string]any{"query": "cached"})
	if _, err := tool.Execute(context.Background(), raw); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if _, err := tool.Execute(context.Background(), raw); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the orchestrator to be hit once, got %d calls", calls)
	}
}

type countingProvider struct {
	fakeToolProvider
	calls *int
}

func (c *countingProvider) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	*c.calls++
	return c.fakeToolProvider.Search(ctx, q)
}
