// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meshintel/paper-mcp/internal/cache"
	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/metasearch"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// SearchPapers wraps the meta-search orchestrator as the search_papers
// tool: `search_papers(query, type, limit, offset) -> {papers[],
// total_count, providers_used[]}`. Cache is optional; a nil Cache simply
// skips the advisory lookup, per spec §3's "never authoritative, always
// bypassable" contract.
type SearchPapers struct {
	Orchestrator *metasearch.Orchestrator
	Cache        *cache.Cache
}

// cacheKey derives the advisory-cache key for a search query. It does not
// need to be collision-proof against adversarial input, only stable for
// identical repeated queries.
func (s searchPapersInput) cacheKey() string {
	return fmt.Sprintf("%s|%s|%d|%d", s.Type, s.Query, s.Limit, s.Offset)
}

type searchPapersInput struct {
	Query  string `json:"query"`
	Type   string `json:"type,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type searchPapersOutput struct {
	Papers        []types.PaperMetadata `json:"papers"`
	TotalCount    int                   `json:"total_count"`
	ProvidersUsed []string              `json:"providers_used"`
}

func (SearchPapers) Name() string        { return "search_papers" }
func (SearchPapers) Description() string { return "Federated search across registered paper providers" }

func (SearchPapers) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":  map[string]any{"type": "string"},
			"type":   map[string]any{"type": "string", "enum": []string{"doi", "title", "author", "author_year", "subject", "keywords", "auto"}},
			"limit":  map[string]any{"type": "integer", "minimum": 1, "maximum": 200},
			"offset": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"query"},
	}
}

func (s SearchPapers) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in searchPapersInput
	if err := decodeArgs(raw, &in); err != nil {
		return nil, err
	}
	if in.Query == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("search_papers: query is required"))
	}

	key := in.cacheKey()
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(cache.CategorySearch, key); ok {
			return cached.(searchPapersOutput), nil
		}
		if _, ok := s.Cache.Get(cache.CategoryNegative, key); ok {
			return searchPapersOutput{Papers: []types.PaperMetadata{}, TotalCount: 0, ProvidersUsed: []string{}}, nil
		}
	}

	q := types.SearchQuery{
		Query:  in.Query,
		Type:   types.SearchType(in.Type),
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	papers, err := s.Orchestrator.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var providersUsed []string
	for _, p := range papers {
		for _, prov := range p.Providers {
			if !seen[prov] {
				seen[prov] = true
				providersUsed = append(providersUsed, prov)
			}
		}
	}

	out := searchPapersOutput{
		Papers:        papers,
		TotalCount:    len(papers),
		ProvidersUsed: providersUsed,
	}
	if s.Cache != nil {
		if len(papers) == 0 {
			s.Cache.Set(cache.CategoryNegative, key, out)
		} else {
			s.Cache.Set(cache.CategorySearch, key, out)
		}
	}
	return out, nil
}
