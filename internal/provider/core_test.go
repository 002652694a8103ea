// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meshintel/paper-mcp/pkg/types"
)

func TestCoreSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(coreSearchResponse{
			Results: []coreWork{
				{
					ID:            42,
					DOI:           "10.1111/core",
					Title:         "Federated Indexing at Scale",
					YearPublished: 2021,
					DownloadURL:   "https://core.ac.uk/download/42.pdf",
					Authors:       []coreAuthor{{Name: "Tim Berners-Lee"}},
				},
			},
		})
	}))
	defer srv.Close()

	orig := coreSearchBase
	coreSearchBase = srv.URL
	defer func() { coreSearchBase = orig }()

	c := &Core{Client: srv.Client(), APIKey: "test-key"}
	results, err := c.Search(context.Background(), types.SearchQuery{Query: "federated indexing", Type: types.SearchAuto, Limit: 10})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 1 || results[0].PDFURL != "https://core.ac.uk/download/42.pdf" {
		t.Fatalf("got %+v", results)
	}
}

func TestCoreSearchRequiresAPIKey(t *testing.T) {
	c := &Core{Client: http.DefaultClient}
	_, err := c.Search(context.Background(), types.SearchQuery{Query: "x", Type: types.SearchAuto, Limit: 1})
	if err == nil {
		t.Fatal("expected validation error without API key")
	}
}
