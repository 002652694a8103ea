// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meshintel/paper-mcp/pkg/types"
)

const sampleArxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Attention Is All You Need Again</title>
    <summary>We revisit the transformer.</summary>
    <published>2023-01-17T00:00:00Z</published>
    <author><name>Ada Lovelace</name></author>
    <category term="cs.LG"/>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(sampleArxivFeed))
	}))
	defer srv.Close()

	orig := arxivAPIBase
	arxivAPIBase = srv.URL
	defer func() { arxivAPIBase = orig }()

	a := &Arxiv{Client: srv.Client(), UserAgent: "paper-mcp/1.0"}
	q := types.SearchQuery{Query: "transformers", Type: types.SearchAuto, Limit: 10}
	results, err := a.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.ArxivID != "2301.07041" {
		t.Errorf("ArxivID = %q, want 2301.07041 (version stripped)", r.ArxivID)
	}
	if r.Year != 2023 {
		t.Errorf("Year = %d, want 2023", r.Year)
	}
	if len(r.Authors) != 1 || r.Authors[0] != "Ada Lovelace" {
		t.Errorf("Authors = %v", r.Authors)
	}
	if !r.OpenAccess {
		t.Error("expected OpenAccess = true for arXiv")
	}
}

func TestArxivSearchRejectsEmptyQuery(t *testing.T) {
	a := &Arxiv{Client: http.DefaultClient}
	_, err := a.Search(context.Background(), types.SearchQuery{Query: "", Type: types.SearchAuto, Limit: 10})
	if err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestArxivSearchPropagatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	orig := arxivAPIBase
	arxivAPIBase = srv.URL
	defer func() { arxivAPIBase = orig }()

	a := &Arxiv{Client: srv.Client()}
	_, err := a.Search(context.Background(), types.SearchQuery{Query: "x", Type: types.SearchAuto, Limit: 1})
	if err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestArxivResolvePDF(t *testing.T) {
	a := &Arxiv{}
	url, err := a.ResolvePDF(context.Background(), types.PaperMetadata{ArxivID: "2301.07041"})
	if err != nil {
		t.Fatalf("ResolvePDF error: %v", err)
	}
	if url != "https://arxiv.org/pdf/2301.07041" {
		t.Errorf("ResolvePDF = %q", url)
	}

	if _, err := a.ResolvePDF(context.Background(), types.PaperMetadata{}); err == nil {
		t.Error("expected error with no arXiv ID")
	}
}
