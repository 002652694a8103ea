// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meshintel/paper-mcp/pkg/types"
)

func TestUnpaywallResolvePDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "email=ops%40example.com") {
			t.Errorf("expected email query param, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(unpaywallResponse{
			DOI:  "10.1038/nphys1170",
			IsOA: true,
			BestOALocation: &unpaywallOALocation{
				URLForPDF: "https://example.org/nphys.pdf",
			},
		})
	}))
	defer srv.Close()

	orig := unpaywallBase
	unpaywallBase = srv.URL + "/"
	defer func() { unpaywallBase = orig }()

	u := &Unpaywall{Client: srv.Client(), Email: "ops@example.com"}
	url, err := u.ResolvePDF(context.Background(), types.PaperMetadata{DOI: "10.1038/nphys1170"})
	if err != nil {
		t.Fatalf("ResolvePDF error: %v", err)
	}
	if url != "https://example.org/nphys.pdf" {
		t.Errorf("ResolvePDF = %q", url)
	}
}

func TestUnpaywallRequiresEmail(t *testing.T) {
	u := &Unpaywall{Client: http.DefaultClient}
	_, err := u.ResolvePDF(context.Background(), types.PaperMetadata{DOI: "10.1038/nphys1170"})
	if err == nil {
		t.Fatal("expected validation error without email")
	}
}

func TestUnpaywallSearchOnlySupportsDOI(t *testing.T) {
	u := &Unpaywall{Client: http.DefaultClient, Email: "ops@example.com"}
	_, err := u.Search(context.Background(), types.SearchQuery{Query: "free text", Type: types.SearchAuto, Limit: 10})
	if err == nil {
		t.Fatal("expected NotSupported error for non-DOI query")
	}
}

func TestUnpaywallNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	orig := unpaywallBase
	unpaywallBase = srv.URL + "/"
	defer func() { unpaywallBase = orig }()

	u := &Unpaywall{Client: srv.Client(), Email: "ops@example.com"}
	_, err := u.ResolvePDF(context.Background(), types.PaperMetadata{DOI: "10.0000/missing"})
	if err == nil {
		t.Fatal("expected error for missing DOI")
	}
}
