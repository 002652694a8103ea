// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cascade

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meshintel/paper-mcp/internal/breaker"
	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/provider"
	"github.com/meshintel/paper-mcp/internal/ratelimit"
	"github.com/meshintel/paper-mcp/pkg/types"
)

type fakeResolver struct {
	desc types.ProviderDescriptor
	url  string
	err  error
}

func (f *fakeResolver) Descriptor() types.ProviderDescriptor { return f.desc }
func (f *fakeResolver) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	return nil, nil
}
func (f *fakeResolver) Health(ctx context.Context) error { return nil }
func (f *fakeResolver) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	return f.url, f.err
}

func descFor(name string) types.ProviderDescriptor {
	return types.ProviderDescriptor{
		Name:         name,
		Capabilities: map[types.Capability]bool{types.CapFullTextPDF: true},
		RateLimit:    types.RateLimitSpec{PerSecond: 1000, Burst: 1000},
	}
}

func newResolver(t *testing.T, client *http.Client, providers ...provider.Provider) *Resolver {
	t.Helper()
	reg := provider.NewRegistry()
	for _, p := range providers {
		reg.Register(p)
	}
	limiters := ratelimit.NewRegistry()
	breakers := breaker.NewRegistry(breaker.DefaultSettings())
	r := New(reg, limiters, breakers, client)
	r.Preference = []string{"a", "b"}
	r.RetryPolicy.MaxAttempts = 1
	return r
}

func TestCascadeVerifiesHTTPSAndPDFContentType(t *testing.T) {
	tlsSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
	}))
	defer tlsSrv.Close()

	client := tlsSrv.Client()
	a := &fakeResolver{desc: descFor("a"), url: tlsSrv.URL}
	r := newResolver(t, client, a)

	res, err := r.Resolve(context.Background(), types.PaperMetadata{DOI: "10.1/x"})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.URL != tlsSrv.URL || res.Provider != "a" {
		t.Fatalf("got %+v", res)
	}
}

func TestCascadeRejectsPlainHTTP(t *testing.T) {
	a := &fakeResolver{desc: descFor("a"), url: "http://insecure.example.com/paper.pdf"}
	r := newResolver(t, http.DefaultClient, a)

	_, err := r.Resolve(context.Background(), types.PaperMetadata{DOI: "10.1/x"})
	if !errs.Is(err, errs.KindNoPDFAvailable) {
		t.Fatalf("expected NoPdfAvailable for a plain-HTTP candidate, got %v", err)
	}
}

func TestCascadeFallsThroughToNextProvider(t *testing.T) {
	tlsSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
	}))
	defer tlsSrv.Close()

	client := tlsSrv.Client()
	a := &fakeResolver{desc: descFor("a"), err: errs.New(errs.KindNoPDFAvailable, nil)}
	b := &fakeResolver{desc: descFor("b"), url: tlsSrv.URL}
	r := newResolver(t, client, a, b)

	res, err := r.Resolve(context.Background(), types.PaperMetadata{DOI: "10.1/x"})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Provider != "b" {
		t.Fatalf("expected fallback to provider b, got %q", res.Provider)
	}
	if len(res.SourcesTried) != 2 {
		t.Fatalf("expected both providers tried, got %v", res.SourcesTried)
	}
}

func TestCascadeExhaustedReturnsNoPDFAvailable(t *testing.T) {
	a := &fakeResolver{desc: descFor("a"), err: errs.New(errs.KindNoPDFAvailable, nil)}
	b := &fakeResolver{desc: descFor("b"), err: errs.New(errs.KindNoPDFAvailable, nil)}
	r := newResolver(t, http.DefaultClient, a, b)

	_, err := r.Resolve(context.Background(), types.PaperMetadata{DOI: "10.1/x"})
	if !errs.Is(err, errs.KindNoPDFAvailable) {
		t.Fatalf("expected NoPdfAvailable, got %v", err)
	}
}
