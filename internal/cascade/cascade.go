// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cascade implements the DOI/identifier-to-PDF-URL cascade
// resolver (C7): a provider-preference walk generalizing a single-source
// identifier-to-URL resolver into a multi-provider fallback chain bounded
// by rate limiting, circuit breaking, and retry.
package cascade

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/meshintel/paper-mcp/internal/breaker"
	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/provider"
	"github.com/meshintel/paper-mcp/internal/ratelimit"
	"github.com/meshintel/paper-mcp/internal/retry"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// DefaultPreference is the provider walk order of spec §4.7: authoritative
// metadata provider, then open-access finder, then repository providers,
// then a full-text fallback. Names not present in the registry are skipped.
var DefaultPreference = []string{
	"crossref",
	"unpaywall",
	"openalex",
	"arxiv",
	"core",
	"doaj",
	"semanticscholar",
	"patentsview",
}

// Resolver walks DefaultPreference (or a caller-supplied order) calling
// each provider's ResolvePDF and verifying the candidate URL before
// returning it.
type Resolver struct {
	Registry    *provider.Registry
	Limiters    *ratelimit.Registry
	Breakers    *breaker.Registry
	RetryPolicy retry.Policy
	Client      *http.Client
	Preference  []string
}

// New builds a Resolver with the default provider preference order and
// retry policy.
func New(reg *provider.Registry, limiters *ratelimit.Registry, breakers *breaker.Registry, client *http.Client) *Resolver {
	return &Resolver{
		Registry:    reg,
		Limiters:    limiters,
		Breakers:    breakers,
		RetryPolicy: retry.DefaultPolicy(),
		Client:      client,
		Preference:  DefaultPreference,
	}
}

// Result reports the cascade's outcome: the resolved URL (if any) and
// every provider attempted, in order, for diagnostics.
type Result struct {
	URL         string
	Provider    string
	SourcesTried []string
}

// Resolve walks the preference list for p, calling each capable
// provider's ResolvePDF and verifying the candidate with verifyPDFURL. It
// returns an *errs.Error of kind NoPdfAvailable, carrying the attempted
// provider names, when the cascade is exhausted.
func (r *Resolver) Resolve(ctx context.Context, p types.PaperMetadata) (Result, error) {
	var tried []string

	for _, name := range r.Preference {
		prov, err := r.Registry.Get(name)
		if err != nil {
			continue
		}
		if !prov.Descriptor().HasCapability(types.CapFullTextPDF) && !prov.Descriptor().HasCapability(types.CapDOILookup) {
			continue
		}
		tried = append(tried, name)

		var candidate string
		op := func(ctx context.Context) error {
			if err := r.Limiters.Acquire(ctx, name); err != nil {
				return err
			}
			res, err := r.Breakers.Execute(ctx, name, func(ctx context.Context) (any, error) {
				return prov.ResolvePDF(ctx, p)
			})
			if err != nil {
				return err
			}
			candidate = res.(string)
			return nil
		}

		if err := retry.Do(ctx, r.RetryPolicy, name, op); err != nil {
			continue
		}
		if candidate == "" {
			continue
		}
		if r.verifyPDFURL(ctx, candidate) {
			return Result{URL: candidate, Provider: name, SourcesTried: tried}, nil
		}
	}

	return Result{SourcesTried: tried}, errs.New(errs.KindNoPDFAvailable, fmt.Errorf("sources tried: %s", strings.Join(tried, ", ")))
}

// verifyPDFURL checks that candidate is HTTPS and responds either to a
// HEAD request with 200 and a PDF content-type, or (when HEAD is
// disallowed) to a ranged GET for the first byte.
func (r *Resolver) verifyPDFURL(ctx context.Context, candidate string) bool {
	if !strings.HasPrefix(candidate, "https://") {
		return false
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	headCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(headCtx, http.MethodHead, candidate, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return isPDFContentType(resp.Header.Get("Content-Type"))
		}
		if resp.StatusCode != http.StatusMethodNotAllowed && resp.StatusCode != http.StatusNotImplemented {
			return false
		}
	}

	getCtx, cancel2 := context.WithTimeout(ctx, 10*time.Second)
	defer cancel2()
	getReq, err := http.NewRequestWithContext(getCtx, http.MethodGet, candidate, nil)
	if err != nil {
		return false
	}
	getReq.Header.Set("Range", "bytes=0-0")
	getResp, err := client.Do(getReq)
	if err != nil {
		return false
	}
	defer getResp.Body.Close()
	return getResp.StatusCode == http.StatusPartialContent || getResp.StatusCode == http.StatusOK
}

func isPDFContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/pdf") || strings.Contains(ct, "application/octet-stream")
}
