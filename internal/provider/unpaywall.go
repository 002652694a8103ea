// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// unpaywallBase is the Unpaywall DOI lookup endpoint.
var unpaywallBase = "https://api.unpaywall.org/v2/"

// Unpaywall resolves open-access PDF locations by DOI. It carries no
// free-text search of its own (hence CapDOILookup without CapAuthorSearch);
// its Search degrades to a single-item DOI lookup and its real job is
// ResolvePDF, used by the cascade resolver (C7) as a fallback after
// provider-native resolution fails.
type Unpaywall struct {
	Client *http.Client
	// Email is required by Unpaywall in place of an API key.
	Email     string
	UserAgent string
}

// Descriptor returns Unpaywall's static configuration.
func (u *Unpaywall) Descriptor() types.ProviderDescriptor {
	return types.ProviderDescriptor{
		Name:         "unpaywall",
		PriorityBase: 70,
		Capabilities: map[types.Capability]bool{
			types.CapDOILookup:   true,
			types.CapFullTextPDF: true,
		},
		RateLimit: types.RateLimitSpec{PerSecond: 10, Burst: 3},
		Auth:      types.AuthRequiredKey,
	}
}

// Search only supports DOI lookups; any other query type returns
// NotSupported so the orchestrator skips this provider for free-text
// fan-out instead of wasting a request.
func (u *Unpaywall) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	if q.Type != types.SearchDOI {
		return nil, errs.New(errs.KindNotSupported, nil).WithProvider("unpaywall")
	}
	rec, err := u.lookup(ctx, q.Query)
	if err != nil {
		return nil, err
	}
	return []types.PaperMetadata{rec}, nil
}

func (u *Unpaywall) lookup(ctx context.Context, doi string) (types.PaperMetadata, error) {
	if u.Email == "" {
		return types.PaperMetadata{}, errs.New(errs.KindValidation, fmt.Errorf("unpaywall requires a contact email")).WithProvider("unpaywall")
	}
	reqURL := unpaywallBase + url.PathEscape(doi) + "?email=" + url.QueryEscape(u.Email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.PaperMetadata{}, errs.Classify("unpaywall", err)
	}
	req.Header.Set("User-Agent", u.UserAgent)

	resp, err := u.Client.Do(req)
	if err != nil {
		return types.PaperMetadata{}, errs.Classify("unpaywall", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.PaperMetadata{}, errs.New(errs.KindNoResults, nil).WithProvider("unpaywall")
	}
	if resp.StatusCode != http.StatusOK {
		return types.PaperMetadata{}, errs.FromHTTPStatus("unpaywall", resp.StatusCode, nil)
	}

	var ur unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return types.PaperMetadata{}, errs.New(errs.KindParse, err).WithProvider("unpaywall")
	}

	m := types.PaperMetadata{
		DOI:         types.CanonicalDOI(ur.DOI),
		Title:       ur.Title,
		Year:        ur.Year,
		OpenAccess:  ur.IsOA,
		Providers:   []string{"unpaywall"},
		Confidence:  0.8,
		RetrievedAt: time.Now(),
	}
	if ur.BestOALocation != nil {
		m.PDFURL = ur.BestOALocation.URLForPDF
		m.LandingURL = ur.BestOALocation.URLForLanding
	}
	return m, nil
}

// Health performs a lookup against a DOI known to resolve.
func (u *Unpaywall) Health(ctx context.Context) error {
	if u.Email == "" {
		return errs.New(errs.KindValidation, fmt.Errorf("unpaywall requires a contact email")).WithProvider("unpaywall")
	}
	_, err := u.lookup(ctx, "10.1038/nphys1170")
	if err != nil && !errs.Is(err, errs.KindNoResults) {
		return err
	}
	return nil
}

// ResolvePDF returns the best open-access PDF location for p's DOI.
func (u *Unpaywall) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	if p.DOI == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("unpaywall")
	}
	rec, err := u.lookup(ctx, p.DOI)
	if err != nil {
		return "", err
	}
	if rec.PDFURL == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("unpaywall")
	}
	return rec.PDFURL, nil
}

type unpaywallResponse struct {
	DOI            string                `json:"doi"`
	Title          string                `json:"title"`
	Year           int                   `json:"year"`
	IsOA           bool                  `json:"is_oa"`
	BestOALocation *unpaywallOALocation  `json:"best_oa_location"`
}

type unpaywallOALocation struct {
	URLForPDF     string `json:"url_for_pdf"`
	URLForLanding string `json:"url_for_landing_page"`
}
