// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// coreSearchBase is the CORE v3 search endpoint.
var coreSearchBase = "https://api.core.ac.uk/v3/search/works"

// Core queries the CORE aggregator API, a full-text index spanning
// millions of open-access repositories. It requires an API key.
type Core struct {
	Client    *http.Client
	UserAgent string
	APIKey    string
}

// Descriptor returns CORE's static configuration.
func (c *Core) Descriptor() types.ProviderDescriptor {
	return types.ProviderDescriptor{
		Name:         "core",
		PriorityBase: 75,
		Capabilities: map[types.Capability]bool{
			types.CapMetadataOnly: true,
			types.CapFullTextPDF:  true,
			types.CapAuthorSearch: true,
			types.CapBatch:        true,
		},
		RateLimit: types.RateLimitSpec{PerSecond: 10.0 / 60, Burst: 1},
		Auth:      types.AuthRequiredKey,
	}
}

// Search issues a POST search against the CORE works endpoint.
func (c *Core) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	if c.APIKey == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("core requires an API key")).WithProvider("core")
	}

	body := coreSearchRequest{
		Q:       q.Query,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errs.New(errs.KindValidation, err).WithProvider("core")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, coreSearchBase, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Classify("core", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, errs.Classify("core", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromHTTPStatus("core", resp.StatusCode, fmt.Errorf("CORE API returned HTTP %d", resp.StatusCode))
	}

	var cr coreSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, errs.New(errs.KindParse, err).WithProvider("core")
	}

	now := time.Now()
	results := make([]types.PaperMetadata, 0, len(cr.Results))
	for _, work := range cr.Results {
		m := types.PaperMetadata{
			ProviderID:  fmt.Sprintf("%d", work.ID),
			DOI:         types.CanonicalDOI(work.DOI),
			Title:       work.Title,
			Abstract:    work.Abstract,
			Year:        work.YearPublished,
			OpenAccess:  true,
			PDFURL:      work.DownloadURL,
			Providers:   []string{"core"},
			Confidence:  0.8,
			RetrievedAt: now,
		}
		for _, a := range work.Authors {
			if a.Name != "" {
				m.Authors = append(m.Authors, a.Name)
			}
		}
		results = append(results, m)
	}
	return results, nil
}

// Health performs a minimal search.
func (c *Core) Health(ctx context.Context) error {
	if c.APIKey == "" {
		return errs.New(errs.KindValidation, fmt.Errorf("core requires an API key")).WithProvider("core")
	}
	body, _ := json.Marshal(coreSearchRequest{Q: "test", Limit: 1})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, coreSearchBase, bytes.NewReader(body))
	if err != nil {
		return errs.Classify("core", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return errs.Classify("core", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.FromHTTPStatus("core", resp.StatusCode, nil)
	}
	return nil
}

// ResolvePDF returns the downloadUrl CORE already carries in its index, if
// any, after one search by DOI, or by title when p has no DOI.
func (c *Core) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	if p.PDFURL != "" {
		return p.PDFURL, nil
	}
	q := p.DOI
	if q == "" {
		q = p.Title
	}
	if q == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("core")
	}
	results, err := c.Search(ctx, types.SearchQuery{Query: q, Type: types.SearchAuto, Limit: 5})
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if r.PDFURL != "" && (p.DOI == "" || r.DOI == p.DOI) {
			return r.PDFURL, nil
		}
	}
	return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("core")
}

type coreSearchRequest struct {
	Q      string `json:"q"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type coreSearchResponse struct {
	TotalHits int         `json:"totalHits"`
	Results   []coreWork  `json:"results"`
}

type coreWork struct {
	ID            int          `json:"id"`
	DOI           string       `json:"doi"`
	Title         string       `json:"title"`
	Abstract      string       `json:"abstract"`
	YearPublished int          `json:"yearPublished"`
	DownloadURL   string       `json:"downloadUrl"`
	Authors       []coreAuthor `json:"authors"`
}

type coreAuthor struct {
	Name string `json:"name"`
}
