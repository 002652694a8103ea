// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,venue,isOpenAccess,openAccessPdf"

// SemanticScholar queries the Semantic Scholar Graph API.
type SemanticScholar struct {
	Client    *http.Client
	UserAgent string
	APIKey    string
}

// Descriptor returns Semantic Scholar's static configuration.
func (s *SemanticScholar) Descriptor() types.ProviderDescriptor {
	auth := types.AuthOptionalKey
	rl := types.RateLimitSpec{PerSecond: 1, Burst: 1}
	if s.APIKey != "" {
		rl = types.RateLimitSpec{PerSecond: 10, Burst: 2}
	}
	return types.ProviderDescriptor{
		Name:         "semanticscholar",
		PriorityBase: 90,
		Capabilities: map[types.Capability]bool{
			types.CapMetadataOnly: true,
			types.CapAuthorSearch: true,
			types.CapDOILookup:    true,
			types.CapFullTextPDF:  true,
		},
		RateLimit: rl,
		Auth:      auth,
	}
}

// Search queries the Semantic Scholar paper search endpoint.
func (s *SemanticScholar) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	query := buildFreeTextQuery(q)
	if query == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("empty query")).WithProvider("semanticscholar")
	}

	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprintf("%d", q.Limit)},
		"offset": {fmt.Sprintf("%d", q.Offset)},
		"fields": {semanticFields},
	}
	if q.Filters.YearFrom > 0 || q.Filters.YearTo > 0 {
		params.Set("year", semanticYearRange(q.Filters.YearFrom, q.Filters.YearTo))
	}

	reqURL := semanticAPIBase + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Classify("semanticscholar", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errs.Classify("semanticscholar", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromHTTPStatus("semanticscholar", resp.StatusCode, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode))
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errs.New(errs.KindParse, err).WithProvider("semanticscholar")
	}

	now := time.Now()
	results := make([]types.PaperMetadata, 0, len(sr.Data))
	for _, paper := range sr.Data {
		m := types.PaperMetadata{
			DOI:         types.CanonicalDOI(paper.ExternalIDs.DOI),
			ArxivID:     paper.ExternalIDs.ArXiv,
			ProviderID:  paper.PaperID,
			Title:       paper.Title,
			Abstract:    paper.Abstract,
			Year:        paper.Year,
			Venue:       paper.Venue,
			OpenAccess:  paper.IsOpenAccess,
			Providers:   []string{"semanticscholar"},
			Confidence:  0.9,
			RetrievedAt: now,
		}
		if paper.OpenAccessPDF.URL != "" {
			m.PDFURL = paper.OpenAccessPDF.URL
		}
		for _, au := range paper.Authors {
			if au.Name != "" {
				m.Authors = append(m.Authors, au.Name)
			}
		}
		results = append(results, m)
	}
	return results, nil
}

// Health performs a minimal paper search.
func (s *SemanticScholar) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?query=test&limit=1", nil)
	if err != nil {
		return errs.Classify("semanticscholar", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	resp, err := s.Client.Do(req)
	if err != nil {
		return errs.Classify("semanticscholar", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.FromHTTPStatus("semanticscholar", resp.StatusCode, nil)
	}
	return nil
}

// ResolvePDF returns the openAccessPdf URL, looked up by provider ID, else
// DOI, else arXiv ID through the paper lookup endpoint, since search results may omit it
// when the caller only has identifiers in hand (e.g. from a cascade).
func (s *SemanticScholar) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	if p.PDFURL != "" {
		return p.PDFURL, nil
	}
	id := p.ProviderID
	switch {
	case id != "":
	case p.DOI != "":
		id = "DOI:" + p.DOI
	case p.ArxivID != "":
		id = "ARXIV:" + p.ArxivID
	default:
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("semanticscholar")
	}

	apiURL := fmt.Sprintf("https://api.semanticscholar.org/graph/v1/paper/%s?fields=openAccessPdf", url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", errs.Classify("semanticscholar", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", errs.Classify("semanticscholar", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errs.FromHTTPStatus("semanticscholar", resp.StatusCode, nil)
	}

	var lookup struct {
		OpenAccessPDF struct {
			URL string `json:"url"`
		} `json:"openAccessPdf"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return "", errs.New(errs.KindParse, err).WithProvider("semanticscholar")
	}
	if lookup.OpenAccessPDF.URL == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("semanticscholar")
	}
	return lookup.OpenAccessPDF.URL, nil
}

func buildFreeTextQuery(q types.SearchQuery) string {
	return strings.TrimSpace(q.Query)
}

func semanticYearRange(from, to int) string {
	switch {
	case from > 0 && to > 0:
		return fmt.Sprintf("%d-%d", from, to)
	case from > 0:
		return fmt.Sprintf("%d-", from)
	case to > 0:
		return fmt.Sprintf("-%d", to)
	default:
		return ""
	}
}

type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string                `json:"paperId"`
	Title         string                `json:"title"`
	Abstract      string                `json:"abstract"`
	Year          int                   `json:"year"`
	Venue         string                `json:"venue"`
	IsOpenAccess  bool                  `json:"isOpenAccess"`
	OpenAccessPDF semanticOpenAccessPDF `json:"openAccessPdf"`
	Authors       []semanticAuthor      `json:"authors"`
	ExternalIDs   semanticExternalIDs   `json:"externalIds"`
}

type semanticOpenAccessPDF struct {
	URL string `json:"url"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
