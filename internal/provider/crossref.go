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

// crossrefWorksBase is the Crossref works endpoint.
var crossrefWorksBase = "https://api.crossref.org/works"

// Crossref queries the Crossref REST API.
type Crossref struct {
	Client    *http.Client
	UserAgent string
}

// Descriptor returns Crossref's static configuration.
func (c *Crossref) Descriptor() types.ProviderDescriptor {
	return types.ProviderDescriptor{
		Name:         "crossref",
		PriorityBase: 85,
		Capabilities: map[types.Capability]bool{
			types.CapMetadataOnly: true,
			types.CapDOILookup:    true,
			types.CapAuthorSearch: true,
			types.CapBatch:        true,
		},
		RateLimit: types.RateLimitSpec{PerSecond: 5, Burst: 2},
		Auth:      types.AuthNone,
	}
}

// Search queries Crossref by DOI lookup or free-text query depending on
// q.Type.
func (c *Crossref) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	if q.Type == types.SearchDOI {
		m, err := c.lookupDOI(ctx, q.Query)
		if err != nil {
			return nil, err
		}
		return []types.PaperMetadata{m}, nil
	}

	params := url.Values{
		"query": {q.Query},
		"rows":  {fmt.Sprintf("%d", q.Limit)},
		"offset": {fmt.Sprintf("%d", q.Offset)},
	}
	if q.Type == types.SearchAuthor || q.Type == types.SearchAuthorYear {
		params.Set("query.author", q.Query)
		params.Del("query")
	}
	if q.Filters.YearFrom > 0 || q.Filters.YearTo > 0 {
		from := q.Filters.YearFrom
		if from == 0 {
			from = 1
		}
		to := q.Filters.YearTo
		if to == 0 {
			to = time.Now().Year()
		}
		params.Set("filter", fmt.Sprintf("from-pub-date:%04d-01-01,until-pub-date:%04d-12-31", from, to))
	}

	reqURL := crossrefWorksBase + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Classify("crossref", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, errs.Classify("crossref", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromHTTPStatus("crossref", resp.StatusCode, fmt.Errorf("Crossref API returned HTTP %d", resp.StatusCode))
	}

	var cr crossrefListResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, errs.New(errs.KindParse, err).WithProvider("crossref")
	}

	now := time.Now()
	results := make([]types.PaperMetadata, 0, len(cr.Message.Items))
	for _, work := range cr.Message.Items {
		results = append(results, crossrefWorkToMetadata(work, now))
	}
	return results, nil
}

func (c *Crossref) lookupDOI(ctx context.Context, doi string) (types.PaperMetadata, error) {
	reqURL := crossrefWorksBase + "/" + url.PathEscape(doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.PaperMetadata{}, errs.Classify("crossref", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return types.PaperMetadata{}, errs.Classify("crossref", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.PaperMetadata{}, errs.New(errs.KindNoResults, nil).WithProvider("crossref")
	}
	if resp.StatusCode != http.StatusOK {
		return types.PaperMetadata{}, errs.FromHTTPStatus("crossref", resp.StatusCode, nil)
	}

	var cr crossrefSingleResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return types.PaperMetadata{}, errs.New(errs.KindParse, err).WithProvider("crossref")
	}
	return crossrefWorkToMetadata(cr.Message, time.Now()), nil
}

// Health performs a minimal query.
func (c *Crossref) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefWorksBase+"?rows=1", nil)
	if err != nil {
		return errs.Classify("crossref", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	resp, err := c.Client.Do(req)
	if err != nil {
		return errs.Classify("crossref", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.FromHTTPStatus("crossref", resp.StatusCode, nil)
	}
	return nil
}

// ResolvePDF looks the DOI up and returns a Crossref-listed full-text link,
// if the publisher registered one.
func (c *Crossref) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	if p.DOI == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("crossref")
	}
	reqURL := crossrefWorksBase + "/" + url.PathEscape(p.DOI)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", errs.Classify("crossref", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", errs.Classify("crossref", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errs.FromHTTPStatus("crossref", resp.StatusCode, nil)
	}

	var cr crossrefSingleResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", errs.New(errs.KindParse, err).WithProvider("crossref")
	}
	for _, link := range cr.Message.Link {
		if strings.Contains(link.ContentType, "pdf") {
			return link.URL, nil
		}
	}
	return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("crossref")
}

func crossrefWorkToMetadata(work crossrefWork, now time.Time) types.PaperMetadata {
	m := types.PaperMetadata{
		DOI:         types.CanonicalDOI(work.DOI),
		Providers:   []string{"crossref"},
		Confidence:  0.85,
		RetrievedAt: now,
	}
	if len(work.Title) > 0 {
		m.Title = work.Title[0]
	}
	if len(work.ContainerTitle) > 0 {
		m.Venue = work.ContainerTitle[0]
	}
	for _, a := range work.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			m.Authors = append(m.Authors, name)
		}
	}
	if len(work.Published.DateParts) > 0 && len(work.Published.DateParts[0]) >= 1 {
		m.Year = work.Published.DateParts[0][0]
	} else if len(work.Created.DateParts) > 0 && len(work.Created.DateParts[0]) >= 1 {
		m.Year = work.Created.DateParts[0][0]
	}
	if m.DOI != "" {
		m.LandingURL = "https://doi.org/" + m.DOI
	}
	return m
}

type crossrefListResponse struct {
	Message crossrefMessageList `json:"message"`
}

type crossrefMessageList struct {
	Items []crossrefWork `json:"items"`
}

type crossrefSingleResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI            string           `json:"DOI"`
	Title          []string         `json:"title"`
	ContainerTitle []string         `json:"container-title"`
	Author         []crossrefAuthor `json:"author"`
	Published      crossrefDate     `json:"published"`
	Created        crossrefDate     `json:"created"`
	Link           []crossrefLink   `json:"link"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

type crossrefLink struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}
