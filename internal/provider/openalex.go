// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// openAlexWorksBase is the OpenAlex Works search endpoint.
var openAlexWorksBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	Client    *http.Client
	UserAgent string
	// Email is sent as the mailto parameter for polite-pool access.
	Email string
}

// Descriptor returns OpenAlex's static configuration.
func (o *OpenAlex) Descriptor() types.ProviderDescriptor {
	return types.ProviderDescriptor{
		Name:         "openalex",
		PriorityBase: 95,
		Capabilities: map[types.Capability]bool{
			types.CapMetadataOnly: true,
			types.CapAuthorSearch: true,
			types.CapDOILookup:    true,
			types.CapFullTextPDF:  true,
			types.CapBatch:        true,
		},
		RateLimit: types.RateLimitSpec{PerSecond: 10, Burst: 5},
		Auth:      types.AuthNone,
	}
}

// Search queries the OpenAlex Works endpoint.
func (o *OpenAlex) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	if q.Type == types.SearchDOI {
		return o.searchByDOI(ctx, q.Query)
	}

	searchText := strings.TrimSpace(q.Query)
	if searchText == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("empty query")).WithProvider("openalex")
	}

	page := q.Offset/q.Limit + 1
	params := url.Values{
		"search":   {searchText},
		"per_page": {fmt.Sprintf("%d", q.Limit)},
		"page":     {fmt.Sprintf("%d", page)},
	}

	var filters []string
	if q.Filters.YearFrom > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%04d-01-01", q.Filters.YearFrom))
	}
	if q.Filters.YearTo > 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%04d-12-31", q.Filters.YearTo))
	}
	if q.Filters.OpenAccessOnly {
		filters = append(filters, "is_oa:true")
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	reqURL := openAlexWorksBase + "?" + params.Encode()
	return o.fetchWorks(ctx, reqURL)
}

func (o *OpenAlex) searchByDOI(ctx context.Context, doi string) ([]types.PaperMetadata, error) {
	params := url.Values{"filter": {"doi:" + doi}}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}
	reqURL := openAlexWorksBase + "?" + params.Encode()
	return o.fetchWorks(ctx, reqURL)
}

func (o *OpenAlex) fetchWorks(ctx context.Context, reqURL string) ([]types.PaperMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Classify("openalex", err)
	}
	req.Header.Set("User-Agent", o.UserAgent)

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, errs.Classify("openalex", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromHTTPStatus("openalex", resp.StatusCode, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode))
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, errs.New(errs.KindParse, err).WithProvider("openalex")
	}

	now := time.Now()
	results := make([]types.PaperMetadata, 0, len(oar.Results))
	for _, work := range oar.Results {
		m := types.PaperMetadata{
			Title:       work.Title,
			Abstract:    reconstructAbstract(work.AbstractInvertedIndex),
			Venue:       work.PrimaryLocation.Source.DisplayName,
			OpenAccess:  work.OpenAccess.IsOA,
			Providers:   []string{"openalex"},
			Confidence:  0.9,
			RetrievedAt: now,
		}
		if work.DOI != "" {
			m.DOI = types.CanonicalDOI(work.DOI)
		}
		m.ProviderID = work.ID
		if work.OpenAccess.OAURL != "" {
			m.PDFURL = work.OpenAccess.OAURL
		}
		for _, a := range work.Authorships {
			if a.Author.DisplayName != "" {
				m.Authors = append(m.Authors, a.Author.DisplayName)
			}
		}
		if work.PublicationYear > 0 {
			m.Year = work.PublicationYear
		}
		results = append(results, m)
	}
	return results, nil
}

// Health performs a cheap single-result query.
func (o *OpenAlex) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexWorksBase+"?per_page=1", nil)
	if err != nil {
		return errs.Classify("openalex", err)
	}
	req.Header.Set("User-Agent", o.UserAgent)
	resp, err := o.Client.Do(req)
	if err != nil {
		return errs.Classify("openalex", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.FromHTTPStatus("openalex", resp.StatusCode, nil)
	}
	return nil
}

// ResolvePDF resolves via the DOI lookup if the caller didn't already
// carry an open-access URL.
func (o *OpenAlex) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	if p.PDFURL != "" {
		return p.PDFURL, nil
	}
	if p.DOI == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("openalex")
	}
	results, err := o.searchByDOI(ctx, p.DOI)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if r.PDFURL != "" {
			return r.PDFURL, nil
		}
	}
	return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("openalex")
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

type openAlexLocation struct {
	Source openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}
