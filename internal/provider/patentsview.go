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

// patentsViewSearchBase is the PatentsView patent search endpoint.
var patentsViewSearchBase = "https://search.patentsview.org/api/v1/patent/"

// googlePatentsPDFBase serves patent PDFs by publication number.
var googlePatentsPDFBase = "https://patentimages.storage.googleapis.com/pdfs/"

const patentsViewFields = `["patent_id","patent_title","patent_abstract","patent_date","inventors.inventor_name_last"]`

// PatentsView queries the USPTO PatentsView API. It is a CapBatch,
// CapMetadataOnly source with no open-access full text of its own; PDFs
// are resolved through Google Patents' public image mirror.
type PatentsView struct {
	Client    *http.Client
	UserAgent string
	APIKey    string
}

// Descriptor returns PatentsView's static configuration.
func (pv *PatentsView) Descriptor() types.ProviderDescriptor {
	auth := types.AuthRequiredKey
	return types.ProviderDescriptor{
		Name:         "patentsview",
		PriorityBase: 60,
		Capabilities: map[types.Capability]bool{
			types.CapMetadataOnly: true,
			types.CapAuthorSearch: true,
			types.CapBatch:        true,
		},
		RateLimit: types.RateLimitSpec{PerSecond: 45.0 / 60, Burst: 5},
		Auth:      auth,
	}
}

// Search queries the PatentsView API.
func (pv *PatentsView) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	query := buildPatentsViewQuery(q)
	if query == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("empty PatentsView query")).WithProvider("patentsview")
	}

	limit := q.Limit
	if limit > 1000 {
		limit = 1000
	}

	params := url.Values{
		"q": {query},
		"f": {patentsViewFields},
		"o": {fmt.Sprintf(`{"per_page":%d}`, limit)},
	}
	reqURL := patentsViewSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Classify("patentsview", err)
	}
	req.Header.Set("User-Agent", pv.UserAgent)
	if pv.APIKey != "" {
		req.Header.Set("X-Api-Key", pv.APIKey)
	}

	resp, err := pv.Client.Do(req)
	if err != nil {
		return nil, errs.Classify("patentsview", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.FromHTTPStatus("patentsview", resp.StatusCode, fmt.Errorf("PatentsView rate limit exceeded"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromHTTPStatus("patentsview", resp.StatusCode, fmt.Errorf("PatentsView API returned HTTP %d", resp.StatusCode))
	}

	var pvr patentsViewResponse
	if err := json.NewDecoder(resp.Body).Decode(&pvr); err != nil {
		return nil, errs.New(errs.KindParse, err).WithProvider("patentsview")
	}

	now := time.Now()
	results := make([]types.PaperMetadata, 0, len(pvr.Patents))
	for _, patent := range pvr.Patents {
		m := types.PaperMetadata{
			ProviderID:  "US" + patent.PatentID,
			Title:       patent.PatentTitle,
			Abstract:    patent.PatentAbstract,
			Venue:       "USPTO",
			Providers:   []string{"patentsview"},
			Confidence:  0.75,
			RetrievedAt: now,
		}
		for _, inv := range patent.Inventors {
			if inv.InventorNameLast != "" {
				m.Authors = append(m.Authors, inv.InventorNameLast)
			}
		}
		if patent.PatentDate != "" {
			if t, parseErr := time.Parse("2006-01-02", patent.PatentDate); parseErr == nil {
				m.Year = t.Year()
			}
		}
		results = append(results, m)
	}
	return results, nil
}

// Health performs a one-result query.
func (pv *PatentsView) Health(ctx context.Context) error {
	params := url.Values{
		"q": {`{"_text_any":{"patent_title":"test"}}`},
		"o": {`{"per_page":1}`},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, patentsViewSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return errs.Classify("patentsview", err)
	}
	req.Header.Set("User-Agent", pv.UserAgent)
	if pv.APIKey != "" {
		req.Header.Set("X-Api-Key", pv.APIKey)
	}
	resp, err := pv.Client.Do(req)
	if err != nil {
		return errs.Classify("patentsview", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.FromHTTPStatus("patentsview", resp.StatusCode, nil)
	}
	return nil
}

// ResolvePDF returns the Google Patents PDF mirror URL for a patent ID.
func (pv *PatentsView) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	num := strings.TrimPrefix(p.ProviderID, "US")
	if num == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("patentsview")
	}
	return googlePatentsPDFBase + "US" + num + ".pdf", nil
}

func buildPatentsViewQuery(q types.SearchQuery) string {
	var conditions []string

	if q.Type == types.SearchAuthor {
		conditions = append(conditions, fmt.Sprintf(`{"_contains":{"inventors.inventor_name_last":"%s"}}`, escapePatentsViewJSON(q.Query)))
	} else if q.Query != "" {
		conditions = append(conditions,
			fmt.Sprintf(`{"_or":[{"_text_any":{"patent_title":"%s"}},{"_text_any":{"patent_abstract":"%s"}}]}`,
				escapePatentsViewJSON(q.Query), escapePatentsViewJSON(q.Query)))
	}

	if q.Filters.YearFrom > 0 {
		conditions = append(conditions, fmt.Sprintf(`{"_gte":{"patent_date":"%04d-01-01"}}`, q.Filters.YearFrom))
	}
	if q.Filters.YearTo > 0 {
		conditions = append(conditions, fmt.Sprintf(`{"_lte":{"patent_date":"%04d-12-31"}}`, q.Filters.YearTo))
	}

	if len(conditions) == 0 {
		return ""
	}
	if len(conditions) == 1 {
		return conditions[0]
	}
	return fmt.Sprintf(`{"_and":[%s]}`, strings.Join(conditions, ","))
}

func escapePatentsViewJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

type patentsViewResponse struct {
	Patents []patentsViewPatent `json:"patents"`
}

type patentsViewPatent struct {
	PatentID       string                `json:"patent_id"`
	PatentTitle    string                `json:"patent_title"`
	PatentAbstract string                `json:"patent_abstract"`
	PatentDate     string                `json:"patent_date"`
	Inventors      []patentsViewInventor `json:"inventors"`
}

type patentsViewInventor struct {
	InventorNameLast string `json:"inventor_name_last"`
}
