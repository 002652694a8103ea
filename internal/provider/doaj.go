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

// doajSearchBase is the DOAJ article search endpoint.
var doajSearchBase = "https://doaj.org/api/search/articles/"

// DOAJ queries the Directory of Open Access Journals article search API.
// Every result it returns is open access by construction.
type DOAJ struct {
	Client    *http.Client
	UserAgent string
}

// Descriptor returns DOAJ's static configuration.
func (d *DOAJ) Descriptor() types.ProviderDescriptor {
	return types.ProviderDescriptor{
		Name:         "doaj",
		PriorityBase: 65,
		Capabilities: map[types.Capability]bool{
			types.CapMetadataOnly: true,
			types.CapFullTextPDF:  true,
		},
		RateLimit: types.RateLimitSpec{PerSecond: 2, Burst: 2},
		Auth:      types.AuthNone,
	}
}

// Search queries the DOAJ article search endpoint.
func (d *DOAJ) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("empty DOAJ query")).WithProvider("doaj")
	}

	page := q.Offset/q.Limit + 1
	reqURL := fmt.Sprintf("%s%s?pageSize=%d&page=%d", doajSearchBase, url.PathEscape(query), q.Limit, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Classify("doaj", err)
	}
	req.Header.Set("User-Agent", d.UserAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, errs.Classify("doaj", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromHTTPStatus("doaj", resp.StatusCode, fmt.Errorf("DOAJ API returned HTTP %d", resp.StatusCode))
	}

	var dr doajResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, errs.New(errs.KindParse, err).WithProvider("doaj")
	}

	now := time.Now()
	results := make([]types.PaperMetadata, 0, len(dr.Results))
	for _, item := range dr.Results {
		bib := item.Bibjson
		m := types.PaperMetadata{
			Title:       bib.Title,
			Abstract:    bib.Abstract,
			Year:        parseDOAJYear(bib.Year),
			OpenAccess:  true,
			Providers:   []string{"doaj"},
			Confidence:  0.8,
			RetrievedAt: now,
		}
		if len(bib.Journal.License) > 0 {
			m.Venue = bib.Journal.Title
		}
		for _, a := range bib.Author {
			if a.Name != "" {
				m.Authors = append(m.Authors, a.Name)
			}
		}
		for _, kw := range bib.Keywords {
			m.Keywords = append(m.Keywords, kw)
		}
		for _, id := range bib.Identifier {
			if strings.EqualFold(id.Type, "doi") {
				m.DOI = types.CanonicalDOI(id.ID)
			}
		}
		for _, l := range bib.Link {
			if strings.EqualFold(l.Type, "fulltext") {
				m.PDFURL = l.URL
			}
		}
		results = append(results, m)
	}
	return results, nil
}

// Health performs a minimal query.
func (d *DOAJ) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doajSearchBase+"test?pageSize=1", nil)
	if err != nil {
		return errs.Classify("doaj", err)
	}
	req.Header.Set("User-Agent", d.UserAgent)
	resp, err := d.Client.Do(req)
	if err != nil {
		return errs.Classify("doaj", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.FromHTTPStatus("doaj", resp.StatusCode, nil)
	}
	return nil
}

// ResolvePDF returns a previously-discovered full-text link, or searches
// by DOI when the caller has one but Search hasn't already populated it.
func (d *DOAJ) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	if p.PDFURL != "" {
		return p.PDFURL, nil
	}
	if p.DOI == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("doaj")
	}
	results, err := d.Search(ctx, types.SearchQuery{Query: p.DOI, Type: types.SearchAuto, Limit: 5})
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if r.DOI == p.DOI && r.PDFURL != "" {
			return r.PDFURL, nil
		}
	}
	return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("doaj")
}

func parseDOAJYear(s string) int {
	var y int
	if _, err := fmt.Sscanf(s, "%d", &y); err != nil {
		return 0
	}
	return y
}

type doajResponse struct {
	Results []doajArticle `json:"results"`
}

type doajArticle struct {
	Bibjson doajBibjson `json:"bibjson"`
}

type doajBibjson struct {
	Title      string           `json:"title"`
	Abstract   string           `json:"abstract"`
	Year       string           `json:"year"`
	Author     []doajAuthor     `json:"author"`
	Keywords   []string         `json:"keywords"`
	Identifier []doajIdentifier `json:"identifier"`
	Link       []doajLink       `json:"link"`
	Journal    doajJournal      `json:"journal"`
}

type doajAuthor struct {
	Name string `json:"name"`
}

type doajIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type doajLink struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type doajJournal struct {
	Title   string   `json:"title"`
	License []string `json:"license"`
}
