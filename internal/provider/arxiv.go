// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arxivPDFBase is the arXiv PDF download endpoint.
var arxivPDFBase = "https://arxiv.org/pdf/"

// Arxiv queries the arXiv API.
type Arxiv struct {
	Client    *http.Client
	UserAgent string
}

// Descriptor returns arXiv's static configuration.
func (a *Arxiv) Descriptor() types.ProviderDescriptor {
	return types.ProviderDescriptor{
		Name:         "arxiv",
		PriorityBase: 80,
		Capabilities: map[types.Capability]bool{
			types.CapFullTextPDF:  true,
			types.CapMetadataOnly: true,
			types.CapAuthorSearch: true,
		},
		RateLimit: types.RateLimitSpec{PerSecond: 1.0 / 3, Burst: 1},
		Auth:      types.AuthNone,
	}
}

// Search queries the arXiv Atom feed API and returns matching records.
func (a *Arxiv) Search(ctx context.Context, q types.SearchQuery) ([]types.PaperMetadata, error) {
	query := buildArxivQuery(q)
	if query == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("empty arXiv query")).WithProvider("arxiv")
	}

	url := fmt.Sprintf("%s?search_query=%s&start=%d&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, query, q.Offset, q.Limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Classify("arxiv", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, errs.Classify("arxiv", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromHTTPStatus("arxiv", resp.StatusCode, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode))
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, errs.New(errs.KindParse, err).WithProvider("arxiv")
	}

	now := time.Now()
	results := make([]types.PaperMetadata, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		m := types.PaperMetadata{
			ArxivID:     arxivID,
			Title:       strings.TrimSpace(entry.Title),
			Abstract:    strings.TrimSpace(entry.Summary),
			PDFURL:      arxivPDFBase + arxivID,
			LandingURL:  "https://arxiv.org/abs/" + arxivID,
			OpenAccess:  true,
			Providers:   []string{"arxiv"},
			Confidence:  1.0,
			RetrievedAt: now,
		}
		for _, cat := range entry.Categories {
			if cat.Term != "" {
				m.Keywords = append(m.Keywords, cat.Term)
			}
		}
		for _, au := range entry.Authors {
			if name := strings.TrimSpace(au.Name); name != "" {
				m.Authors = append(m.Authors, name)
			}
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			m.Year = t.Year()
		}
		results = append(results, m)
	}
	return results, nil
}

// Health performs a minimal query against the arXiv API.
func (a *Arxiv) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?search_query=all:test&max_results=1", nil)
	if err != nil {
		return errs.Classify("arxiv", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)
	resp, err := a.Client.Do(req)
	if err != nil {
		return errs.Classify("arxiv", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.FromHTTPStatus("arxiv", resp.StatusCode, nil)
	}
	return nil
}

// ResolvePDF returns the arXiv PDF URL for p, if it carries an arXiv ID.
func (a *Arxiv) ResolvePDF(ctx context.Context, p types.PaperMetadata) (string, error) {
	if p.ArxivID == "" {
		return "", errs.New(errs.KindNoPDFAvailable, nil).WithProvider("arxiv")
	}
	return arxivPDFBase + p.ArxivID, nil
}

func buildArxivQuery(q types.SearchQuery) string {
	var parts []string
	switch q.Type {
	case types.SearchAuthor, types.SearchAuthorYear:
		terms := strings.Fields(q.Query)
		parts = append(parts, "au:"+strings.Join(terms, "+"))
	default:
		terms := strings.Fields(q.Query)
		parts = append(parts, "all:"+strings.Join(terms, "+"))
	}
	if q.Filters.YearFrom > 0 || q.Filters.YearTo > 0 {
		from := q.Filters.YearFrom
		if from == 0 {
			from = 1800
		}
		to := q.Filters.YearTo
		if to == 0 {
			to = time.Now().Year()
		}
		parts = append(parts, fmt.Sprintf("submittedDate:[%d01010000+TO+%d12312359]", from, to))
	}
	return strings.Join(parts, "+AND+")
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []arxivAuthor  `xml:"author"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
