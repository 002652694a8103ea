// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared across the federated
// search, acquisition, and tool layers.
package types

import (
	"fmt"
	"strings"
	"time"
)

// PaperMetadata is the universal result record produced by providers and
// merged by the meta-search orchestrator. It is immutable once produced:
// callers that need to adjust a field should copy the value.
type PaperMetadata struct {
	// Identity. At least one of DOI, ArxivID, or Title must be present.
	DOI        string `json:"doi,omitempty"`
	ArxivID    string `json:"arxiv_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`

	// Bibliographic.
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Year     int      `json:"year,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords,omitempty"`

	// Access.
	PDFURL       string `json:"pdf_url,omitempty"`
	LandingURL   string `json:"landing_url,omitempty"`
	OpenAccess   bool   `json:"open_access"`

	// Provenance.
	Providers  []string  `json:"providers"`
	Confidence float64   `json:"confidence"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// Validate checks the invariants from spec §3: identity presence and a
// plausible publication year.
func (p PaperMetadata) Validate(now time.Time) error {
	if p.DOI == "" && p.ArxivID == "" && p.Title == "" {
		return fmt.Errorf("paper metadata: at least one of DOI, arXiv ID, or title is required")
	}
	if p.Year != 0 {
		maxYear := now.Year() + 1
		if p.Year < 1800 || p.Year > maxYear {
			return fmt.Errorf("paper metadata: year %d outside valid range [1800, %d]", p.Year, maxYear)
		}
	}
	return nil
}

// CanonicalDOI lowercases a DOI string after stripping a leading
// "https://doi.org/", "http://doi.org/" or "doi:" prefix (matched
// case-sensitively; other URL prefixes are kept). It is idempotent.
func CanonicalDOI(doi string) string {
	d := strings.TrimSpace(doi)
	d = strings.TrimPrefix(d, "https://doi.org/")
	d = strings.TrimPrefix(d, "http://doi.org/")
	d = strings.TrimPrefix(d, "doi:")
	return strings.ToLower(d)
}
