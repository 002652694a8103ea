// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SearchType enumerates the query variants a provider may support.
// Per spec §3.
type SearchType string

const (
	SearchDOI        SearchType = "doi"
	SearchTitle       SearchType = "title"
	SearchAuthor      SearchType = "author"
	SearchAuthorYear  SearchType = "author_year"
	SearchSubject     SearchType = "subject"
	SearchKeywords    SearchType = "keywords"
	SearchAuto        SearchType = "auto"
)

// doiPattern matches the canonical DOI shape required when Type == SearchDOI.
var doiPattern = regexp.MustCompile(`^10\.\d{4,}/\S+$`)

// Filters holds the optional narrowing parameters a caller may attach to
// a SearchQuery.
type Filters struct {
	YearFrom     int
	YearTo       int
	Language     string
	OpenAccessOnly bool
}

// SearchQuery is the input to any provider's Search operation.
type SearchQuery struct {
	Query  string
	Type   SearchType
	Limit  int
	Offset int
	Filters Filters
}

// stripControlChars removes ASCII control characters from a query string,
// per spec §3's SearchQuery invariant.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize trims, strips control characters, and clamps Limit/Offset to
// their valid ranges. It returns an error if the result still violates an
// invariant (empty query, bad DOI shape for Type == SearchDOI).
func (q SearchQuery) Normalize() (SearchQuery, error) {
	out := q
	out.Query = stripControlChars(strings.TrimSpace(q.Query))
	if len(out.Query) > 1024 {
		out.Query = out.Query[:1024]
	}
	if out.Query == "" {
		return out, fmt.Errorf("search query: empty after normalization")
	}
	if out.Type == "" {
		out.Type = SearchAuto
	}
	if out.Limit <= 0 {
		out.Limit = 20
	}
	if out.Limit > 200 {
		out.Limit = 200
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	if out.Type == SearchDOI {
		norm := CanonicalDOI(out.Query)
		if !doiPattern.MatchString(norm) {
			return out, fmt.Errorf("search query: %q is not a valid DOI", q.Query)
		}
		out.Query = norm
	}
	return out, nil
}

// Capability identifies one unit of provider functionality.
type Capability string

const (
	CapFullTextPDF  Capability = "full-text-pdf"
	CapMetadataOnly Capability = "metadata-only"
	CapDOILookup    Capability = "doi-lookup"
	CapAuthorSearch Capability = "author-search"
	CapBatch        Capability = "batch"
)

// AuthRequirement describes what a provider needs to operate.
type AuthRequirement string

const (
	AuthNone         AuthRequirement = "none"
	AuthOptionalKey  AuthRequirement = "optional-key"
	AuthRequiredKey  AuthRequirement = "required-key"
)

// RateLimitSpec is a provider's default rate-limit configuration.
type RateLimitSpec struct {
	PerSecond float64
	Burst     int
}

// ProviderDescriptor is the static, per-adapter configuration.
type ProviderDescriptor struct {
	Name         string
	PriorityBase int
	Capabilities map[Capability]bool
	RateLimit    RateLimitSpec
	Auth         AuthRequirement
}

// HasCapability reports whether the descriptor declares cap.
func (d ProviderDescriptor) HasCapability(cap Capability) bool {
	return d.Capabilities[cap]
}

// CircuitState mirrors the three-state circuit breaker machine (C2).
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// ProviderStats is the read-only snapshot of a provider's runtime state
// handed to callers. The live state is kept by internal/metasearch's
// Tracker under a per-provider mutex.
type ProviderStats struct {
	Name              string
	AvgResponseTime   time.Duration
	RecentSuccesses   int
	RecentFailures    int
	LastErrorCategory string
	LastProbeAt       time.Time
	CircuitState      CircuitState
}
