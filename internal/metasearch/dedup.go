// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metasearch

import (
	"strings"
	"unicode"

	"github.com/meshintel/paper-mcp/pkg/types"
)

// titleSimilarityThreshold is the minimum normalized-title similarity for
// the fuzzy merge rule of spec §4.6.4(c).
const titleSimilarityThreshold = 0.92

// deduplicate merges records per the three-rule cascade of spec §4.6.4,
// checked in order: (a) equal canonical DOI, (b) equal arXiv ID, (c) title
// similarity >= 0.92 AND overlapping author surname AND year within +-1.
// It returns the merged records (in first-seen order) and the count of
// records folded into an existing entry.
func deduplicate(records []types.PaperMetadata) ([]types.PaperMetadata, int) {
	var merged []types.PaperMetadata
	removed := 0

	for _, r := range records {
		if idx := findMergeTarget(merged, r); idx >= 0 {
			merged[idx] = mergeRecords(merged[idx], r)
			removed++
			continue
		}
		merged = append(merged, r)
	}
	return merged, removed
}

// findMergeTarget returns the index in merged that r should fold into, or
// -1 if r starts a new group.
func findMergeTarget(merged []types.PaperMetadata, r types.PaperMetadata) int {
	if r.DOI != "" {
		for i, m := range merged {
			if m.DOI != "" && m.DOI == r.DOI {
				return i
			}
		}
	}
	if r.ArxivID != "" {
		for i, m := range merged {
			if m.ArxivID != "" && m.ArxivID == r.ArxivID {
				return i
			}
		}
	}
	rTitle := normalizeTitle(r.Title)
	if rTitle == "" {
		return -1
	}
	rSurnames := authorSurnames(r.Authors)
	for i, m := range merged {
		mTitle := normalizeTitle(m.Title)
		if mTitle == "" {
			continue
		}
		if titleSimilarity(rTitle, mTitle) < titleSimilarityThreshold {
			continue
		}
		if !surnamesOverlap(rSurnames, authorSurnames(m.Authors)) {
			continue
		}
		if !yearsWithinOne(r.Year, m.Year) {
			continue
		}
		return i
	}
	return -1
}

// mergeRecords combines src into dst per spec §4.6.4: keep the record with
// the highest confidence as the base, fill absent fields from the other,
// and accumulate the provenance provider set.
func mergeRecords(dst, src types.PaperMetadata) types.PaperMetadata {
	if src.Confidence > dst.Confidence {
		dst, src = src, dst
	}

	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.ArxivID == "" {
		dst.ArxivID = src.ArxivID
	}
	if dst.ProviderID == "" {
		dst.ProviderID = src.ProviderID
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.Venue == "" {
		dst.Venue = src.Venue
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if len(dst.Keywords) == 0 {
		dst.Keywords = src.Keywords
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	if dst.LandingURL == "" {
		dst.LandingURL = src.LandingURL
	}
	dst.OpenAccess = dst.OpenAccess || src.OpenAccess

	dst.Providers = unionStrings(dst.Providers, src.Providers)
	if src.RetrievedAt.After(dst.RetrievedAt) {
		dst.RetrievedAt = src.RetrievedAt
	}
	return dst
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// normalizeTitle lowercases and strips punctuation, collapsing whitespace.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// authorSurnames extracts the last whitespace-delimited token of each
// author string and lowercases it, approximating a surname.
func authorSurnames(authors []string) map[string]bool {
	out := make(map[string]bool, len(authors))
	for _, a := range authors {
		fields := strings.Fields(a)
		if len(fields) == 0 {
			continue
		}
		out[strings.ToLower(fields[len(fields)-1])] = true
	}
	return out
}

func surnamesOverlap(a, b map[string]bool) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for s := range a {
		if b[s] {
			return true
		}
	}
	return false
}

func yearsWithinOne(a, b int) bool {
	if a == 0 || b == 0 {
		return false
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

// titleSimilarity returns a normalized similarity in [0,1] derived from
// Levenshtein edit distance: 1 - distance/max(len(a), len(b)).
func titleSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// levenshtein computes the edit distance between a and b using the
// standard single-row dynamic-programming formulation. The corpus carries
// no third-party string-distance library (see DESIGN.md); this is the
// one component implemented directly against the standard library.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = minInt(del, minInt(ins, sub))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
