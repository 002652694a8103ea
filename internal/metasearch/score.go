// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metasearch

import (
	"sort"
	"time"

	"github.com/meshintel/paper-mcp/pkg/types"
)

// selectionScore computes the provider-selection score of spec §4.6.1:
// base_priority + domain_boost(Q) + recency_boost + pdf_access_boost -
// latency_penalty.
func selectionScore(desc types.ProviderDescriptor, q types.SearchQuery, stats types.ProviderStats, medianLatency time.Duration) float64 {
	score := float64(desc.PriorityBase)
	score += domainBoost(desc, q)
	score += recencyBoost(q)
	score += pdfAccessBoost(desc)
	score -= latencyPenalty(stats.AvgResponseTime, medianLatency)
	return score
}

// domainBoost rewards providers whose capabilities specifically match the
// query's search type (e.g. an author-search query favors providers that
// declare CapAuthorSearch).
func domainBoost(desc types.ProviderDescriptor, q types.SearchQuery) float64 {
	switch q.Type {
	case types.SearchDOI:
		if desc.HasCapability(types.CapDOILookup) {
			return 15
		}
	case types.SearchAuthor, types.SearchAuthorYear:
		if desc.HasCapability(types.CapAuthorSearch) {
			return 10
		}
	}
	return 0
}

// recencyBoost adds 5 when the query's YearFrom is within the last two
// years. The boost is the same for every provider, so it does not change
// the providers' relative order.
func recencyBoost(q types.SearchQuery) float64 {
	if q.Filters.YearFrom > 0 && q.Filters.YearFrom >= time.Now().Year()-2 {
		return 5
	}
	return 0
}

// pdfAccessBoost rewards providers that can hand back full text directly,
// saving a cascade-resolver round trip later.
func pdfAccessBoost(desc types.ProviderDescriptor) float64 {
	if desc.HasCapability(types.CapFullTextPDF) {
		return 8
	}
	return 0
}

// latencyPenalty scales with how far a provider's EWMA response time sits
// above the peer median; providers with no observations yet are not
// penalized.
func latencyPenalty(avg, median time.Duration) float64 {
	if avg <= 0 || median <= 0 {
		return 0
	}
	ratio := float64(avg) / float64(median)
	if ratio <= 1 {
		return 0
	}
	return (ratio - 1) * 10
}

// topK sorts candidates by selection score descending and returns at most k.
func topK(candidates []scoredProvider, k int) []scoredProvider {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

type scoredProvider struct {
	name  string
	score float64
}

// compositeOrderScore computes the spec §4.6.5 final ordering score:
// mean(provenance provider priorities) * confidence * has_pdf_bonus.
func compositeOrderScore(m types.PaperMetadata, priorities map[string]int) float64 {
	if len(m.Providers) == 0 {
		return 0
	}
	var sum int
	for _, p := range m.Providers {
		sum += priorities[p]
	}
	mean := float64(sum) / float64(len(m.Providers))

	pdfBonus := 1.0
	if m.PDFURL != "" {
		pdfBonus = 1.25
	}
	return mean * m.Confidence * pdfBonus
}

// orderResults sorts merged records by compositeOrderScore descending,
// breaking ties by year descending then title ascending, per spec §4.6.5.
func orderResults(results []types.PaperMetadata, priorities map[string]int) {
	sort.SliceStable(results, func(i, j int) bool {
		si := compositeOrderScore(results[i], priorities)
		sj := compositeOrderScore(results[j], priorities)
		if si != sj {
			return si > sj
		}
		if results[i].Year != results[j].Year {
			return results[i].Year > results[j].Year
		}
		return results[i].Title < results[j].Title
	})
}
