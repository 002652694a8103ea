// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package categorize defines the categorizer collaborator contract of
// spec §6.5: given papers or paths, return per-item
// {primary_category, confidence, secondary[]}. The real categorizer is an
// out-of-core collaborator; this package ships a default keyword-overlap
// implementation against a fixed taxonomy, grounded on the same
// tag-aggregation idiom as a citation-extraction pipeline's
// AggregatePaperTags step.
package categorize

import (
	"sort"
	"strings"

	"github.com/meshintel/paper-mcp/pkg/types"
)

// Result is one item's categorization.
type Result struct {
	PrimaryCategory string   `json:"primary_category"`
	Confidence      float64  `json:"confidence"`
	Secondary       []string `json:"secondary,omitempty"`
}

// Categorizer assigns each paper a primary category (plus any secondary
// candidates) from scheme, or the default taxonomy if scheme is empty.
type Categorizer interface {
	Categorize(papers []types.PaperMetadata, scheme string) ([]Result, error)
}

// category pairs a taxonomy label with the keyword set that votes for it.
type category struct {
	name     string
	keywords []string
}

// defaultTaxonomy is a fixed, small set of broad CS/ML research areas,
// each with a representative keyword set. It is intentionally coarse: the
// spec treats a real categorizer as an out-of-core collaborator, so this
// default exists to make categorize_papers return something real, not to
// compete with a trained classifier.
var defaultTaxonomy = []category{
	{"machine-learning", []string{"neural", "network", "learning", "training", "model", "gradient", "deep"}},
	{"natural-language-processing", []string{"language", "text", "translation", "parsing", "corpus", "linguistic", "token"}},
	{"computer-vision", []string{"image", "vision", "detection", "segmentation", "recognition", "visual", "pixel"}},
	{"systems", []string{"distributed", "system", "performance", "scalability", "latency", "throughput", "cluster"}},
	{"security", []string{"security", "attack", "vulnerability", "cryptography", "exploit", "threat", "privacy"}},
	{"theory", []string{"proof", "theorem", "complexity", "algorithm", "bound", "lemma", "np-hard"}},
	{"robotics", []string{"robot", "actuator", "manipulation", "control", "sensor", "kinematics", "autonomous"}},
	{"other", nil},
}

type keywordOverlapCategorizer struct {
	taxonomy []category
}

// New returns the default Categorizer using the fixed taxonomy.
func New() Categorizer {
	return keywordOverlapCategorizer{taxonomy: defaultTaxonomy}
}

// NewWithTaxonomy returns a Categorizer scoped to a custom taxonomy,
// useful for a future scheme parameter beyond the built-in default.
func NewWithTaxonomy(taxonomy []category) Categorizer {
	return keywordOverlapCategorizer{taxonomy: taxonomy}
}

// Categorize ignores scheme: every paper is scored against c.taxonomy.
func (c keywordOverlapCategorizer) Categorize(papers []types.PaperMetadata, _ string) ([]Result, error) {
	results := make([]Result, len(papers))
	for i, p := range papers {
		results[i] = c.categorizeOne(p)
	}
	return results, nil
}

func (c keywordOverlapCategorizer) categorizeOne(p types.PaperMetadata) Result {
	corpus := strings.ToLower(strings.Join(append([]string{p.Title, p.Abstract}, p.Keywords...), " "))
	words := tokenize(corpus)
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	type score struct {
		name  string
		hits  int
		total int
	}
	var scores []score
	for _, cat := range c.taxonomy {
		if len(cat.keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range cat.keywords {
			if wordSet[kw] {
				hits++
			}
		}
		if hits > 0 {
			scores = append(scores, score{cat.name, hits, len(cat.keywords)})
		}
	}

	if len(scores) == 0 {
		return Result{PrimaryCategory: "other", Confidence: 0}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		ri := float64(scores[i].hits) / float64(scores[i].total)
		rj := float64(scores[j].hits) / float64(scores[j].total)
		if ri != rj {
			return ri > rj
		}
		return scores[i].name < scores[j].name
	})

	primary := scores[0]
	confidence := float64(primary.hits) / float64(primary.total)

	var secondary []string
	for _, s := range scores[1:] {
		secondary = append(secondary, s.name)
	}

	return Result{PrimaryCategory: primary.name, Confidence: confidence, Secondary: secondary}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-'
	})
}
