// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meshintel/paper-mcp/internal/biblio"
	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/metasearch"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// GenerateBibliography wraps the bibliography-formatter collaborator as
// the generate_bibliography tool: `generate_bibliography(identifiers[],
// format) -> formatted_text`. Identifiers are resolved to PaperMetadata
// via a DOI search against the orchestrator before formatting.
type GenerateBibliography struct {
	Orchestrator *metasearch.Orchestrator
	Formatter    biblio.Formatter
}

type generateBibliographyInput struct {
	Identifiers []string `json:"identifiers"`
	Format      string   `json:"format"`
}

type generateBibliographyOutput struct {
	FormattedText string   `json:"formatted_text"`
	Warnings      []string `json:"warnings,omitempty"`
}

func (GenerateBibliography) Name() string { return "generate_bibliography" }
func (GenerateBibliography) Description() string {
	return "Format a set of identifiers into a bibliography string"
}

func (GenerateBibliography) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"identifiers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"format":      map[string]any{"type": "string", "enum": []string{"bibtex", "apa", "mla", "chicago", "ieee", "harvard"}},
		},
		"required": []string{"identifiers", "format"},
	}
}

func (g GenerateBibliography) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in generateBibliographyInput
	if err := decodeArgs(raw, &in); err != nil {
		return nil, err
	}
	if len(in.Identifiers) == 0 {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("generate_bibliography: identifiers is required"))
	}

	papers := make([]types.PaperMetadata, 0, len(in.Identifiers))
	var warnings []string
	for _, id := range in.Identifiers {
		q := types.SearchQuery{Query: id, Type: types.SearchDOI}
		results, err := g.Orchestrator.Search(ctx, q)
		if err != nil || len(results) == 0 {
			warnings = append(warnings, fmt.Sprintf("unresolved identifier %q", id))
			continue
		}
		papers = append(papers, results[0])
	}
	if len(papers) == 0 {
		return nil, errs.New(errs.KindNoResults, fmt.Errorf("generate_bibliography: no identifiers resolved"))
	}

	sorted := biblio.SortByAuthorYear(papers)
	text, err := g.Formatter.Format(sorted, biblio.Format(in.Format))
	if err != nil {
		return nil, err
	}

	return generateBibliographyOutput{FormattedText: text, Warnings: warnings}, nil
}
