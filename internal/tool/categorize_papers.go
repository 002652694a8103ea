// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meshintel/paper-mcp/internal/categorize"
	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/pdfparse"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// CategorizePapers wraps the categorizer collaborator as the
// categorize_papers tool: `categorize_papers(papers_or_paths[], scheme?)
// -> categorizations[]`. Each item is either an inline PaperMetadata
// object or a string file path to be parsed first.
type CategorizePapers struct {
	Categorizer categorize.Categorizer
	Parser      pdfparse.Parser
}

type categorizePapersInput struct {
	PapersOrPaths []json.RawMessage `json:"papers_or_paths"`
	Scheme        string            `json:"scheme,omitempty"`
}

func (CategorizePapers) Name() string { return "categorize_papers" }
func (CategorizePapers) Description() string {
	return "Assign a primary/secondary category to each paper or PDF path"
}

func (CategorizePapers) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"papers_or_paths": map[string]any{"type": "array"},
			"scheme":          map[string]any{"type": "string"},
		},
		"required": []string{"papers_or_paths"},
	}
}

func (c CategorizePapers) Execute(_ context.Context, raw json.RawMessage) (any, error) {
	var in categorizePapersInput
	if err := decodeArgs(raw, &in); err != nil {
		return nil, err
	}
	if len(in.PapersOrPaths) == 0 {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("categorize_papers: papers_or_paths is required"))
	}

	papers := make([]types.PaperMetadata, len(in.PapersOrPaths))
	for i, item := range in.PapersOrPaths {
		var path string
		if err := json.Unmarshal(item, &path); err == nil {
			meta, _, parseErr := c.Parser.Parse(path)
			if parseErr != nil {
				return nil, parseErr
			}
			papers[i] = meta
			continue
		}

		var meta types.PaperMetadata
		if err := json.Unmarshal(item, &meta); err != nil {
			return nil, errs.New(errs.KindValidation, fmt.Errorf("categorize_papers: item %d is neither a path string nor PaperMetadata: %w", i, err))
		}
		papers[i] = meta
	}

	results, err := c.Categorizer.Categorize(papers, in.Scheme)
	if err != nil {
		return nil, err
	}
	return results, nil
}
