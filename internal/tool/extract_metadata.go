// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/pdfparse"
)

// ExtractMetadata wraps the PDF-parser collaborator as the
// extract_metadata tool: `extract_metadata(file_path) -> PaperMetadata`.
type ExtractMetadata struct {
	Parser pdfparse.Parser
}

type extractMetadataInput struct {
	FilePath string `json:"file_path"`
}

func (ExtractMetadata) Name() string        { return "extract_metadata" }
func (ExtractMetadata) Description() string { return "Extract PaperMetadata from a PDF on disk" }

func (ExtractMetadata) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{"type": "string"},
		},
		"required": []string{"file_path"},
	}
}

func (e ExtractMetadata) Execute(_ context.Context, raw json.RawMessage) (any, error) {
	var in extractMetadataInput
	if err := decodeArgs(raw, &in); err != nil {
		return nil, err
	}
	if in.FilePath == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("extract_metadata: file_path is required"))
	}

	meta, _, err := e.Parser.Parse(in.FilePath)
	if err != nil {
		return nil, err
	}
	return meta, nil
}
