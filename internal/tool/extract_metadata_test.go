// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/meshintel/paper-mcp/internal/pdfparse"
	"github.com/meshintel/paper-mcp/pkg/types"
)

func TestExtractMetadataReturnsParsedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.pdf")
	body := "%PDF-1.4\n1 0 obj << /Title (A Sample Paper) >> endobj\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	tool := ExtractMetadata{Parser: pdfparse.New()}
	raw, _ := json.Marshal(map[string]any{"file_path": path})
	out, err := tool.Execute(context.Background(), raw)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	meta, ok := out.(types.PaperMetadata)
	if !ok || meta.Title != "A Sample Paper" {
		t.Fatalf("got %+v", out)
	}
}

func TestExtractMetadataRejectsMissingPath(t *testing.T) {
	tool := ExtractMetadata{Parser: pdfparse.New()}
	raw, _ := json.Marshal(map[string]any{"file_path": ""})
	if _, err := tool.Execute(context.Background(), raw); err == nil {
		t.Fatal("expected validation error")
	}
}
