// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfparse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meshintel/paper-mcp/internal/errs"
)

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.pdf")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestParseExtractsInfoDictionary(t *testing.T) {
	body := "%PDF-1.4\n" +
		"1 0 obj << /Title (Attention Is All You Need) /Author (Vaswani, A.; Shazeer, N.) " +
		"/Subject (Transformer architectures) /Keywords (attention, transformers) " +
		"/CreationDate (D:20170612000000Z) >> endobj\n" +
		"2 0 obj << >> stream\nBT (Self-attention mechanisms) Tj ET\nendstream endobj\n"
	path := writeFixture(t, body)

	p := New()
	meta, text, err := p.Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if meta.Title != "Attention Is All You Need" {
		t.Fatalf("Title = %q", meta.Title)
	}
	if len(meta.Authors) != 2 {
		t.Fatalf("Authors = %+v", meta.Authors)
	}
	if meta.Year != 2017 {
		t.Fatalf("Year = %d", meta.Year)
	}
	if len(meta.Keywords) != 2 {
		t.Fatalf("Keywords = %+v", meta.Keywords)
	}
	if !strings.Contains(text, "Self-attention mechanisms") {
		t.Fatalf("text = %q", text)
	}
}

func TestParseFallsBackToFilenameTitle(t *testing.T) {
	path := writeFixture(t, "%PDF-1.4\n1 0 obj << >> endobj\n")
	meta, _, err := New().Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if meta.Title != "sample" {
		t.Fatalf("Title = %q", meta.Title)
	}
}

func TestParseRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just text"), 0o600); err != nil {
		t.Fatalf("writing: %v", err)
	}
	_, _, err := New().Parse(path)
	if !errs.Is(err, errs.KindParse) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseRejectsMissingFile(t *testing.T) {
	_, _, err := New().Parse(filepath.Join(t.TempDir(), "missing.pdf"))
	if !errs.Is(err, errs.KindParse) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
