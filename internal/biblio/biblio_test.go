// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package biblio

import (
	"strings"
	"testing"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

func samplePapers() []types.PaperMetadata {
	return []types.PaperMetadata{
		{
			Title:   "Attention Is All You Need",
			Authors: []string{"Ashish Vaswani", "Noam Shazeer"},
			Year:    2017,
			Venue:   "NeurIPS",
			DOI:     "10.5555/3295222.3295349",
		},
		{
			Title:   "Deep Residual Learning for Image Recognition",
			Authors: []string{"Kaiming He"},
			Year:    2016,
			Venue:   "CVPR",
		},
	}
}

func TestFormatBibTeXContainsKeyFields(t *testing.T) {
	out, err := New().Format(samplePapers(), FormatBibTeX)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(out, "@article{vaswani2017attention,") {
		t.Fatalf("missing bibtex key, got:\n%s", out)
	}
	if !strings.Contains(out, "author = {Ashish Vaswani and Noam Shazeer}") {
		t.Fatalf("missing author list, got:\n%s", out)
	}
	if !strings.Contains(out, "doi = {10.5555/3295222.3295349}") {
		t.Fatalf("missing doi, got:\n%s", out)
	}
}

func TestFormatAPAUsesSurnameFirst(t *testing.T) {
	out, err := New().Format(samplePapers()[:1], FormatAPA)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := "Vaswani, A. & Shazeer, N. (2017). Attention Is All You Need. NeurIPS. https://doi.org/10.5555/3295222.3295349"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestFormatIEEENumbersEntries(t *testing.T) {
	out, err := New().Format(samplePapers(), FormatIEEE)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "[1] ") || !strings.HasPrefix(lines[1], "[2] ") {
		t.Fatalf("expected numbered entries, got:\n%s", out)
	}
}

func TestFormatRejectsUnknownFormat(t *testing.T) {
	_, err := New().Format(samplePapers(), Format("turabian"))
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFormatHandlesMissingFields(t *testing.T) {
	p := types.PaperMetadata{Title: "Untitled Work"}
	for _, f := range []Format{FormatBibTeX, FormatAPA, FormatMLA, FormatChicago, FormatIEEE, FormatHarvard} {
		out, err := New().Format([]types.PaperMetadata{p}, f)
		if err != nil {
			t.Fatalf("Format(%s): %v", f, err)
		}
		if !strings.Contains(out, "Untitled Work") {
			t.Fatalf("Format(%s) dropped title: %q", f, out)
		}
	}
}

func TestSortByAuthorYearOrdersBySurnameThenYear(t *testing.T) {
	papers := []types.PaperMetadata{
		{Title: "B", Authors: []string{"Zed Zeta"}, Year: 2020},
		{Title: "A", Authors: []string{"Ann Alpha"}, Year: 2019},
	}
	sorted := SortByAuthorYear(papers)
	if sorted[0].Title != "A" || sorted[1].Title != "B" {
		t.Fatalf("got %+v", sorted)
	}
}
