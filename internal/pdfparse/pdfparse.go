// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfparse defines the PDF-parser collaborator contract of spec
// §6.5: given a file path, return extracted PaperMetadata and optionally
// plain text. The real parser is an out-of-core collaborator; this package
// also ships a default, in-process implementation (sniffText) that reads
// whatever text a PDF's object streams expose without decompression, so
// extract_metadata has something real to return in a demo/test
// environment, not a production-grade PDF text layer.
package pdfparse

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// Parser extracts metadata (and optionally body text) from a file on disk.
// Implementations must return a *errs.Error with Kind ParseError on
// failure; the core treats extraction failures as non-retriable.
type Parser interface {
	Parse(path string) (types.PaperMetadata, string, error)
}

const pdfMagic = "%PDF-"

// sniffingParser is the default implementation: it recognizes the PDF
// header, pulls the /Info dictionary's Title/Author/CreationDate entries
// when they appear uncompressed (common for small or simply-produced
// PDFs), and falls back to concatenating any literal text it finds inside
// uncompressed stream-free content. It cannot decode compressed object
// streams or embedded fonts; that is exactly the gap the real external
// parser fills.
type sniffingParser struct{}

// New returns the default in-process Parser.
func New() Parser {
	return sniffingParser{}
}

var (
	titleRe  = regexp.MustCompile(`/Title\s*\((.*?)\)`)
	authorRe = regexp.MustCompile(`/Author\s*\((.*?)\)`)
	subjRe   = regexp.MustCompile(`/Subject\s*\((.*?)\)`)
	keywdRe  = regexp.MustCompile(`/Keywords\s*\((.*?)\)`)
	dateRe   = regexp.MustCompile(`/CreationDate\s*\(D:(\d{4})`)
)

func (sniffingParser) Parse(path string) (types.PaperMetadata, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.PaperMetadata{}, "", errs.New(errs.KindParse, fmt.Errorf("opening %s: %w", path, err))
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := f.Read(header); err != nil || string(header) != pdfMagic {
		return types.PaperMetadata{}, "", errs.New(errs.KindParse, fmt.Errorf("%s: missing PDF header", path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return types.PaperMetadata{}, "", errs.New(errs.KindParse, fmt.Errorf("reading %s: %w", path, err))
	}

	meta := types.PaperMetadata{
		Title:    firstMatch(titleRe, raw),
		Abstract: firstMatch(subjRe, raw),
	}
	if author := firstMatch(authorRe, raw); author != "" {
		meta.Authors = splitAuthors(author)
	}
	if kw := firstMatch(keywdRe, raw); kw != "" {
		meta.Keywords = strings.Split(kw, ",")
		for i := range meta.Keywords {
			meta.Keywords[i] = strings.TrimSpace(meta.Keywords[i])
		}
	}
	if m := dateRe.FindSubmatch(raw); m != nil {
		if y, err := strconv.Atoi(string(m[1])); err == nil {
			meta.Year = y
		}
	}
	if meta.Title == "" {
		meta.Title = fallbackTitle(path)
	}

	return meta, extractLiteralText(raw), nil
}

func firstMatch(re *regexp.Regexp, raw []byte) string {
	m := re.FindSubmatch(raw)
	if m == nil {
		return ""
	}
	return unescapePDFString(string(m[1]))
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`)
	return strings.TrimSpace(replacer.Replace(s))
}

func splitAuthors(author string) []string {
	sep := func(r rune) bool { return r == ';' || r == ',' }
	if strings.ContainsRune(author, ';') {
		// "Last, First; Last, First": commas belong to the names.
		sep = func(r rune) bool { return r == ';' }
	}
	parts := strings.FieldsFunc(author, sep)
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

func fallbackTitle(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".pdf")
}

// textRunRe matches a parenthesized text-show operand, e.g. "(Hello) Tj",
// the only text-extraction technique that needs no stream decompression.
var textRunRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*T[jJ]`)

// extractLiteralText scans for uncompressed text-show operators and joins
// their operands, best-effort. Compressed content streams (the common
// case for anything produced by a real PDF writer) yield no text here;
// that limitation is documented, not hidden.
func extractLiteralText(raw []byte) string {
	var sb strings.Builder
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, m := range textRunRe.FindAllSubmatch(scanner.Bytes(), -1) {
			sb.WriteString(unescapePDFString(string(m[1])))
			sb.WriteByte(' ')
		}
	}
	return strings.TrimSpace(sb.String())
}
