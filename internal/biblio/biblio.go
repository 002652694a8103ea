// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package biblio defines the bibliography-formatter collaborator contract
// of spec §6.5: given a slice of PaperMetadata and a format tag, return a
// formatted string. The real formatter is an out-of-core collaborator;
// this package ships a default, template-based implementation covering
// the six tags the spec names (bibtex, apa, mla, chicago, ieee, harvard),
// grounded on the same bibliography-entry shape a citation-extraction
// pipeline parses out of Markdown references sections.
package biblio

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// Format is one of the six citation styles named in spec §6.5.
type Format string

const (
	FormatBibTeX  Format = "bibtex"
	FormatAPA     Format = "apa"
	FormatMLA     Format = "mla"
	FormatChicago Format = "chicago"
	FormatIEEE    Format = "ieee"
	FormatHarvard Format = "harvard"
)

// Formatter renders a set of papers into one format string.
type Formatter interface {
	Format(papers []types.PaperMetadata, format Format) (string, error)
}

type templateFormatter struct{}

// New returns the default Formatter.
func New() Formatter { return templateFormatter{} }

func (templateFormatter) Format(papers []types.PaperMetadata, format Format) (string, error) {
	var render func(int, types.PaperMetadata) string
	switch format {
	case FormatBibTeX:
		render = renderBibTeX
	case FormatAPA:
		render = renderAPA
	case FormatMLA:
		render = renderMLA
	case FormatChicago:
		render = renderChicago
	case FormatIEEE:
		render = renderIEEE
	case FormatHarvard:
		render = renderHarvard
	default:
		return "", errs.New(errs.KindValidation, fmt.Errorf("unsupported bibliography format %q", format))
	}

	entries := make([]string, len(papers))
	for i, p := range papers {
		entries[i] = render(i+1, p)
	}
	return strings.Join(entries, "\n"), nil
}

func renderBibTeX(idx int, p types.PaperMetadata) string {
	key := bibtexKey(p)
	var sb strings.Builder
	fmt.Fprintf(&sb, "@article{%s,\n", key)
	fmt.Fprintf(&sb, "  title = {%s},\n", p.Title)
	if len(p.Authors) > 0 {
		fmt.Fprintf(&sb, "  author = {%s},\n", strings.Join(p.Authors, " and "))
	}
	if p.Year != 0 {
		fmt.Fprintf(&sb, "  year = {%d},\n", p.Year)
	}
	if p.Venue != "" {
		fmt.Fprintf(&sb, "  journal = {%s},\n", p.Venue)
	}
	if p.DOI != "" {
		fmt.Fprintf(&sb, "  doi = {%s},\n", p.DOI)
	}
	sb.WriteString("}")
	return sb.String()
}

func bibtexKey(p types.PaperMetadata) string {
	surname := "anon"
	if len(p.Authors) > 0 {
		surname = strings.ToLower(lastWord(p.Authors[0]))
	}
	year := "n.d."
	if p.Year != 0 {
		year = strconv.Itoa(p.Year)
	}
	firstWord := "untitled"
	if fields := strings.Fields(p.Title); len(fields) > 0 {
		firstWord = strings.ToLower(strings.Trim(fields[0], ",.;:"))
	}
	return fmt.Sprintf("%s%s%s", surname, year, firstWord)
}

func lastWord(name string) string {
	name = strings.TrimSpace(name)
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	last := fields[len(fields)-1]
	return strings.Trim(last, ",")
}

// authorSurnameFirst renders "Surname, F." given a "First Last" name; it
// passes through names already in "Last, First" form.
func authorSurnameFirst(name string) string {
	if strings.Contains(name, ",") {
		return name
	}
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return name
	}
	last := fields[len(fields)-1]
	initials := make([]string, 0, len(fields)-1)
	for _, f := range fields[:len(fields)-1] {
		initials = append(initials, strings.ToUpper(f[:1])+".")
	}
	return fmt.Sprintf("%s, %s", last, strings.Join(initials, " "))
}

func renderAPA(_ int, p types.PaperMetadata) string {
	authors := formatAuthorList(p.Authors, authorSurnameFirst, "&")
	year := yearOr(p.Year, "n.d.")
	var sb strings.Builder
	if authors != "" {
		fmt.Fprintf(&sb, "%s (%s). ", authors, year)
	} else {
		fmt.Fprintf(&sb, "(%s). ", year)
	}
	fmt.Fprintf(&sb, "%s.", strings.TrimSuffix(p.Title, "."))
	if p.Venue != "" {
		fmt.Fprintf(&sb, " %s.", p.Venue)
	}
	if p.DOI != "" {
		fmt.Fprintf(&sb, " https://doi.org/%s", p.DOI)
	}
	return sb.String()
}

func renderMLA(_ int, p types.PaperMetadata) string {
	authors := formatAuthorList(p.Authors, authorSurnameFirst, "and")
	var sb strings.Builder
	if authors != "" {
		fmt.Fprintf(&sb, "%s. ", authors)
	}
	fmt.Fprintf(&sb, "\"%s.\"", strings.TrimSuffix(p.Title, "."))
	if p.Venue != "" {
		fmt.Fprintf(&sb, " %s,", p.Venue)
	}
	if p.Year != 0 {
		fmt.Fprintf(&sb, " %d.", p.Year)
	} else {
		sb.WriteString(" n.d.")
	}
	return sb.String()
}

func renderChicago(_ int, p types.PaperMetadata) string {
	authors := formatAuthorList(p.Authors, authorSurnameFirst, "and")
	var sb strings.Builder
	if authors != "" {
		fmt.Fprintf(&sb, "%s. ", authors)
	}
	fmt.Fprintf(&sb, "\"%s.\"", strings.TrimSuffix(p.Title, "."))
	if p.Venue != "" {
		fmt.Fprintf(&sb, " %s", p.Venue)
	}
	if p.Year != 0 {
		fmt.Fprintf(&sb, " (%d).", p.Year)
	} else {
		sb.WriteString(".")
	}
	return sb.String()
}

func renderIEEE(idx int, p types.PaperMetadata) string {
	authors := formatAuthorList(p.Authors, ieeeInitialsFirst, "and")
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] ", idx)
	if authors != "" {
		fmt.Fprintf(&sb, "%s, ", authors)
	}
	fmt.Fprintf(&sb, "\"%s,\"", strings.TrimSuffix(p.Title, "."))
	if p.Venue != "" {
		fmt.Fprintf(&sb, " %s,", p.Venue)
	}
	if p.Year != 0 {
		fmt.Fprintf(&sb, " %d.", p.Year)
	} else {
		sb.WriteString(".")
	}
	return sb.String()
}

func ieeeInitialsFirst(name string) string {
	if strings.Contains(name, ",") {
		return name
	}
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return name
	}
	last := fields[len(fields)-1]
	initials := make([]string, 0, len(fields)-1)
	for _, f := range fields[:len(fields)-1] {
		initials = append(initials, strings.ToUpper(f[:1])+".")
	}
	return fmt.Sprintf("%s %s", strings.Join(initials, " "), last)
}

func renderHarvard(_ int, p types.PaperMetadata) string {
	authors := formatAuthorList(p.Authors, authorSurnameFirst, "and")
	year := yearOr(p.Year, "n.d.")
	var sb strings.Builder
	if authors != "" {
		fmt.Fprintf(&sb, "%s, %s. ", authors, year)
	} else {
		fmt.Fprintf(&sb, "%s. ", year)
	}
	fmt.Fprintf(&sb, "%s.", strings.TrimSuffix(p.Title, "."))
	if p.Venue != "" {
		fmt.Fprintf(&sb, " %s.", p.Venue)
	}
	return sb.String()
}

func yearOr(year int, fallback string) string {
	if year == 0 {
		return fallback
	}
	return strconv.Itoa(year)
}

// formatAuthorList joins authors with per-author reformatting, using conj
// before the final author in a multi-author list.
func formatAuthorList(authors []string, perAuthor func(string) string, conj string) string {
	if len(authors) == 0 {
		return ""
	}
	formatted := make([]string, len(authors))
	for i, a := range authors {
		formatted[i] = perAuthor(a)
	}
	if len(formatted) == 1 {
		return formatted[0]
	}
	return strings.Join(formatted[:len(formatted)-1], ", ") + " " + conj + " " + formatted[len(formatted)-1]
}

// SortByAuthorYear orders papers the way APA/Chicago/Harvard reference
// lists conventionally do: first author surname, then year.
func SortByAuthorYear(papers []types.PaperMetadata) []types.PaperMetadata {
	sorted := make([]types.PaperMetadata, len(papers))
	copy(sorted, papers)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := firstSurname(sorted[i]), firstSurname(sorted[j])
		if si != sj {
			return si < sj
		}
		return sorted[i].Year < sorted[j].Year
	})
	return sorted
}

func firstSurname(p types.PaperMetadata) string {
	if len(p.Authors) == 0 {
		return ""
	}
	return strings.ToLower(lastWord(p.Authors[0]))
}
