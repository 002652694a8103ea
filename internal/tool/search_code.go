// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/meshintel/paper-mcp/internal/errs"
)

// SearchCode is a local pattern search over a directory tree: `search_code
// (pattern, search_dir?, extensions?, max_results?, context_lines?) ->
// matches[]`. It has no network or provider dependency, unlike
// search_papers, download_paper and generate_bibliography; no pack library wraps a grep-style walk-and-match utility,
// so this is a direct regexp/filepath.WalkDir implementation.
type SearchCode struct {
	DefaultDir string
}

type searchCodeInput struct {
	Pattern      string   `json:"pattern"`
	SearchDir    string   `json:"search_dir,omitempty"`
	Extensions   []string `json:"extensions,omitempty"`
	MaxResults   int      `json:"max_results,omitempty"`
	ContextLines int      `json:"context_lines,omitempty"`
}

// CodeMatch is one matched line plus its surrounding context.
type CodeMatch struct {
	Path       string   `json:"path"`
	Line       int      `json:"line"`
	Text       string   `json:"text"`
	ContextPre []string `json:"context_before,omitempty"`
	ContextPos []string `json:"context_after,omitempty"`
}

const defaultMaxResults = 100

func (SearchCode) Name() string        { return "search_code" }
func (SearchCode) Description() string { return "Search a local directory tree for a regular expression" }

func (SearchCode) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":       map[string]any{"type": "string"},
			"search_dir":    map[string]any{"type": "string"},
			"extensions":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"max_results":   map[string]any{"type": "integer", "minimum": 1},
			"context_lines": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"pattern"},
	}
}

func (s SearchCode) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in searchCodeInput
	if err := decodeArgs(raw, &in); err != nil {
		return nil, err
	}
	if in.Pattern == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("search_code: pattern is required"))
	}

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("search_code: invalid pattern: %w", err))
	}

	dir := in.SearchDir
	if dir == "" {
		dir = s.DefaultDir
	}
	maxResults := in.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	extSet := make(map[string]bool, len(in.Extensions))
	for _, e := range in.Extensions {
		extSet[strings.ToLower(e)] = true
	}

	var matches []CodeMatch
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(matches) >= maxResults {
			return filepath.SkipAll
		}
		if d.IsDir() {
			return nil
		}
		if len(extSet) > 0 && !extSet[strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))] {
			return nil
		}
		found, err := searchFile(path, re, in.ContextLines, maxResults-len(matches))
		if err != nil {
			return nil
		}
		matches = append(matches, found...)
		return nil
	})
	if walkErr != nil && ctx.Err() != nil {
		return nil, errs.Classify("", ctx.Err())
	}

	return matches, nil
}

func searchFile(path string, re *regexp.Regexp, contextLines, remaining int) ([]CodeMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	var matches []CodeMatch
	for i, line := range lines {
		if len(matches) >= remaining {
			break
		}
		if !re.MatchString(line) {
			continue
		}
		matches = append(matches, CodeMatch{
			Path:       path,
			Line:       i + 1,
			Text:       line,
			ContextPre: contextWindow(lines, i-contextLines, i),
			ContextPos: contextWindow(lines, i+1, i+1+contextLines),
		})
	}
	return matches, nil
}

func contextWindow(lines []string, from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return nil
	}
	return append([]string(nil), lines[from:to]...)
}
