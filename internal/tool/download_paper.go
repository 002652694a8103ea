// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meshintel/paper-mcp/internal/cascade"
	"github.com/meshintel/paper-mcp/internal/downloader"
	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// DownloadPaper wraps the cascade resolver and streaming downloader as the
// download_paper tool: `download_paper(doi|url, filename?, directory?,
// overwrite?, verify?) -> {path, size, sha256, duration_ms}`.
type DownloadPaper struct {
	Resolver   *cascade.Resolver
	Downloader *downloader.Downloader
	Root       string
}

type downloadPaperInput struct {
	DOI       string `json:"doi,omitempty"`
	URL       string `json:"url,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Directory string `json:"directory,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
	// Verify is accepted but Execute never reads it: no digest is compared
	// against the downloaded file.
	Verify bool `json:"verify,omitempty"`
}

type downloadPaperOutput struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	SHA256     string `json:"sha256"`
	DurationMs int64  `json:"duration_ms"`
}

func (DownloadPaper) Name() string { return "download_paper" }
func (DownloadPaper) Description() string {
	return "Resolve and stream a paper's PDF to the configured download root"
}

func (DownloadPaper) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"doi":       map[string]any{"type": "string"},
			"url":       map[string]any{"type": "string"},
			"filename":  map[string]any{"type": "string"},
			"directory": map[string]any{"type": "string"},
			"overwrite": map[string]any{"type": "boolean"},
			"verify":    map[string]any{"type": "boolean"},
		},
	}
}

func (d DownloadPaper) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in downloadPaperInput
	if err := decodeArgs(raw, &in); err != nil {
		return nil, err
	}
	if in.DOI == "" && in.URL == "" {
		return nil, errs.New(errs.KindValidation, fmt.Errorf("download_paper: one of doi or url is required"))
	}

	pdfURL := in.URL
	doi := types.CanonicalDOI(in.DOI)
	if pdfURL == "" {
		res, err := d.Resolver.Resolve(ctx, types.PaperMetadata{DOI: doi})
		if err != nil {
			return nil, err
		}
		pdfURL = res.URL
	}

	filename := in.Filename
	if filename == "" {
		filename = defaultFilename(doi, pdfURL)
	}
	directory := in.Directory
	if directory == "" {
		directory = d.Root
	}
	destPath := filepath.Join(directory, filename)

	if !in.Overwrite {
		if _, err := os.Stat(destPath); err == nil {
			return nil, errs.New(errs.KindValidation, fmt.Errorf("download_paper: %s already exists (set overwrite to replace it)", destPath))
		}
	}

	task := &types.DownloadTask{URL: pdfURL, DestPath: destPath, State: types.DownloadDownloading}
	result, err := d.Downloader.Download(ctx, task, nil)
	if err != nil {
		return nil, err
	}

	return downloadPaperOutput{
		Path:       result.Path,
		Size:       result.Size,
		SHA256:     result.SHA256,
		DurationMs: result.DurationMs,
	}, nil
}

// defaultFilename builds "<sanitized-doi>.pdf" per spec §6.3, falling back
// to the URL's basename when no DOI is available.
func defaultFilename(doi, pdfURL string) string {
	if doi != "" {
		return sanitizeFilename(doi) + ".pdf"
	}
	base := filepath.Base(pdfURL)
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "." || base == "/" {
		base = "download.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base += ".pdf"
	}
	return sanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base))) + ".pdf"
}

func sanitizeFilename(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == '/', r == '.', r == ':':
			sb.WriteByte('_')
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
