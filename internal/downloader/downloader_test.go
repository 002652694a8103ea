// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// newTestServer returns a TLS-backed httptest server (with its own
// InsecureSkipVerify-ready *http.Client via srv.Client()) serving body,
// honoring Range requests for resumption tests.
func newTestServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
		var start int
		fmt.Sscanf(rangeHeader, "bytes=%d-", &start)
		if start >= len(body) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(body)-1, len(body)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body[start:])
	}))
}

func TestDownloadBasicSuccess(t *testing.T) {
	body := []byte(strings.Repeat("A", 2048))
	srv := newTestServer(t, body)
	defer srv.Close()

	root := t.TempDir()
	d := New(srv.Client(), DefaultOptions(root))
	task := &types.DownloadTask{URL: srv.URL, DestPath: "paper.pdf"}

	res, err := d.Download(context.Background(), task, nil)
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if res.Size != int64(len(body)) {
		t.Errorf("Size = %d, want %d", res.Size, len(body))
	}
	if res.SHA256 != sha256Hex(body) {
		t.Errorf("SHA256 mismatch")
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("expected file at %s: %v", res.Path, err)
	}
	if _, err := os.Stat(task.PartialPath()); !os.IsNotExist(err) {
		t.Errorf("expected partial file removed after promotion")
	}
}

func TestDownloadRejectsPlainHTTP(t *testing.T) {
	root := t.TempDir()
	d := New(http.DefaultClient, DefaultOptions(root))
	task := &types.DownloadTask{URL: "http://insecure.example.com/p.pdf", DestPath: "p.pdf"}

	_, err := d.Download(context.Background(), task, nil)
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected ValidationError for plain HTTP, got %v", err)
	}
}

func TestDownloadRejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	d := New(http.DefaultClient, DefaultOptions(root))
	task := &types.DownloadTask{URL: "https://example.com/p.pdf", DestPath: "../../etc/passwd"}

	_, err := d.Download(context.Background(), task, nil)
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected ValidationError for path traversal, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(root, "..", "..", "etc", "passwd")); !os.IsNotExist(statErr) {
		t.Fatal("traversal target must not be created")
	}
}

func TestDownloadVerifiesDigestMismatch(t *testing.T) {
	body := []byte("hello world")
	srv := newTestServer(t, body)
	defer srv.Close()

	root := t.TempDir()
	d := New(srv.Client(), DefaultOptions(root))
	task := &types.DownloadTask{URL: srv.URL, DestPath: "p.pdf", ExpectedDigest: strings.Repeat("0", 64)}

	_, err := d.Download(context.Background(), task, nil)
	if !errs.Is(err, errs.KindIntegrityMismatch) {
		t.Fatalf("expected IntegrityMismatch, got %v", err)
	}
	if _, statErr := os.Stat(task.PartialPath()); !os.IsNotExist(statErr) {
		t.Error("expected partial file removed on integrity mismatch")
	}
}

func TestDownloadEnforcesMaxFileSize(t *testing.T) {
	body := []byte(strings.Repeat("B", 4096))
	srv := newTestServer(t, body)
	defer srv.Close()

	root := t.TempDir()
	opts := DefaultOptions(root)
	opts.MaxFileSize = 100
	d := New(srv.Client(), opts)
	task := &types.DownloadTask{URL: srv.URL, DestPath: "p.pdf"}

	_, err := d.Download(context.Background(), task, nil)
	if !errs.Is(err, errs.KindFileTooLarge) {
		t.Fatalf("expected FileTooLarge, got %v", err)
	}
}

func TestDownloadResumesFromPartialFile(t *testing.T) {
	body := []byte(strings.Repeat("C", 4096))
	srv := newTestServer(t, body)
	defer srv.Close()

	root := t.TempDir()
	d := New(srv.Client(), DefaultOptions(root))
	task := &types.DownloadTask{URL: srv.URL, DestPath: "p.pdf"}

	if err := os.MkdirAll(filepath.Dir(filepath.Join(root, task.DestPath)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, task.DestPath+".partial"), body[:2048], 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := d.Download(context.Background(), task, nil)
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if res.Size != int64(len(body)) {
		t.Errorf("Size = %d, want %d", res.Size, len(body))
	}
	if res.SHA256 != sha256Hex(body) {
		t.Error("expected resumed download's digest to cover the whole file")
	}
}

func TestDownloadInactivityTimeout(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("12345"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	root := t.TempDir()
	opts := DefaultOptions(root)
	opts.InactivityTimeout = 50 * time.Millisecond
	d := New(srv.Client(), opts)
	task := &types.DownloadTask{URL: srv.URL, DestPath: "p.pdf"}

	_, err := d.Download(context.Background(), task, nil)
	if !errs.Is(err, errs.KindTimeout) {
		t.Fatalf("expected Timeout on inactivity, got %v", err)
	}
}

func TestDownloadCancellationLeavesPartial(t *testing.T) {
	body := []byte(strings.Repeat("D", 8<<20))
	srv := newTestServer(t, body)
	defer srv.Close()

	root := t.TempDir()
	opts := DefaultOptions(root)
	opts.ProgressInterval = 0
	d := New(srv.Client(), opts)
	task := &types.DownloadTask{URL: srv.URL, DestPath: "p.pdf"}

	ctx, cancel := context.WithCancel(context.Background())
	progressed := make(chan struct{}, 1)
	_, err := d.Download(ctx, task, func(p Progress) {
		select {
		case progressed <- struct{}{}:
			cancel()
		default:
		}
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if task.State != types.DownloadCancelled && task.State != types.DownloadFailed {
		t.Errorf("task.State = %v, want Cancelled or Failed", task.State)
	}
}
