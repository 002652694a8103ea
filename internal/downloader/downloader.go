// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package downloader implements the streaming, resumable, integrity-checked
// PDF downloader (C8), generalizing a temp-file-then-rename download
// helper into a resumable, digest-verified, path-contained streaming copy.
package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// Options configures one Downloader instance.
type Options struct {
	// Root is the configured download root; every destination path must
	// canonicalize to a descendant of Root.
	Root string
	// MaxFileSize bounds the total bytes written; zero means unbounded.
	MaxFileSize int64
	// InactivityTimeout aborts a download that receives no bytes for this
	// long, per spec §4.8 step 5.
	InactivityTimeout time.Duration
	// ProgressInterval is the minimum spacing between progress events for
	// files at or above 1 MiB; smaller files emit on every chunk.
	ProgressInterval time.Duration
}

// DefaultOptions mirrors spec §6.4's download defaults.
func DefaultOptions(root string) Options {
	return Options{
		Root:              root,
		MaxFileSize:       100 * 1024 * 1024,
		InactivityTimeout: 30 * time.Second,
		ProgressInterval:  500 * time.Millisecond,
	}
}

// chunkSize is this client's streaming read size.
const chunkSize = 32 * 1024

// smallFileThreshold is the size below which progress fires on every
// chunk instead of being throttled by ProgressInterval.
const smallFileThreshold = 1024 * 1024

// Progress is one snapshot emitted during a download.
type Progress struct {
	BytesDownloaded int64
	TotalBytes      int64
	SpeedBytesPerS  float64
}

// ProgressFunc receives Progress events; events are monotonically ordered
// and strictly non-decreasing in BytesDownloaded.
type ProgressFunc func(Progress)

// Downloader streams one DownloadTask to disk at a time; callers run
// multiple Downloaders (or call Download concurrently on distinct tasks)
// to achieve download.max_concurrent fan-out — path-locking for
// same-destination overlap is the caller's responsibility via onProgress
// serialization, matching spec §4.8's "overlap on the same destination is
// serialized or refused" note.
type Downloader struct {
	Client *http.Client
	Opts   Options
}

// New builds a Downloader using client for transport.
func New(client *http.Client, opts Options) *Downloader {
	return &Downloader{Client: client, Opts: opts}
}

// Result is the outcome of a completed download.
type Result struct {
	Path       string
	Size       int64
	SHA256     string
	DurationMs int64
}

// Download executes task per the spec §4.8 contract: validates the
// destination, resumes from a `.partial` file when possible, streams with
// an inactivity timeout and a running digest, and atomically promotes the
// partial file to task.DestPath on success.
func (d *Downloader) Download(ctx context.Context, task *types.DownloadTask, onProgress ProgressFunc) (Result, error) {
	start := time.Now()

	destPath, err := d.validateDestination(task.URL, task.DestPath)
	if err != nil {
		return Result{}, err
	}
	task.DestPath = destPath

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return Result{}, errs.New(errs.KindValidation, fmt.Errorf("creating destination directory: %w", err))
	}

	partialPath := task.PartialPath()
	var resumeFrom int64
	if info, statErr := os.Stat(partialPath); statErr == nil {
		resumeFrom = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return Result{}, errs.New(errs.KindValidation, err)
	}
	canResume := resumeFrom > 0
	if canResume {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return Result{}, errs.Classify("", err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	writeOffset := int64(0)
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flags |= os.O_APPEND
		writeOffset = resumeFrom
	case http.StatusOK:
		flags |= os.O_TRUNC
		resumeFrom = 0
	default:
		return Result{}, errs.FromHTTPStatus("", resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	total := writeOffset + resp.ContentLength
	if resp.ContentLength < 0 {
		total = 0
	}
	if d.Opts.MaxFileSize > 0 && total > d.Opts.MaxFileSize {
		return Result{}, errs.New(errs.KindFileTooLarge, fmt.Errorf("expected size %d exceeds max %d", total, d.Opts.MaxFileSize))
	}

	f, err := os.OpenFile(partialPath, flags, 0o600)
	if err != nil {
		return Result{}, errs.New(errs.KindValidation, fmt.Errorf("opening partial file: %w", err))
	}

	digest := sha256.New()
	if writeOffset > 0 {
		if err := rehashExisting(digest, partialPath, writeOffset); err != nil {
			f.Close()
			return Result{}, errs.New(errs.KindValidation, fmt.Errorf("rehashing resumed bytes: %w", err))
		}
	}

	written, copyErr := d.streamCopy(ctx, f, io.TeeReader(resp.Body, digest), writeOffset, total, task, onProgress)
	closeErr := f.Close()

	if copyErr != nil {
		if errs.Is(copyErr, errs.KindFileTooLarge) {
			return Result{}, copyErr
		}
		task.State = types.DownloadFailed
		if ctx.Err() != nil {
			task.State = types.DownloadCancelled
		}
		return Result{}, copyErr
	}
	if closeErr != nil {
		return Result{}, errs.New(errs.KindValidation, fmt.Errorf("closing partial file: %w", closeErr))
	}

	sum := hex.EncodeToString(digest.Sum(nil))
	if task.ExpectedDigest != "" && !strings.EqualFold(sum, task.ExpectedDigest) {
		os.Remove(partialPath)
		return Result{}, errs.New(errs.KindIntegrityMismatch, fmt.Errorf("got %s, want %s", sum, task.ExpectedDigest))
	}

	if err := fsyncPath(partialPath); err != nil {
		return Result{}, errs.New(errs.KindValidation, fmt.Errorf("fsync: %w", err))
	}
	if err := os.Rename(partialPath, destPath); err != nil {
		return Result{}, errs.New(errs.KindValidation, fmt.Errorf("promoting partial file: %w", err))
	}

	task.State = types.DownloadCompleted
	return Result{
		Path:       destPath,
		Size:       written,
		SHA256:     sum,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// validateDestination enforces spec §4.8 step 1: HTTPS source and a
// destination that canonicalizes to a descendant of Root.
func (d *Downloader) validateDestination(rawURL, destPath string) (string, error) {
	if !strings.HasPrefix(rawURL, "https://") {
		return "", errs.New(errs.KindValidation, fmt.Errorf("download URL must be HTTPS: %q", rawURL))
	}

	root, err := filepath.Abs(d.Opts.Root)
	if err != nil {
		return "", errs.New(errs.KindValidation, err)
	}
	joined := filepath.Join(root, destPath)
	resolved, err := filepath.EvalSymlinks(filepath.Dir(joined))
	if err != nil {
		// Destination directory may not exist yet; fall back to lexical
		// containment check on the unresolved join.
		resolved = filepath.Dir(joined)
	}
	candidate := filepath.Join(resolved, filepath.Base(joined))

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errs.New(errs.KindValidation, fmt.Errorf("destination %q escapes download root", destPath))
	}
	return candidate, nil
}

// streamCopy copies src into f in chunkSize reads, enforcing max file
// size and the inactivity timeout, and emitting progress events.
func (d *Downloader) streamCopy(ctx context.Context, f *os.File, src io.Reader, startOffset, total int64, task *types.DownloadTask, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, chunkSize)
	written := startOffset
	bytesSinceEvent := int64(0)
	lastEvent := time.Now()
	lastActivity := time.Now()
	inactivity := d.Opts.InactivityTimeout
	if inactivity <= 0 {
		inactivity = 30 * time.Second
	}

	for {
		if err := ctx.Err(); err != nil {
			return written, errs.Classify("", err)
		}
		if time.Since(lastActivity) > inactivity {
			return written, errs.New(errs.KindTimeout, fmt.Errorf("no bytes received for %s", inactivity))
		}

		type readResult struct {
			n   int
			err error
		}
		done := make(chan readResult, 1)
		go func() {
			n, err := src.Read(buf)
			done <- readResult{n, err}
		}()
		var n int
		var readErr error
		select {
		case r := <-done:
			n, readErr = r.n, r.err
		case <-time.After(inactivity - time.Since(lastActivity)):
			return written, errs.New(errs.KindTimeout, fmt.Errorf("no bytes received for %s", inactivity))
		}
		if n > 0 {
			lastActivity = time.Now()
			if d.Opts.MaxFileSize > 0 && written+int64(n) > d.Opts.MaxFileSize {
				return written, errs.New(errs.KindFileTooLarge, fmt.Errorf("download exceeds max size %d", d.Opts.MaxFileSize))
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				return written, errs.New(errs.KindValidation, fmt.Errorf("writing chunk: %w", werr))
			}
			written += int64(n)
			bytesSinceEvent += int64(n)
			task.BytesDownloaded = written
			task.TotalBytes = total
			task.State = types.DownloadDownloading

			interval := d.Opts.ProgressInterval
			if total > 0 && total < smallFileThreshold {
				interval = 0
			}
			sinceEvent := time.Since(lastEvent)
			if onProgress != nil && sinceEvent >= interval {
				speed := float64(0)
				if sinceEvent.Seconds() > 0 {
					speed = float64(bytesSinceEvent) / sinceEvent.Seconds()
				}
				onProgress(Progress{BytesDownloaded: written, TotalBytes: total, SpeedBytesPerS: speed})
				lastEvent = time.Now()
				bytesSinceEvent = 0
			}
		}
		if readErr == io.EOF {
			if onProgress != nil {
				onProgress(Progress{BytesDownloaded: written, TotalBytes: total})
			}
			return written, nil
		}
		if readErr != nil {
			return written, errs.Classify("", readErr)
		}
	}
}

// rehashExisting feeds the first n bytes of path into digest so a resumed
// download's final SHA-256 covers the bytes written in a prior attempt.
func rehashExisting(digest io.Writer, path string, n int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.CopyN(digest, f, n)
	if err == io.EOF {
		return nil
	}
	return err
}

func fsyncPath(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

