// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DownloadState is the state machine a DownloadTask moves through.
// Pending -> Downloading -> (Paused <-> Downloading)* -> {Completed|Failed|Cancelled}.
type DownloadState string

const (
	DownloadPending     DownloadState = "pending"
	DownloadDownloading DownloadState = "downloading"
	DownloadPaused      DownloadState = "paused"
	DownloadCompleted   DownloadState = "completed"
	DownloadFailed      DownloadState = "failed"
	DownloadCancelled   DownloadState = "cancelled"
)

// Terminal reports whether s is a sink state.
func (s DownloadState) Terminal() bool {
	switch s {
	case DownloadCompleted, DownloadFailed, DownloadCancelled:
		return true
	default:
		return false
	}
}

// DownloadTask describes one in-flight PDF download, owned by the
// downloader for the duration of the download and discarded once terminal.
type DownloadTask struct {
	URL            string
	DestPath       string
	ExpectedSize   int64
	ExpectedDigest string

	BytesDownloaded int64
	TotalBytes      int64
	SpeedBytesPerS  float64
	State           DownloadState
}

// PartialPath returns the temporary path a task writes to before promotion.
func (t DownloadTask) PartialPath() string {
	return t.DestPath + ".partial"
}
