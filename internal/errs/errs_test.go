// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package errs

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantKind      Kind
		wantRetriable bool
	}{
		{"429 rate limited", http.StatusTooManyRequests, KindRateLimited, true},
		{"503 server error", http.StatusServiceUnavailable, KindProvider, true},
		{"404 not found", http.StatusNotFound, KindProvider, false},
		{"401 auth", http.StatusUnauthorized, KindProvider, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := FromHTTPStatus("arxiv", tt.status, nil)
			if e.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", e.Kind, tt.wantKind)
			}
			if e.Retriable != tt.wantRetriable {
				t.Errorf("Retriable = %v, want %v", e.Retriable, tt.wantRetriable)
			}
			if e.Provider != "arxiv" {
				t.Errorf("Provider = %q, want arxiv", e.Provider)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if got := Classify("core", context.DeadlineExceeded); got.Kind != KindTimeout {
		t.Errorf("Classify(deadline) = %v, want Timeout", got.Kind)
	}
	if got := Classify("core", context.Canceled); got.Kind != KindCancelled {
		t.Errorf("Classify(canceled) = %v, want Cancelled", got.Kind)
	}
	if got := Classify("core", errors.New("connection reset")); got.Kind != KindNetwork {
		t.Errorf("Classify(generic) = %v, want NetworkError", got.Kind)
	}

	existing := New(KindNoResults, nil)
	if got := Classify("core", existing); got != existing {
		t.Errorf("Classify should pass through an already-typed *Error")
	}
}

func TestIs(t *testing.T) {
	err := New(KindCircuitOpen, nil).WithProvider("arxiv")
	if !Is(err, KindCircuitOpen) {
		t.Error("Is(err, KindCircuitOpen) = false, want true")
	}
	if Is(err, KindTimeout) {
		t.Error("Is(err, KindTimeout) = true, want false")
	}
	if Is(errors.New("plain"), KindTimeout) {
		t.Error("Is on a non-*Error should be false")
	}
}

func TestRetriableDefaults(t *testing.T) {
	if !New(KindTimeout, nil).Retriable {
		t.Error("Timeout should default retriable")
	}
	if New(KindValidation, nil).Retriable {
		t.Error("ValidationError should default non-retriable")
	}
}
