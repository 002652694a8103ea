// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRejectsPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(DefaultOptions())
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil) // srv.URL is http://
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Do(req); err == nil {
		t.Fatal("expected plain-HTTP request to be rejected")
	}
}

func TestNewAllowsHTTPS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(DefaultOptions())
	client.Transport.(*httpsOnlyTransport).base.(*http.Transport).TLSClientConfig.InsecureSkipVerify = true

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("expected HTTPS request to succeed, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestUserAgentWithContactEmail(t *testing.T) {
	opts := DefaultOptions()
	opts.ContactEmail = "ops@example.com"
	ua := UserAgent("paper-mcp", opts)
	if !strings.Contains(ua, "ops@example.com") {
		t.Errorf("UserAgent() = %q, want contact email present", ua)
	}
	if !strings.HasPrefix(ua, "paper-mcp/") {
		t.Errorf("UserAgent() = %q, want product token prefix", ua)
	}
}

func TestUserAgentWithoutContactEmail(t *testing.T) {
	opts := DefaultOptions()
	ua := UserAgent("paper-mcp", opts)
	if strings.Contains(ua, "mailto") {
		t.Errorf("UserAgent() = %q, want no mailto clause without a contact email", ua)
	}
}

func TestNewRequestSetsHeaders(t *testing.T) {
	req, err := NewRequest(context.Background(), "https://api.example.com/search", "paper-mcp/1.0", "application/json")
	if err != nil {
		t.Fatal(err)
	}
	if req.Header.Get("User-Agent") != "paper-mcp/1.0" {
		t.Errorf("User-Agent = %q", req.Header.Get("User-Agent"))
	}
	if req.Header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", req.Header.Get("Accept"))
	}
}
