// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httpclient builds the hardened *http.Client shared by every
// provider adapter, per spec §4.4: HTTPS-only, TLS 1.2+, system CA roots,
// HTTP/2 preferred, pooled idle connections, and a polite-pool User-Agent
// that carries a contact email so providers can reach out before banning
// an IP.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Options configures the client factory.
type Options struct {
	// ContactEmail is embedded in the User-Agent string for providers
	// that offer a polite pool (arXiv, Crossref, OpenAlex, Unpaywall).
	ContactEmail string
	// AppVersion is embedded alongside the product token in the
	// User-Agent string.
	AppVersion string
	// DialTimeout bounds establishing the TCP connection.
	DialTimeout time.Duration
	// ResponseHeaderTimeout bounds waiting for the response status line
	// and headers once the request has been written.
	ResponseHeaderTimeout time.Duration
	// IdleConnTimeout bounds how long a pooled idle connection is kept
	// before being closed.
	IdleConnTimeout time.Duration
	// MaxIdleConnsPerHost bounds the pooled idle connections kept open
	// to any one provider host.
	MaxIdleConnsPerHost int
}

// DefaultOptions mirrors spec §6.4 request/transport defaults.
func DefaultOptions() Options {
	return Options{
		AppVersion:            "1.0",
		DialTimeout:           10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		MaxIdleConnsPerHost:   10,
	}
}

// httpsOnlyTransport wraps a RoundTripper and rejects any request whose
// scheme is not https, per spec §4.4's HTTPS-only enforcement. This runs
// even if a misconfigured provider descriptor somehow supplies an http://
// base URL.
type httpsOnlyTransport struct {
	base http.RoundTripper
}

func (t *httpsOnlyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return nil, fmt.Errorf("httpclient: refusing non-HTTPS request to %s", req.URL)
	}
	return t.base.RoundTrip(req)
}

// New builds a hardened *http.Client. It does not set a User-Agent; callers
// stamp the value from UserAgent on each request (see NewRequest).
func New(opts Options) *http.Client {
	dialer := &net.Dialer{Timeout: opts.DialTimeout}

	transport := &http.Transport{
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		IdleConnTimeout:       opts.IdleConnTimeout,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		ForceAttemptHTTP2:     true,
	}

	// Best-effort HTTP/2 configuration on top of the TLS transport; if a
	// provider only speaks HTTP/1.1 the transport falls back transparently.
	_ = http2.ConfigureTransport(transport)

	return &http.Client{
		Transport: &httpsOnlyTransport{base: transport},
	}
}

// UserAgent composes the polite-pool User-Agent header value for opts.
func UserAgent(product string, opts Options) string {
	if opts.ContactEmail == "" {
		return fmt.Sprintf("%s/%s", product, opts.AppVersion)
	}
	return fmt.Sprintf("%s/%s (+mailto:%s)", product, opts.AppVersion, opts.ContactEmail)
}

// NewRequest builds an HTTP GET request with the context, URL, and the
// given User-Agent and Accept headers applied, matching the pattern every
// provider adapter uses to issue a request through the shared client.
func NewRequest(ctx context.Context, url, userAgent, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req, nil
}
