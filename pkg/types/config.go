// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DownloadConfig holds settings for the streaming downloader (C8).
// Per spec §6.4.
type DownloadConfig struct {
	Directory        string `mapstructure:"directory"`
	MaxFileSizeMB    int    `mapstructure:"max_file_size_mb"`
	MaxConcurrent    int    `mapstructure:"max_concurrent"`
	VerifyIntegrity  bool   `mapstructure:"verify_integrity"`
}

// RequestConfig holds settings shared by the request shell and orchestrator.
// Per spec §6.4.
type RequestConfig struct {
	MaxConcurrent       int `mapstructure:"max_concurrent"`
	TimeoutSecs         int `mapstructure:"timeout_secs"`
	OverallTimeoutSecs  int `mapstructure:"overall_timeout_secs"`
}

// RateLimitConfig holds the default and per-provider rate-limit overrides.
// Per spec §6.4.
type RateLimitConfig struct {
	DefaultPerSec float64            `mapstructure:"default_per_sec"`
	PerProvider   map[string]float64 `mapstructure:"-"`
}

// CircuitBreakerConfig holds the breaker's tunables. Per spec §6.4.
type CircuitBreakerConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	RecoverySecs     int `mapstructure:"recovery_secs"`
	HalfOpenProbes   int `mapstructure:"half_open_probes"`
}

// RetryConfig holds the retry/backoff tunables. Per spec §6.4.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelayMs int `mapstructure:"base_delay_ms"`
	MaxDelayMs  int `mapstructure:"max_delay_ms"`
}

// IdentificationConfig holds the polite-pool contact identity. Per spec §6.4.
type IdentificationConfig struct {
	ContactEmail string `mapstructure:"contact_email"`
	Product      string `mapstructure:"product"`
	Version      string `mapstructure:"version"`
}

// CacheConfig holds the advisory cache's tunables: per-category LRU
// capacity and the optional SQLite warm-start snapshot path. An empty
// SnapshotPath disables warm-start persistence entirely.
type CacheConfig struct {
	Capacity            int    `mapstructure:"capacity"`
	SnapshotPath        string `mapstructure:"snapshot_path"`
	SearchTTLSecs       int    `mapstructure:"search_ttl_secs"`
	MetadataTTLSecs     int    `mapstructure:"metadata_ttl_secs"`
	NegativeTTLSecs     int    `mapstructure:"negative_ttl_secs"`
}

// Config is the immutable configuration snapshot consumed at startup,
// assembled by internal/config.Load from defaults + file + env per spec §6.4.
type Config struct {
	Download       DownloadConfig       `mapstructure:"download"`
	Request        RequestConfig        `mapstructure:"request"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry          RetryConfig          `mapstructure:"retry"`
	Identification IdentificationConfig `mapstructure:"identification"`
	Cache          CacheConfig          `mapstructure:"cache"`
	AuthKeys       map[string]string    `mapstructure:"-"`
}

// Default returns a Config populated with every spec §6.4 default.
func Default() Config {
	return Config{
		Download: DownloadConfig{
			Directory:       "./papers",
			MaxFileSizeMB:   100,
			MaxConcurrent:   3,
			VerifyIntegrity: true,
		},
		Request: RequestConfig{
			MaxConcurrent:      16,
			TimeoutSecs:        30,
			OverallTimeoutSecs: 120,
		},
		RateLimit: RateLimitConfig{
			DefaultPerSec: 2.0,
			PerProvider:   map[string]float64{},
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			RecoverySecs:     30,
			HalfOpenProbes:   3,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMs: 250,
			MaxDelayMs:  30000,
		},
		Identification: IdentificationConfig{
			Product: "paper-mcp",
			Version: "dev",
		},
		Cache: CacheConfig{
			Capacity:        2048,
			SnapshotPath:    "",
			SearchTTLSecs:   3600,
			MetadataTTLSecs: 86400,
			NegativeTTLSecs: 300,
		},
		AuthKeys: map[string]string{},
	}
}

// RequestTimeout returns Request.TimeoutSecs as a time.Duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Request.TimeoutSecs) * time.Second
}

// OverallTimeout returns Request.OverallTimeoutSecs as a time.Duration.
func (c Config) OverallTimeout() time.Duration {
	return time.Duration(c.Request.OverallTimeoutSecs) * time.Second
}

// RateFor returns the configured tokens/sec for provider, falling back to
// the default when no per-provider override exists.
func (c Config) RateFor(provider string) float64 {
	if v, ok := c.RateLimit.PerProvider[provider]; ok {
		return v
	}
	return c.RateLimit.DefaultPerSec
}

// SearchTTL returns Cache.SearchTTLSecs as a time.Duration.
func (c Config) SearchTTL() time.Duration {
	return time.Duration(c.Cache.SearchTTLSecs) * time.Second
}

// MetadataTTL returns Cache.MetadataTTLSecs as a time.Duration.
func (c Config) MetadataTTL() time.Duration {
	return time.Duration(c.Cache.MetadataTTLSecs) * time.Second
}

// NegativeTTL returns Cache.NegativeTTLSecs as a time.Duration.
func (c Config) NegativeTTL() time.Duration {
	return time.Duration(c.Cache.NegativeTTLSecs) * time.Second
}
