// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsWhenNoFileExists(t *testing.T) {
	dir := t.TempDir()
	prev, _ := os.Getwd()
	defer os.Chdir(prev)
	os.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Download.MaxFileSizeMB != 100 {
		t.Fatalf("MaxFileSizeMB = %d, want 100", cfg.Download.MaxFileSizeMB)
	}
	if cfg.Cache.Capacity != 2048 {
		t.Fatalf("Cache.Capacity = %d, want 2048", cfg.Cache.Capacity)
	}
	if cfg.RateLimit.DefaultPerSec != 2.0 {
		t.Fatalf("RateLimit.DefaultPerSec = %v, want 2.0", cfg.RateLimit.DefaultPerSec)
	}
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	body := `
download:
  max_file_size_mb: 250
cache:
  capacity: 4096
rate_limit:
  default_per_sec: 5.0
  per_provider:
    arxiv: 10.0
identification:
  contact_email: ops@example.com
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Download.MaxFileSizeMB != 250 {
		t.Fatalf("MaxFileSizeMB = %d, want 250", cfg.Download.MaxFileSizeMB)
	}
	if cfg.Cache.Capacity != 4096 {
		t.Fatalf("Cache.Capacity = %d, want 4096", cfg.Cache.Capacity)
	}
	if cfg.RateFor("arxiv") != 10.0 {
		t.Fatalf("RateFor(arxiv) = %v, want 10.0", cfg.RateFor("arxiv"))
	}
	if cfg.RateFor("crossref") != 5.0 {
		t.Fatalf("RateFor(crossref) = %v, want 5.0 (default)", cfg.RateFor("crossref"))
	}
	if cfg.Identification.ContactEmail != "ops@example.com" {
		t.Fatalf("ContactEmail = %q", cfg.Identification.ContactEmail)
	}
}

func TestLoadReportsErrorForMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
