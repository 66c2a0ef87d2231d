// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "debrepo.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Repository.Codename != "stable" {
		t.Errorf("expected codename=stable, got %s", cfg.Repository.Codename)
	}
	if strings.Join(cfg.Repository.Architectures, ",") != "amd64,arm64" {
		t.Errorf("expected architectures amd64,arm64, got %v", cfg.Repository.Architectures)
	}
	if cfg.Storage.Backend != BackendFilesystem {
		t.Errorf("expected backend=filesystem, got %s", cfg.Storage.Backend)
	}
	if time.Duration(cfg.Service.BuildTimeout) != 30*time.Minute {
		t.Errorf("expected build_timeout=30m, got %v", time.Duration(cfg.Service.BuildTimeout))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad_RequiresDebrepoConfig(t *testing.T) {
	t.Setenv("DEBREPO_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DEBREPO_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "DEBREPO_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %q", err)
	}
}

func TestLoad_WithDebrepoConfig(t *testing.T) {
	t.Setenv("DEBREPO_CONFIG", writeConfig(t, `
environment: staging
paths:
  root: /test/root
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Paths.Root != "/test/root" {
		t.Errorf("expected root=/test/root, got %s", cfg.Paths.Root)
	}
	// Dependent defaults follow the root.
	if cfg.Paths.Keyring != "/test/root/keyring" {
		t.Errorf("expected keyring=/test/root/keyring, got %s", cfg.Paths.Keyring)
	}
	if cfg.Storage.Filesystem.Root != "/test/root/public" {
		t.Errorf("expected filesystem root=/test/root/public, got %s", cfg.Storage.Filesystem.Root)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
environment: staging

repository:
  codename: bookworm
  architectures: [amd64]
  public_url: https://apt.example.com

signing:
  name: Example Archive
  email: archive@example.com

storage:
  backend: s3
  s3:
    account_id: abc123
    bucket: packages
    access_key_id: key
    secret_access_key: secret

service:
  address: 127.0.0.1:9000
  build_timeout: 5m
  workers: 4
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Repository.Codename != "bookworm" {
		t.Errorf("expected codename=bookworm, got %s", cfg.Repository.Codename)
	}
	if len(cfg.Repository.Architectures) != 1 || cfg.Repository.Architectures[0] != "amd64" {
		t.Errorf("expected architectures=[amd64], got %v", cfg.Repository.Architectures)
	}
	if cfg.Signing.Email != "archive@example.com" {
		t.Errorf("expected email=archive@example.com, got %s", cfg.Signing.Email)
	}
	if cfg.Signing.RSABits != 4096 {
		t.Errorf("expected default rsa_bits=4096, got %d", cfg.Signing.RSABits)
	}
	if got := cfg.Storage.S3.ResolvedEndpoint(); got != "abc123.r2.cloudflarestorage.com" {
		t.Errorf("expected R2 endpoint, got %s", got)
	}
	if cfg.Storage.S3.Region != "auto" {
		t.Errorf("expected region=auto, got %s", cfg.Storage.S3.Region)
	}
	if time.Duration(cfg.Service.BuildTimeout) != 5*time.Minute {
		t.Errorf("expected build_timeout=5m, got %v", time.Duration(cfg.Service.BuildTimeout))
	}
	if cfg.Service.Workers != 4 || cfg.Service.QueueCapacity != 64 {
		t.Errorf("expected workers=4 queue_capacity=64, got %d %d", cfg.Service.Workers, cfg.Service.QueueCapacity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "service:\n  build_timeout: soon\n")); err == nil {
		t.Error("expected error for invalid duration")
	}
	if _, err := LoadFile(writeConfig(t, "repository: [not, a, mapping]\n")); err == nil {
		t.Error("expected error for malformed section")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
environment: production

paths:
  root: /default/root

storage:
  backend: filesystem
  concurrency: 2

service:
  rate_limit: 10

production:
  paths:
    root: /prod/root
  storage:
    backend: gcs
    gcs:
      bucket: prod-packages
  service:
    trust_proxy: true

staging:
  storage:
    backend: memory
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Root != "/prod/root" {
		t.Errorf("expected root=/prod/root, got %s", cfg.Paths.Root)
	}
	if cfg.Paths.Keyring != "/prod/root/keyring" {
		t.Errorf("expected keyring under overridden root, got %s", cfg.Paths.Keyring)
	}
	if cfg.Storage.Backend != BackendGCS || cfg.Storage.GCS.Bucket != "prod-packages" {
		t.Errorf("expected gcs backend prod-packages, got %s %q", cfg.Storage.Backend, cfg.Storage.GCS.Bucket)
	}
	// Keys the override omits keep base values.
	if cfg.Storage.Concurrency != 2 {
		t.Errorf("expected concurrency=2 from base, got %d", cfg.Storage.Concurrency)
	}
	if cfg.Service.RateLimit != 10 || !cfg.Service.TrustProxy {
		t.Errorf("expected rate_limit=10 trust_proxy=true, got %v %v", cfg.Service.RateLimit, cfg.Service.TrustProxy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSecretExpansion(t *testing.T) {
	t.Setenv("TEST_GITHUB_TOKEN", "ghp_example")
	t.Setenv("TEST_WEBHOOK_SECRET", "")

	cfg, err := LoadFile(writeConfig(t, `
github:
  token: ${TEST_GITHUB_TOKEN}
service:
  webhook_secret: ${TEST_WEBHOOK_SECRET:-fallback}
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.GitHub.Token != "ghp_example" {
		t.Errorf("expected token from environment, got %q", cfg.GitHub.Token)
	}
	if cfg.Service.WebhookSecret != "fallback" {
		t.Errorf("expected default for empty variable, got %q", cfg.Service.WebhookSecret)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/debrepo",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/debrepo",
		},
		{
			input:    "${DEBREPO_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "invalid environment",
			modify:  func(c *Config) { c.Environment = "invalid" },
			wantErr: "invalid environment",
		},
		{
			name:    "empty root path",
			modify:  func(c *Config) { c.Paths.Root = "" },
			wantErr: "paths.root is required",
		},
		{
			name:    "no architectures",
			modify:  func(c *Config) { c.Repository.Architectures = nil },
			wantErr: "repository.architectures must not be empty",
		},
		{
			name:    "architecture all",
			modify:  func(c *Config) { c.Repository.Architectures = []string{"all"} },
			wantErr: `invalid architecture "all"`,
		},
		{
			name:    "repeated architecture",
			modify:  func(c *Config) { c.Repository.Architectures = []string{"amd64", "arm64", "amd64"} },
			wantErr: `"amd64" listed twice`,
		},
		{
			name:    "unknown filenames mode",
			modify:  func(c *Config) { c.Repository.Filenames = "relative" },
			wantErr: "repository.filenames must be store or archive",
		},
		{
			name:   "archive filenames",
			modify: func(c *Config) { c.Repository.Filenames = FilenamesArchive },
		},
		{
			name:    "weak key",
			modify:  func(c *Config) { c.Signing.RSABits = 1024 },
			wantErr: "signing.rsa_bits",
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Storage.Backend = "ftp" },
			wantErr: "storage.backend must be one of",
		},
		{
			name:    "s3 without bucket",
			modify:  func(c *Config) { c.Storage.Backend = BackendS3; c.Storage.S3.Endpoint = "s3.example.com" },
			wantErr: "storage.s3.bucket is required",
		},
		{
			name: "memory in production",
			modify: func(c *Config) {
				c.Environment = Production
				c.Storage.Backend = BackendMemory
			},
			wantErr: "not allowed in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Paths.Root = ""
	cfg.Signing.Email = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"paths.root", "signing.email"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestEnsurePaths(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Paths.Root = filepath.Join(tmpDir, "debrepo")
	cfg.Paths.Work = filepath.Join(cfg.Paths.Root, "work")
	cfg.Paths.Database = filepath.Join(cfg.Paths.Root, "state", "jobs.db")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}

	for _, path := range []string{cfg.Paths.Root, cfg.Paths.Work, filepath.Dir(cfg.Paths.Database)} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}
