// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Packages Filename modes.
const (
	FilenamesStore   = "store"
	FilenamesArchive = "archive"
)

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
	BackendGCS        = "gcs"
)

// Config is the master configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	Sections `yaml:",inline"`

	// Per-environment overrides, decoded over Sections when
	// Environment matches.
	Development yaml.Node `yaml:"development,omitempty"`
	Staging     yaml.Node `yaml:"staging,omitempty"`
	Production  yaml.Node `yaml:"production,omitempty"`
}

// Sections holds everything an environment section may override.
type Sections struct {
	Repository RepositoryConfig `yaml:"repository"`
	Signing    SigningConfig    `yaml:"signing"`
	GitHub     GitHubConfig     `yaml:"github"`
	Storage    StorageConfig    `yaml:"storage"`
	Service    ServiceConfig    `yaml:"service"`
	Paths      PathsConfig      `yaml:"paths"`
}

// RepositoryConfig shapes the generated APT repositories.
type RepositoryConfig struct {
	// Codename is the dists/ suite. Default: stable
	Codename string `yaml:"codename"`

	// Architectures get a binary-<arch> index. Default: amd64, arm64
	Architectures []string `yaml:"architectures"`

	// NamespacePrefix prefixes every published repository:
	// <prefix>/<owner>/<repo>. Default: repos
	NamespacePrefix string `yaml:"namespace_prefix"`

	// Description is the Release Description field. Empty uses the
	// repository name.
	Description string `yaml:"description"`

	// PublicURL is where the bucket is served from, used to print
	// sources.list lines. Optional.
	PublicURL string `yaml:"public_url"`

	// Filenames picks what the Packages Filename field is relative to.
	// "store" writes the full object key (<namespace>/pool/<file>);
	// "archive" writes pool/<file>, relative to the namespace, which is
	// the archive root an APT client points at. A sources.list line is
	// only printed for "archive". Default: store
	Filenames string `yaml:"filenames"`
}

// SigningConfig configures the OpenPGP signing key.
type SigningConfig struct {
	Name    string `yaml:"name"`
	Comment string `yaml:"comment"`
	Email   string `yaml:"email"`

	// RSABits is the size of a generated key. Default: 4096
	RSABits int `yaml:"rsa_bits"`

	// SealRecipients age-encrypt the keyring at rest when non-empty.
	SealRecipients []string `yaml:"seal_recipients"`

	// SealIdentityFile opens a sealed keyring.
	SealIdentityFile string `yaml:"seal_identity_file"`
}

// GitHubConfig configures the release source.
type GitHubConfig struct {
	// BaseURL defaults to https://api.github.com.
	BaseURL string `yaml:"base_url"`

	// Token authenticates API calls. Empty is anonymous, which GitHub
	// limits to 60 requests per hour.
	Token string `yaml:"token"`
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	// Backend is memory, filesystem, s3 or gcs. Default: filesystem
	Backend string `yaml:"backend"`

	Filesystem FilesystemConfig `yaml:"filesystem"`
	S3         S3Config         `yaml:"s3"`
	GCS        GCSConfig        `yaml:"gcs"`

	// MaxAttempts bounds uploads of one object. Default: 5
	MaxAttempts int `yaml:"max_attempts"`

	// Concurrency is the number of parallel content uploads. Default: 4
	Concurrency int `yaml:"concurrency"`

	// UploadRate caps upload attempts per second. Zero is unlimited.
	UploadRate  float64 `yaml:"upload_rate"`
	UploadBurst int     `yaml:"upload_burst"`
}

// FilesystemConfig publishes into a local directory.
type FilesystemConfig struct {
	// Root default: ${DEBREPO_ROOT}/public
	Root string `yaml:"root"`
}

// S3Config publishes to an S3-compatible bucket such as Cloudflare R2.
type S3Config struct {
	// Endpoint is host[:port]. When empty and AccountID is set, the R2
	// endpoint <account_id>.r2.cloudflarestorage.com is used.
	Endpoint  string `yaml:"endpoint"`
	AccountID string `yaml:"account_id"`

	Bucket string `yaml:"bucket"`

	// Region default: auto
	Region string `yaml:"region"`

	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// Insecure selects plain HTTP, for local test servers.
	Insecure bool `yaml:"insecure"`
}

// ResolvedEndpoint returns Endpoint, or the R2 endpoint for AccountID.
func (c S3Config) ResolvedEndpoint() string {
	if c.Endpoint == "" && c.AccountID != "" {
		return c.AccountID + ".r2.cloudflarestorage.com"
	}
	return c.Endpoint
}

// GCSConfig publishes to a Google Cloud Storage bucket.
type GCSConfig struct {
	Bucket string `yaml:"bucket"`

	// CredentialsFile is a service account key. Empty uses
	// application default credentials.
	CredentialsFile string `yaml:"credentials_file"`

	// Endpoint overrides the API endpoint, for emulators.
	Endpoint string `yaml:"endpoint"`
}

// ServiceConfig configures debrepo-service.
type ServiceConfig struct {
	// Address is the HTTP listen address. Default: :8080
	Address string `yaml:"address"`

	// Workers is the number of concurrent builds. Default: 2
	Workers int `yaml:"workers"`

	// QueueCapacity bounds queued builds. Default: 64
	QueueCapacity int `yaml:"queue_capacity"`

	// BuildTimeout bounds one build. Default: 30m
	BuildTimeout Duration `yaml:"build_timeout"`

	// ShutdownTimeout bounds the HTTP drain on exit. Default: 10s
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// WebhookSecret enables POST /webhooks/github.
	WebhookSecret string `yaml:"webhook_secret"`

	// RateLimit is POST /build requests per second per client; a
	// negative value disables limiting. Default: 1, burst 5
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	// TrustProxy takes client addresses from X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for debrepo data.
	Root string `yaml:"root"`

	// Keyring holds the signing key. Default: ${DEBREPO_ROOT}/keyring
	Keyring string `yaml:"keyring"`

	// Work holds build trees and downloads. Default: ${DEBREPO_ROOT}/work
	Work string `yaml:"work"`

	// Database is the job status SQLite file.
	// Default: ${DEBREPO_ROOT}/state/jobs.db
	Database string `yaml:"database"`
}

// Duration is a time.Duration written as a Go duration string ("30m").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the default configuration, used as the base before
// the file is decoded over it.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "debrepo")

	return &Config{
		Environment: Development,
		Sections: Sections{
			Repository: RepositoryConfig{
				Codename:        "stable",
				Architectures:   []string{"amd64", "arm64"},
				NamespacePrefix: "repos",
				Filenames:       FilenamesStore,
			},
			Signing: SigningConfig{
				Name:    "APT Repository",
				Email:   "repo@example.com",
				RSABits: 4096,
			},
			Storage: StorageConfig{
				Backend:     BackendFilesystem,
				Filesystem:  FilesystemConfig{Root: "${DEBREPO_ROOT}/public"},
				S3:          S3Config{Region: "auto"},
				MaxAttempts: 5,
				Concurrency: 4,
			},
			Service: ServiceConfig{
				Address:         ":8080",
				Workers:         2,
				QueueCapacity:   64,
				BuildTimeout:    Duration(30 * time.Minute),
				ShutdownTimeout: Duration(10 * time.Second),
				RateLimit:       1,
				RateBurst:       5,
			},
			Paths: PathsConfig{
				Root:     defaultRoot,
				Keyring:  "${DEBREPO_ROOT}/keyring",
				Work:     "${DEBREPO_ROOT}/work",
				Database: "${DEBREPO_ROOT}/state/jobs.db",
			},
		},
	}
}

// Load loads configuration from the DEBREPO_CONFIG environment
// variable. It fails when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("DEBREPO_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DEBREPO_CONFIG environment variable not set; " +
			"set it to the path of your debrepo.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default, then applies environment overrides
// and variable expansion.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// applyEnvironmentOverrides decodes the section for the active
// environment over the base values. Keys the section omits keep their
// base values; lists are replaced whole.
func (c *Config) applyEnvironmentOverrides() error {
	var overrides *yaml.Node
	switch c.Environment {
	case Development:
		overrides = &c.Development
	case Staging:
		overrides = &c.Staging
	case Production:
		overrides = &c.Production
	}
	if overrides == nil || overrides.Kind == 0 {
		return nil
	}
	if err := overrides.Decode(&c.Sections); err != nil {
		return fmt.Errorf("%s overrides: %w", c.Environment, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"DEBREPO_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["DEBREPO_ROOT"] = c.Paths.Root // Update for dependent paths.

	for _, field := range []*string{
		&c.Paths.Keyring,
		&c.Paths.Work,
		&c.Paths.Database,
		&c.Repository.PublicURL,
		&c.Signing.SealIdentityFile,
		&c.GitHub.BaseURL,
		&c.GitHub.Token,
		&c.Storage.Backend,
		&c.Storage.Filesystem.Root,
		&c.Storage.S3.Endpoint,
		&c.Storage.S3.AccountID,
		&c.Storage.S3.Bucket,
		&c.Storage.S3.AccessKeyID,
		&c.Storage.S3.SecretAccessKey,
		&c.Storage.GCS.Bucket,
		&c.Storage.GCS.CredentialsFile,
		&c.Storage.GCS.Endpoint,
		&c.Service.Address,
		&c.Service.WebhookSecret,
	} {
		*field = expandVars(*field, vars)
	}
	for i := range c.Signing.SealRecipients {
		c.Signing.SealRecipients[i] = expandVars(c.Signing.SealRecipients[i], vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var architecturePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Repository.Codename == "" {
		errs = append(errs, errors.New("repository.codename is required"))
	}
	if len(c.Repository.Architectures) == 0 {
		errs = append(errs, errors.New("repository.architectures must not be empty"))
	}
	seenArchitectures := make(map[string]bool, len(c.Repository.Architectures))
	for _, arch := range c.Repository.Architectures {
		if !architecturePattern.MatchString(arch) || arch == "all" {
			errs = append(errs, fmt.Errorf("repository.architectures: invalid architecture %q", arch))
		}
		if seenArchitectures[arch] {
			errs = append(errs, fmt.Errorf("repository.architectures: %q listed twice", arch))
		}
		seenArchitectures[arch] = true
	}
	if c.Repository.Filenames != FilenamesStore && c.Repository.Filenames != FilenamesArchive {
		errs = append(errs, fmt.Errorf("repository.filenames must be store or archive, got %q", c.Repository.Filenames))
	}

	if c.Signing.Email == "" {
		errs = append(errs, errors.New("signing.email is required"))
	}
	if c.Signing.RSABits != 0 && c.Signing.RSABits < 2048 {
		errs = append(errs, fmt.Errorf("signing.rsa_bits must be at least 2048, got %d", c.Signing.RSABits))
	}

	switch c.Storage.Backend {
	case BackendMemory:
		if c.Environment == Production {
			errs = append(errs, errors.New("storage.backend memory is not allowed in production"))
		}
	case BackendFilesystem:
		if c.Storage.Filesystem.Root == "" {
			errs = append(errs, errors.New("storage.filesystem.root is required"))
		}
	case BackendS3:
		if c.Storage.S3.ResolvedEndpoint() == "" {
			errs = append(errs, errors.New("storage.s3.endpoint or storage.s3.account_id is required"))
		}
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required"))
		}
		if c.Storage.S3.AccessKeyID == "" || c.Storage.S3.SecretAccessKey == "" {
			errs = append(errs, errors.New("storage.s3.access_key_id and storage.s3.secret_access_key are required"))
		}
	case BackendGCS:
		if c.Storage.GCS.Bucket == "" {
			errs = append(errs, errors.New("storage.gcs.bucket is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of memory, filesystem, s3, gcs; got %q", c.Storage.Backend))
	}
	if c.Storage.MaxAttempts < 0 || c.Storage.Concurrency < 0 || c.Storage.UploadRate < 0 {
		errs = append(errs, errors.New("storage: max_attempts, concurrency and upload_rate must not be negative"))
	}

	if c.Service.Workers < 0 || c.Service.QueueCapacity < 0 {
		errs = append(errs, errors.New("service: workers and queue_capacity must not be negative"))
	}
	if c.Service.BuildTimeout < 0 || c.Service.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("service: timeouts must not be negative"))
	}

	if c.Paths.Root == "" {
		errs = append(errs, errors.New("paths.root is required"))
	}
	if c.Paths.Keyring == "" {
		errs = append(errs, errors.New("paths.keyring is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the configured directories if they don't exist.
// The keyring directory is left to the signing package, which creates
// it with restricted permissions.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.Work,
	}
	if c.Paths.Database != "" {
		paths = append(paths, filepath.Dir(c.Paths.Database))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
