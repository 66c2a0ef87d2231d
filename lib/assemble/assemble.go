// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/config"
	"github.com/bureau-foundation/debrepo/lib/github"
	"github.com/bureau-foundation/debrepo/lib/layout"
	"github.com/bureau-foundation/debrepo/lib/objectstore"
	"github.com/bureau-foundation/debrepo/lib/objectstore/fsstore"
	"github.com/bureau-foundation/debrepo/lib/objectstore/gcsstore"
	"github.com/bureau-foundation/debrepo/lib/objectstore/s3store"
	"github.com/bureau-foundation/debrepo/lib/publish"
	"github.com/bureau-foundation/debrepo/lib/repobuild"
	"github.com/bureau-foundation/debrepo/lib/signing"
	"github.com/bureau-foundation/debrepo/lib/source"
	"github.com/bureau-foundation/debrepo/lib/version"
)

// githubTimeout bounds one GitHub request, including asset downloads.
const githubTimeout = 10 * time.Minute

// Options adjusts what New builds.
type Options struct {
	// Source replaces the GitHub release source, for builds from a
	// local directory.
	Source source.Source

	// NoPublish skips the object store entirely.
	NoPublish bool

	Clock  clock.Clock
	Logger *slog.Logger
}

// Components is everything a build needs. Close releases the store.
type Components struct {
	Keyring   *signing.Keyring
	Store     objectstore.Store
	Publisher *publish.Publisher
	Builder   *repobuild.Builder

	closers []io.Closer
}

// New opens the keyring and store named by cfg and returns a builder
// wired to them. cfg must already be validated.
func New(ctx context.Context, cfg *config.Config, options Options) (*Components, error) {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	keyring, err := Keyring(cfg, options.Clock, options.Logger)
	if err != nil {
		return nil, err
	}
	components := &Components{Keyring: keyring}

	if !options.NoPublish {
		store, err := Store(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		if closer, ok := store.(io.Closer); ok {
			components.closers = append(components.closers, closer)
		}
		components.Store = store
		components.Publisher, err = publish.New(publish.Config{
			Store:       store,
			Clock:       options.Clock,
			Logger:      options.Logger,
			MaxAttempts: cfg.Storage.MaxAttempts,
			Concurrency: cfg.Storage.Concurrency,
			UploadRate:  cfg.Storage.UploadRate,
			UploadBurst: cfg.Storage.UploadBurst,
		})
		if err != nil {
			components.Close()
			return nil, err
		}
	}

	releases := options.Source
	if releases == nil {
		releases, err = GitHubSource(cfg.GitHub, options.Clock, options.Logger)
		if err != nil {
			components.Close()
			return nil, err
		}
	}

	components.Builder, err = repobuild.New(repobuild.Config{
		Source:          releases,
		Keyring:         keyring,
		Publisher:       components.Publisher,
		Codename:        cfg.Repository.Codename,
		Architectures:   cfg.Repository.Architectures,
		NamespacePrefix: cfg.Repository.NamespacePrefix,
		ArchiveRelative: cfg.Repository.Filenames == config.FilenamesArchive,
		Description:     cfg.Repository.Description,
		WorkDir:         cfg.Paths.Work,
		Clock:           options.Clock,
		Logger:          options.Logger,
	})
	if err != nil {
		components.Close()
		return nil, err
	}
	return components, nil
}

// Close releases the store client, if it holds one.
func (c *Components) Close() error {
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Keyring opens the signing keyring described by cfg.
func Keyring(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*signing.Keyring, error) {
	return signing.Open(signing.Config{
		Dir: cfg.Paths.Keyring,
		Identity: signing.Identity{
			Name:    cfg.Signing.Name,
			Comment: cfg.Signing.Comment,
			Email:   cfg.Signing.Email,
		},
		RSABits:          cfg.Signing.RSABits,
		SealRecipients:   cfg.Signing.SealRecipients,
		SealIdentityFile: cfg.Signing.SealIdentityFile,
		Clock:            clk,
		Logger:           logger,
	})
}

// Store opens the object store backend named by storage.backend.
func Store(ctx context.Context, storage config.StorageConfig) (objectstore.Store, error) {
	switch storage.Backend {
	case config.BackendMemory:
		return objectstore.NewMemory(), nil
	case config.BackendFilesystem:
		store, err := fsstore.New(storage.Filesystem.Root)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendS3:
		store, err := s3store.New(s3store.Config{
			Endpoint:        storage.S3.ResolvedEndpoint(),
			Bucket:          storage.S3.Bucket,
			Region:          storage.S3.Region,
			AccessKeyID:     storage.S3.AccessKeyID,
			SecretAccessKey: storage.S3.SecretAccessKey,
			Insecure:        storage.S3.Insecure,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendGCS:
		store, err := gcsstore.New(ctx, gcsstore.Config{
			Bucket:          storage.GCS.Bucket,
			CredentialsFile: storage.GCS.CredentialsFile,
			Endpoint:        storage.GCS.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("assemble: unknown storage backend %q", storage.Backend)
	}
}

// GitHubSource returns a release source backed by the GitHub API.
func GitHubSource(cfg config.GitHubConfig, clk clock.Clock, logger *slog.Logger) (*source.GitHub, error) {
	client, err := github.NewClient(github.Config{
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		UserAgent:  version.UserAgent(),
		HTTPClient: &http.Client{Timeout: githubTimeout},
		Clock:      clk,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		logger.Warn("no GitHub token configured; API requests are anonymous and heavily rate limited")
	}
	return source.NewGitHub(client, logger), nil
}

// SourcesLine returns the sources.list entry for a published
// repository. The archive root is the namespace under the public URL,
// so the line is only valid when Packages filenames are relative to it;
// it is "" for store-relative filenames or without a public URL.
func SourcesLine(cfg *config.Config, namespace string) string {
	if cfg.Repository.PublicURL == "" || cfg.Repository.Filenames != config.FilenamesArchive {
		return ""
	}
	return fmt.Sprintf("deb [signed-by=/usr/share/keyrings/%s.gpg] %s/%s %s %s",
		strings.ReplaceAll(path.Base(path.Dir(namespace))+"-"+path.Base(namespace), ".", "-"),
		strings.TrimRight(cfg.Repository.PublicURL, "/"),
		namespace,
		cfg.Repository.Codename,
		layout.DefaultComponent,
	)
}
