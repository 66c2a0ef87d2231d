// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PackageExtension is the suffix that marks an asset as a binary
// package.
const PackageExtension = ".deb"

// ErrInvalidAsset is returned for an asset whose name cannot be used as
// a pool file name.
var ErrInvalidAsset = errors.New("source: invalid asset name")

// Release is one upstream release with its package assets.
type Release struct {
	Tag         string
	Name        string
	PublishedAt time.Time
	Assets      []Asset
}

// Asset is a downloadable package file.
type Asset struct {
	// ID is the upstream asset identifier, zero when the source has
	// none.
	ID int64

	// Name is the file name the asset is stored under in the pool.
	Name string

	// URL locates the content. Its form depends on the Source.
	URL string

	// Size is the advertised size in bytes, zero when unknown.
	Size int64
}

// Source provides releases and their package files.
type Source interface {
	// Releases returns at most limit releases that carry at least one
	// package, newest first. A limit below 1 is treated as 1.
	Releases(ctx context.Context, owner, repo string, limit int) ([]Release, error)

	// Download writes the asset into dir under its Name and returns the
	// path of the written file.
	Download(ctx context.Context, asset Asset, dir string) (string, error)
}

// IsPackage reports whether name is a binary package file name.
func IsPackage(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), PackageExtension)
}

// poolName validates an asset name for use as a single path element.
func poolName(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAsset, name)
	}
	return name, nil
}

// writeAtomic streams fill's output into dir/name through a temporary
// file renamed into place on success.
func writeAtomic(dir, name string, fill func(io.Writer) error) (string, error) {
	name, err := poolName(name)
	if err != nil {
		return "", err
	}
	temporary, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("source: creating temporary file in %s: %w", dir, err)
	}
	defer os.Remove(temporary.Name())

	if err := fill(temporary); err != nil {
		temporary.Close()
		return "", err
	}
	if err := temporary.Chmod(0o644); err != nil {
		temporary.Close()
		return "", fmt.Errorf("source: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return "", fmt.Errorf("source: closing %s: %w", temporary.Name(), err)
	}

	destination := filepath.Join(dir, name)
	if err := os.Rename(temporary.Name(), destination); err != nil {
		return "", fmt.Errorf("source: %w", err)
	}
	return destination, nil
}

// truncate keeps the first limit releases, treating limit < 1 as 1.
func truncate(releases []Release, limit int) []Release {
	if limit < 1 {
		limit = 1
	}
	if len(releases) > limit {
		releases = releases[:limit]
	}
	return releases
}
