// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Directory serves packages from the local file system. The layout is
// either flat (Root/*.deb, one release tagged "local") or one
// subdirectory per release (Root/<tag>/*.deb). Subdirectory releases
// are ordered newest first by modification time, ties broken by tag.
// The owner and repo arguments are ignored.
type Directory struct {
	Root string
}

// Releases scans Root.
func (directory Directory) Releases(ctx context.Context, _, _ string, limit int) ([]Release, error) {
	entries, err := os.ReadDir(directory.Root)
	if err != nil {
		return nil, fmt.Errorf("source: reading %s: %w", directory.Root, err)
	}

	flat, err := scanPackages(directory.Root, entries)
	if err != nil {
		return nil, err
	}
	var releases []Release
	if len(flat.Assets) > 0 {
		flat.Tag = "local"
		flat.Name = "local"
		releases = append(releases, flat)
	}

	var nested []Release
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(directory.Root, entry.Name())
		children, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("source: reading %s: %w", path, err)
		}
		release, err := scanPackages(path, children)
		if err != nil {
			return nil, err
		}
		if len(release.Assets) == 0 {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		release.Tag = entry.Name()
		release.Name = entry.Name()
		release.PublishedAt = info.ModTime().UTC()
		nested = append(nested, release)
	}
	slices.SortFunc(nested, func(a, b Release) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	releases = append(releases, nested...)

	return truncate(releases, limit), nil
}

// Download copies the file at asset.URL into dir.
func (directory Directory) Download(ctx context.Context, asset Asset, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return writeAtomic(dir, asset.Name, func(w io.Writer) error {
		input, err := os.Open(asset.URL)
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		defer input.Close()
		if _, err := io.Copy(w, input); err != nil {
			return fmt.Errorf("source: copying %s: %w", asset.URL, err)
		}
		return nil
	})
}

// scanPackages collects the package files among entries of dir,
// sorted by name.
func scanPackages(dir string, entries []os.DirEntry) (Release, error) {
	var release Release
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsPackage(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return Release{}, fmt.Errorf("source: %w", err)
		}
		release.Assets = append(release.Assets, Asset{
			Name: entry.Name(),
			URL:  filepath.Join(dir, entry.Name()),
			Size: info.Size(),
		})
	}
	return release, nil
}
