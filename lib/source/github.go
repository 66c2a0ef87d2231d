// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/debrepo/lib/github"
)

// GitHub lists releases through the GitHub REST API. Draft releases
// are ignored.
type GitHub struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHub wraps client. A nil logger uses slog.Default().
func NewGitHub(client *github.Client, logger *slog.Logger) *GitHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHub{client: client, logger: logger}
}

// Releases pages through the repository's releases only as far as
// needed to collect limit releases with packages.
func (source *GitHub) Releases(ctx context.Context, owner, repo string, limit int) ([]Release, error) {
	if limit < 1 {
		limit = 1
	}
	iterator := source.client.ListReleases(owner, repo)

	var releases []Release
	for len(releases) < limit {
		page, err := iterator.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("source: listing releases of %s/%s: %w", owner, repo, err)
		}
		if page == nil {
			break
		}
		for _, upstream := range page {
			if upstream.Draft {
				continue
			}
			release := convertRelease(upstream)
			if len(release.Assets) == 0 {
				source.logger.Debug("skipping release without packages",
					"owner", owner, "repo", repo, "tag", upstream.TagName)
				continue
			}
			releases = append(releases, release)
		}
	}
	return truncate(releases, limit), nil
}

// Download fetches the asset through the API asset endpoint.
func (source *GitHub) Download(ctx context.Context, asset Asset, dir string) (string, error) {
	upstream := github.Asset{ID: asset.ID, Name: asset.Name, URL: asset.URL, Size: asset.Size}
	return writeAtomic(dir, asset.Name, func(w io.Writer) error {
		if _, err := source.client.DownloadAsset(ctx, upstream, w); err != nil {
			return fmt.Errorf("source: downloading %s: %w", asset.Name, err)
		}
		return nil
	})
}

func convertRelease(upstream github.Release) Release {
	release := Release{
		Tag:         upstream.TagName,
		Name:        upstream.Name,
		PublishedAt: upstream.PublishedAt,
	}
	if release.Name == "" {
		release.Name = upstream.TagName
	}
	for _, asset := range upstream.Assets {
		if !IsPackage(asset.Name) {
			continue
		}
		url := asset.URL
		if url == "" {
			url = asset.BrowserDownloadURL
		}
		release.Assets = append(release.Assets, Asset{
			ID:   asset.ID,
			Name: asset.Name,
			URL:  url,
			Size: asset.Size,
		})
	}
	return release
}
