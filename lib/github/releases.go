// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"
)

// releasesPerPage is the largest page size GitHub accepts.
const releasesPerPage = 100

// Release is a GitHub release. Only the fields the repository build
// reads are decoded.
type Release struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is a file attached to a release.
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// URL is the API URL for the asset. Fetching it with
	// Accept: application/octet-stream redirects to the content.
	URL string `json:"url"`

	// BrowserDownloadURL is the public download URL, used when URL is
	// empty.
	BrowserDownloadURL string `json:"browser_download_url"`

	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// ListReleases returns an iterator over a repository's releases, newest
// first as GitHub orders them.
func (client *Client) ListReleases(owner, repo string) *PageIterator[Release] {
	path := fmt.Sprintf("/repos/%s/%s/releases?per_page=%d",
		url.PathEscape(owner), url.PathEscape(repo), releasesPerPage)
	return list[Release](client, path)
}

// GetRelease returns a single release by tag.
func (client *Client) GetRelease(ctx context.Context, owner, repo, tag string) (*Release, error) {
	path := fmt.Sprintf("/repos/%s/%s/releases/tags/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(tag))
	var release Release
	if err := client.get(ctx, path, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// DownloadAsset streams the content of asset into w and returns the
// number of bytes written. A size mismatch against the advertised
// asset size is an error.
func (client *Client) DownloadAsset(ctx context.Context, asset Asset, w io.Writer) (int64, error) {
	target := asset.URL
	if target == "" {
		target = asset.BrowserDownloadURL
	}
	if target == "" {
		return 0, fmt.Errorf("github: asset %q has no download URL", asset.Name)
	}

	written, err := client.download(ctx, target, w)
	if err != nil {
		return written, err
	}
	if asset.Size > 0 && written != asset.Size {
		return written, fmt.Errorf("github: asset %q: downloaded %d bytes, expected %d",
			asset.Name, written, asset.Size)
	}
	return written, nil
}
