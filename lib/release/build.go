// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/bureau-foundation/debrepo/lib/checksum"
	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/compress"
	"github.com/bureau-foundation/debrepo/lib/layout"
	"github.com/bureau-foundation/debrepo/lib/signing"
)

// Identity names the repository in its manifest.
type Identity struct {
	// Name becomes both Origin and Label, conventionally "owner/repo".
	Name string

	// Description overrides the default "GitHub Release Repository for
	// <Name>".
	Description string
}

// Signer produces the two Release signature forms. *signing.Key
// satisfies it.
type Signer interface {
	ClearSign(data []byte) ([]byte, error)
	DetachSign(data []byte) ([]byte, error)
}

// Build writes Release, InRelease and Release.gpg for a dist whose
// indexes are already on disk. architectures are the ones that
// produced an index. A signing failure leaves no signature files
// behind and wraps signing.ErrSigning.
func Build(tree layout.Layout, identity Identity, architectures []string, c clock.Clock, signer Signer) (Manifest, error) {
	manifest, err := Generate(tree, identity, architectures, c)
	if err != nil {
		return Manifest{}, err
	}
	content := manifest.Encode()

	if err := os.MkdirAll(tree.DistPath(), 0o755); err != nil {
		return Manifest{}, fmt.Errorf("release: %w", err)
	}
	// Stale signatures from an earlier run must never sit next to a
	// new Release.
	for _, path := range []string{tree.InReleasePath(), tree.DetachedSignaturePath()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, fmt.Errorf("release: removing stale signature: %w", err)
		}
	}
	if err := os.WriteFile(tree.ReleasePath(), content, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("release: writing Release: %w", err)
	}

	inRelease, err := signer.ClearSign(content)
	if err != nil {
		return Manifest{}, signingError("InRelease", err)
	}
	detached, err := signer.DetachSign(content)
	if err != nil {
		return Manifest{}, signingError("Release.gpg", err)
	}
	if err := os.WriteFile(tree.InReleasePath(), inRelease, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("release: writing InRelease: %w", err)
	}
	if err := os.WriteFile(tree.DetachedSignaturePath(), detached, 0o644); err != nil {
		os.Remove(tree.InReleasePath())
		return Manifest{}, fmt.Errorf("release: writing Release.gpg: %w", err)
	}
	return manifest, nil
}

func signingError(target string, err error) error {
	if errors.Is(err, signing.ErrSigning) {
		return fmt.Errorf("release: %s: %w", target, err)
	}
	return fmt.Errorf("release: %s: %w: %w", target, signing.ErrSigning, err)
}

// Generate computes the manifest for the indexes currently on disk
// without writing anything.
func Generate(tree layout.Layout, identity Identity, architectures []string, c clock.Clock) (Manifest, error) {
	sorted := slices.Clone(architectures)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	description := identity.Description
	if description == "" {
		description = "GitHub Release Repository for " + identity.Name
	}

	files, err := listArtifacts(tree, sorted)
	if err != nil {
		return Manifest{}, err
	}
	return Manifest{
		Origin:        identity.Name,
		Label:         identity.Name,
		Suite:         tree.Codename(),
		Codename:      tree.Codename(),
		Date:          c.Now().UTC(),
		Architectures: sorted,
		Components:    []string{tree.Component()},
		Description:   description,
		AcquireByHash: true,
		Files:         files,
	}, nil
}

// listArtifacts hashes every existing index encoding of each
// architecture, in architecture then plain/gz/xz order.
func listArtifacts(tree layout.Layout, architectures []string) ([]File, error) {
	var files []File
	for _, architecture := range architectures {
		for _, codec := range compress.Codecs {
			sums, err := checksum.HashFile(tree.IndexPath(architecture, codec))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("release: %w", err)
			}
			files = append(files, File{
				Path: tree.IndexRelative(architecture, codec),
				Sums: sums,
			})
		}
	}
	return files, nil
}
