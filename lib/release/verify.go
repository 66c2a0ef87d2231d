// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/debrepo/lib/checksum"
	"github.com/bureau-foundation/debrepo/lib/layout"
	"github.com/bureau-foundation/debrepo/lib/signing"
)

// ErrMismatch reports a Release table that does not describe the
// files on disk.
var ErrMismatch = errors.New("release does not match tree")

// Verify re-reads Release and checks every table entry against the
// file it names, and that every index artifact of each listed
// architecture is listed. All problems are reported together.
func Verify(tree layout.Layout) (Manifest, error) {
	data, err := os.ReadFile(tree.ReleasePath())
	if err != nil {
		return Manifest{}, fmt.Errorf("release: %w", err)
	}
	manifest, err := Parse(data)
	if err != nil {
		return Manifest{}, err
	}

	var problems []error
	for _, file := range manifest.Files {
		local := filepath.Join(tree.DistPath(), filepath.FromSlash(file.Path))
		content, err := os.ReadFile(local)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", file.Path, err))
			continue
		}
		if int64(len(content)) != file.Sums.Size {
			problems = append(problems, fmt.Errorf("%s: size %d, listed %d", file.Path, len(content), file.Sums.Size))
		}
		for _, algorithm := range checksum.Algorithms {
			if listed := file.Sums.Get(algorithm); listed != checksum.Hex(content, algorithm) {
				problems = append(problems, fmt.Errorf("%s: %s mismatch", file.Path, algorithm))
			}
		}
	}

	onDisk, err := listArtifacts(tree, manifest.Architectures)
	if err != nil {
		return Manifest{}, err
	}
	listed := make(map[string]bool, len(manifest.Files))
	for _, file := range manifest.Files {
		listed[file.Path] = true
	}
	for _, file := range onDisk {
		if !listed[file.Path] {
			problems = append(problems, fmt.Errorf("%s: present on disk but not listed", file.Path))
		}
	}

	if len(problems) > 0 {
		return manifest, fmt.Errorf("%w: %w", ErrMismatch, errors.Join(problems...))
	}
	return manifest, nil
}

// VerifySignatures checks InRelease and Release.gpg against publicKey
// and that InRelease signs exactly the Release text.
func VerifySignatures(tree layout.Layout, publicKey []byte) error {
	content, err := os.ReadFile(tree.ReleasePath())
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	detached, err := os.ReadFile(tree.DetachedSignaturePath())
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	if err := signing.VerifyDetached(content, detached, publicKey); err != nil {
		return fmt.Errorf("release: Release.gpg: %w", err)
	}

	inRelease, err := os.ReadFile(tree.InReleasePath())
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	signed, err := signing.VerifyClearSigned(inRelease, publicKey)
	if err != nil {
		return fmt.Errorf("release: InRelease: %w", err)
	}
	if !bytes.Equal(bytes.TrimRight(signed, "\n"), bytes.TrimRight(content, "\n")) {
		return fmt.Errorf("release: %w: InRelease text differs from Release", ErrMismatch)
	}
	return nil
}
