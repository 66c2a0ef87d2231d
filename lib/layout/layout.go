// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout names the files of an APT repository tree on disk.
//
// A tree has a flat pool holding every package file and one dist per
// codename:
//
//	<root>/key.gpg
//	<root>/pool/<package>.deb
//	<root>/dists/<codename>/Release
//	<root>/dists/<codename>/InRelease
//	<root>/dists/<codename>/Release.gpg
//	<root>/dists/<codename>/<component>/binary-<arch>/Packages{,.gz,.xz}
//
// Layout holds no state beyond the root, codename and component.
package layout

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/bureau-foundation/debrepo/lib/compress"
)

// DefaultComponent is the single component every repository uses.
const DefaultComponent = "main"

// File names with fixed meaning inside a tree.
const (
	PoolDirectory     = "pool"
	DistsDirectory    = "dists"
	IndexName         = "Packages"
	ReleaseName       = "Release"
	InReleaseName     = "InRelease"
	SignatureName     = "Release.gpg"
	PublicKeyFileName = "key.gpg"
)

// Layout resolves paths inside one repository tree.
type Layout struct {
	root      string
	codename  string
	component string
}

// New returns the layout of a tree rooted at root. An empty component
// selects DefaultComponent.
func New(root, codename, component string) Layout {
	if component == "" {
		component = DefaultComponent
	}
	return Layout{root: root, codename: codename, component: component}
}

// Root returns the tree root.
func (layout Layout) Root() string { return layout.root }

// Codename returns the dist codename.
func (layout Layout) Codename() string { return layout.codename }

// Component returns the component name.
func (layout Layout) Component() string { return layout.component }

// Create makes the pool and the binary-<arch> directory of every given
// architecture. Existing directories are left untouched.
func (layout Layout) Create(architectures []string) error {
	directories := []string{layout.PoolDirectory()}
	for _, architecture := range architectures {
		directories = append(directories, layout.IndexDirectory(architecture))
	}
	for _, directory := range directories {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("layout: creating %s: %w", directory, err)
		}
	}
	return nil
}

// PoolDirectory returns the directory holding every package file.
func (layout Layout) PoolDirectory() string {
	return filepath.Join(layout.root, PoolDirectory)
}

// PoolPath returns the local path of a package file in the pool.
func (layout Layout) PoolPath(filename string) string {
	return filepath.Join(layout.root, PoolDirectory, filename)
}

// DistPath returns the dists/<codename> directory.
func (layout Layout) DistPath() string {
	return filepath.Join(layout.root, DistsDirectory, layout.codename)
}

// IndexDirectory returns the directory holding one architecture's
// index files.
func (layout Layout) IndexDirectory(architecture string) string {
	return filepath.Join(layout.DistPath(), filepath.FromSlash(layout.indexDirectoryRelative(architecture)))
}

// IndexPath returns the local path of the index for architecture in
// the given encoding.
func (layout Layout) IndexPath(architecture string, codec compress.Codec) string {
	return filepath.Join(layout.DistPath(), filepath.FromSlash(layout.IndexRelative(architecture, codec)))
}

// IndexRelative returns the index path relative to the dist directory,
// always slash separated, as the Release manifest lists it
// ("main/binary-amd64/Packages.gz").
func (layout Layout) IndexRelative(architecture string, codec compress.Codec) string {
	return path.Join(layout.indexDirectoryRelative(architecture), IndexName+codec.Extension())
}

func (layout Layout) indexDirectoryRelative(architecture string) string {
	return path.Join(layout.component, "binary-"+architecture)
}

// ReleasePath returns the plain Release manifest path.
func (layout Layout) ReleasePath() string {
	return filepath.Join(layout.DistPath(), ReleaseName)
}

// InReleasePath returns the clearsigned manifest path.
func (layout Layout) InReleasePath() string {
	return filepath.Join(layout.DistPath(), InReleaseName)
}

// DetachedSignaturePath returns the detached manifest signature path.
func (layout Layout) DetachedSignaturePath() string {
	return filepath.Join(layout.DistPath(), SignatureName)
}

// PublicKeyPath returns the path of the exported public key at the
// tree root.
func (layout Layout) PublicKeyPath() string {
	return filepath.Join(layout.root, PublicKeyFileName)
}
