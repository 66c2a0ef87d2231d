// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package index writes the per-architecture Packages files of a
// repository.
//
// An architecture's index lists every pool package that declares that
// architecture or "all". Records are sorted by pool file name so the
// same pool always produces the same bytes. Each record carries the
// fields APT requires, in this order:
//
//	Package, Version, Architecture, Maintainer, Depends (if set),
//	Filename, Size, MD5sum, SHA1, SHA256, Section (if set),
//	Description (if set)
//
// and ends with one blank line. The plain index is written first, then
// its gzip and xz siblings.
//
// An architecture with no matching packages is not an error: [Build]
// reports it as empty and writes nothing, and the caller leaves the
// architecture out of the Release manifest.
package index

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bureau-foundation/debrepo/lib/checksum"
	"github.com/bureau-foundation/debrepo/lib/compress"
	"github.com/bureau-foundation/debrepo/lib/debpkg"
	"github.com/bureau-foundation/debrepo/lib/layout"
)

// Index is the result of building one architecture's index.
type Index struct {
	Architecture string

	// Packages are the records written, in file order.
	Packages []debpkg.Blob

	// Artifacts are the files written, one per codec in
	// compress.Codecs order.
	Artifacts []Artifact
}

// Artifact is one written index file.
type Artifact struct {
	Codec compress.Codec

	// Path is the local file path.
	Path string

	// Relative is the path relative to the dist directory, as the
	// Release manifest lists it.
	Relative string

	// Sums are the size and digests of the bytes written.
	Sums checksum.Sums
}

// Build writes the index files for architecture into tree. filenamePrefix
// is prepended to "pool/<file>" in each record's Filename field; pass the
// store namespace for store-relative names or "" for archive-relative
// names. Returns ok == false, and writes nothing, when no blob matches.
func Build(tree layout.Layout, architecture string, blobs []debpkg.Blob, filenamePrefix string) (Index, bool, error) {
	matched := Select(architecture, blobs)
	if len(matched) == 0 {
		return Index{}, false, nil
	}

	content := Render(matched, filenamePrefix)

	if err := os.MkdirAll(tree.IndexDirectory(architecture), 0o755); err != nil {
		return Index{}, false, fmt.Errorf("index: creating directory for %s: %w", architecture, err)
	}

	result := Index{Architecture: architecture, Packages: matched}
	for _, codec := range compress.Codecs {
		encoded, err := codec.Compress(content)
		if err != nil {
			return Index{}, false, fmt.Errorf("index: %s %s: %w", architecture, codec, err)
		}
		artifactPath := tree.IndexPath(architecture, codec)
		if err := os.WriteFile(artifactPath, encoded, 0o644); err != nil {
			return Index{}, false, fmt.Errorf("index: writing %s: %w", artifactPath, err)
		}
		result.Artifacts = append(result.Artifacts, Artifact{
			Codec:    codec,
			Path:     artifactPath,
			Relative: tree.IndexRelative(architecture, codec),
			Sums:     checksum.Sum(encoded),
		})
	}
	return result, true, nil
}

// BuildAll builds every architecture concurrently and returns the
// non-empty indexes sorted by architecture. Repeated architectures are
// built once. All index files are on disk when BuildAll returns.
func BuildAll(tree layout.Layout, architectures []string, blobs []debpkg.Blob, filenamePrefix string) ([]Index, error) {
	architectures = unique(architectures)
	type outcome struct {
		index Index
		ok    bool
		err   error
	}
	outcomes := make([]outcome, len(architectures))

	var wait sync.WaitGroup
	for position, architecture := range architectures {
		wait.Add(1)
		go func() {
			defer wait.Done()
			index, ok, err := Build(tree, architecture, blobs, filenamePrefix)
			outcomes[position] = outcome{index: index, ok: ok, err: err}
		}()
	}
	wait.Wait()

	var built []Index
	for _, result := range outcomes {
		if result.err != nil {
			return nil, result.err
		}
		if result.ok {
			built = append(built, result.index)
		}
	}
	sort.Slice(built, func(i, j int) bool {
		return built[i].Architecture < built[j].Architecture
	})
	return built, nil
}

func unique(architectures []string) []string {
	seen := make(map[string]bool, len(architectures))
	var distinct []string
	for _, architecture := range architectures {
		if !seen[architecture] {
			seen[architecture] = true
			distinct = append(distinct, architecture)
		}
	}
	return distinct
}

// Architectures returns the architecture names of indexes.
func Architectures(indexes []Index) []string {
	names := make([]string, 0, len(indexes))
	for _, index := range indexes {
		names = append(names, index.Architecture)
	}
	return names
}

// Select returns the blobs that belong in architecture's index, sorted
// by pool file name.
func Select(architecture string, blobs []debpkg.Blob) []debpkg.Blob {
	var matched []debpkg.Blob
	for _, blob := range blobs {
		if blob.Control.Matches(architecture) {
			matched = append(matched, blob)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Filename < matched[j].Filename
	})
	return matched
}

// Render formats blobs as a Packages document, in the given order.
func Render(blobs []debpkg.Blob, filenamePrefix string) []byte {
	var buffer bytes.Buffer
	for _, blob := range blobs {
		writeRecord(&buffer, blob, filenamePrefix)
	}
	return buffer.Bytes()
}

// RecordFilename returns the Filename field for a pool file.
func RecordFilename(filenamePrefix, poolFile string) string {
	return path.Join(filenamePrefix, layout.PoolDirectory, poolFile)
}

func writeRecord(buffer *bytes.Buffer, blob debpkg.Blob, filenamePrefix string) {
	control := blob.Control
	writeField(buffer, "Package", control.Package)
	writeField(buffer, "Version", control.Version)
	writeField(buffer, "Architecture", control.Architecture)
	writeField(buffer, "Maintainer", control.Maintainer)
	if control.Depends != "" {
		writeField(buffer, "Depends", control.Depends)
	}
	writeField(buffer, "Filename", RecordFilename(filenamePrefix, blob.Filename))
	writeField(buffer, "Size", fmt.Sprintf("%d", blob.Sums.Size))
	for _, algorithm := range checksum.Algorithms {
		writeField(buffer, algorithm.FieldName(), blob.Sums.Get(algorithm))
	}
	if control.Section != "" {
		writeField(buffer, "Section", control.Section)
	}
	if control.Description != "" {
		writeField(buffer, "Description", control.Description)
	}
	buffer.WriteByte('\n')
}

// writeField writes "Name: value". Every continuation line of a
// multi-line value gets the one-space deb822 marker in front of it, so
// indentation beyond the marker survives from the control file. Empty
// continuation lines become " .".
func writeField(buffer *bytes.Buffer, name, value string) {
	lines := strings.Split(value, "\n")
	buffer.WriteString(name)
	buffer.WriteString(": ")
	buffer.WriteString(strings.TrimRight(lines[0], " \t"))
	buffer.WriteByte('\n')
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, " \t")
		if trimmed := strings.TrimSpace(line); trimmed == "" || trimmed == "." {
			buffer.WriteString(" .")
		} else {
			buffer.WriteByte(' ')
			buffer.WriteString(line)
		}
		buffer.WriteByte('\n')
	}
}
