// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/debrepo/lib/checksum"
)

// DateFormat is the Release Date layout. Times are always rendered in
// UTC.
const DateFormat = "Mon, 02 Jan 2006 15:04:05 UTC"

// sizeWidth right-aligns sizes in checksum table lines.
const sizeWidth = 12

// Manifest is the content of a Release file.
type Manifest struct {
	Origin        string
	Label         string
	Suite         string
	Codename      string
	Date          time.Time
	Architectures []string
	Components    []string
	Description   string
	AcquireByHash bool

	// Files lists every index artifact. Each entry appears in all three
	// checksum tables.
	Files []File
}

// File is one artifact listed in the checksum tables.
type File struct {
	// Path is relative to the dist directory, slash separated.
	Path string
	Sums checksum.Sums
}

// Encode renders the manifest. The output has no trailing newline.
func (manifest Manifest) Encode() []byte {
	var buffer bytes.Buffer
	header := [][2]string{
		{"Origin", manifest.Origin},
		{"Label", manifest.Label},
		{"Suite", manifest.Suite},
		{"Codename", manifest.Codename},
		{"Date", manifest.Date.UTC().Format(DateFormat)},
		{"Architectures", strings.Join(manifest.Architectures, " ")},
		{"Components", strings.Join(manifest.Components, " ")},
		{"Description", manifest.Description},
	}
	if manifest.AcquireByHash {
		header = append(header, [2]string{"Acquire-By-Hash", "yes"})
	}
	for i, field := range header {
		if i > 0 {
			buffer.WriteByte('\n')
		}
		buffer.WriteString(field[0] + ": " + field[1])
	}

	if len(manifest.Files) == 0 {
		return buffer.Bytes()
	}
	for _, algorithm := range checksum.Algorithms {
		buffer.WriteString("\n" + algorithm.SectionName() + ":")
		for _, file := range manifest.Files {
			fmt.Fprintf(&buffer, "\n %s %*d %s", file.Sums.Get(algorithm), sizeWidth, file.Sums.Size, file.Path)
		}
	}
	return buffer.Bytes()
}

// Parse reads a Release file. Unknown header fields are ignored. Every
// file must appear with a consistent size in each table it is listed
// in.
func Parse(data []byte) (Manifest, error) {
	var manifest Manifest
	files := make(map[string]*File)
	var order []string
	var section checksum.Algorithm
	var inSection bool

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, " ") {
			if !inSection {
				return Manifest{}, fmt.Errorf("release: line %d: continuation outside a checksum table", lineNumber)
			}
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return Manifest{}, fmt.Errorf("release: line %d: malformed %s entry", lineNumber, section.SectionName())
			}
			size, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return Manifest{}, fmt.Errorf("release: line %d: size: %w", lineNumber, err)
			}
			file, ok := files[fields[2]]
			if !ok {
				file = &File{Path: fields[2], Sums: checksum.Sums{Size: size}}
				files[fields[2]] = file
				order = append(order, fields[2])
			} else if file.Sums.Size != size {
				return Manifest{}, fmt.Errorf("release: line %d: %s size %d disagrees with earlier %d", lineNumber, fields[2], size, file.Sums.Size)
			}
			file.Sums.Set(section, fields[0])
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			return Manifest{}, fmt.Errorf("release: line %d: expected \"Field: value\"", lineNumber)
		}
		value = strings.TrimSpace(value)
		inSection = false
		if algorithm, err := checksum.ParseAlgorithm(name); err == nil && value == "" {
			section = algorithm
			inSection = true
			continue
		}
		if err := manifest.setField(name, value); err != nil {
			return Manifest{}, fmt.Errorf("release: line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Manifest{}, fmt.Errorf("release: %w", err)
	}

	for _, path := range order {
		manifest.Files = append(manifest.Files, *files[path])
	}
	return manifest, nil
}

func (manifest *Manifest) setField(name, value string) error {
	switch name {
	case "Origin":
		manifest.Origin = value
	case "Label":
		manifest.Label = value
	case "Suite":
		manifest.Suite = value
	case "Codename":
		manifest.Codename = value
	case "Date":
		date, err := time.Parse(DateFormat, value)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		manifest.Date = date
	case "Architectures":
		manifest.Architectures = strings.Fields(value)
	case "Components":
		manifest.Components = strings.Fields(value)
	case "Description":
		manifest.Description = value
	case "Acquire-By-Hash":
		manifest.AcquireByHash = value == "yes"
	}
	return nil
}
