// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debpkg

import (
	"fmt"
	"os"

	"pault.ag/go/debian/deb"
)

// Inspector extracts the raw control field mapping from a package
// file on disk.
type Inspector interface {
	Inspect(path string) (map[string]string, error)
}

// DebInspector reads the control member of .deb archives.
type DebInspector struct{}

// Inspect opens the archive at path and returns every field of its
// control paragraph.
func (DebInspector) Inspect(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("debpkg: opening %s: %w", path, err)
	}
	defer file.Close()

	archive, err := deb.Load(file, path)
	if err != nil {
		return nil, fmt.Errorf("debpkg: reading %s: %w", path, err)
	}

	fields := make(map[string]string, len(archive.Control.Paragraph.Values))
	for name, value := range archive.Control.Paragraph.Values {
		fields[name] = value
	}
	return fields, nil
}

// InspectControl runs inspector on path and validates the result.
func InspectControl(inspector Inspector, path string) (Control, error) {
	fields, err := inspector.Inspect(path)
	if err != nil {
		return Control{}, err
	}
	control, err := ParseControl(fields)
	if err != nil {
		return Control{}, fmt.Errorf("debpkg: %s: %w", path, err)
	}
	return control, nil
}
