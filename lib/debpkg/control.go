// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debpkg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/debrepo/lib/checksum"
)

// ArchitectureAll is the wildcard architecture of packages that install
// on every architecture.
const ArchitectureAll = "all"

// Control is the subset of a package's control file that the
// repository index publishes.
type Control struct {
	Package      string
	Version      string
	Architecture string
	Maintainer   string

	// Optional fields. Empty means absent.
	Depends     string
	Section     string
	Description string
}

// ErrMissingField is wrapped by ParseControl when a required field is
// absent or blank.
var ErrMissingField = errors.New("missing required control field")

// ParseControl builds a Control from a raw field mapping as returned by
// an Inspector. Field names are matched case-insensitively, as Debian
// policy requires. Package, Version, Architecture and Maintainer are
// required.
func ParseControl(fields map[string]string) (Control, error) {
	lookup := make(map[string]string, len(fields))
	for name, value := range fields {
		lookup[strings.ToLower(name)] = strings.TrimSpace(value)
	}

	control := Control{
		Package:      lookup["package"],
		Version:      lookup["version"],
		Architecture: lookup["architecture"],
		Maintainer:   lookup["maintainer"],
		Depends:      lookup["depends"],
		Section:      lookup["section"],
		Description:  lookup["description"],
	}

	var missing []string
	for _, required := range []struct{ name, value string }{
		{"Package", control.Package},
		{"Version", control.Version},
		{"Architecture", control.Architecture},
		{"Maintainer", control.Maintainer},
	} {
		if required.value == "" {
			missing = append(missing, required.name)
		}
	}
	if len(missing) > 0 {
		return Control{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return control, nil
}

// Matches reports whether a package with this control record belongs
// in the index for architecture: either it declares that architecture
// or it declares "all".
func (control Control) Matches(architecture string) bool {
	return control.Architecture == architecture || control.Architecture == ArchitectureAll
}

// Blob is a package file placed in the repository pool.
type Blob struct {
	// Path is the local file path inside the pool.
	Path string

	// Filename is the base name of the file in the pool.
	Filename string

	// Sums holds the size and digests of the file.
	Sums checksum.Sums

	// Control is the validated control record.
	Control Control
}
