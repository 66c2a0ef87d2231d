// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debpkg_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/debrepo/lib/debpkg"
	"github.com/bureau-foundation/debrepo/lib/testutil"
)

func TestDebInspectorReadsControl(t *testing.T) {
	directory := t.TempDir()
	path := testutil.WriteDeb(t, directory, "hello_1.0_amd64.deb",
		testutil.ControlFields("hello", "1.0", "amd64",
			testutil.Field{Name: "Depends", Value: "libc6"},
			testutil.Field{Name: "Section", Value: "utils"},
		))

	control, err := debpkg.InspectControl(debpkg.DebInspector{}, path)
	if err != nil {
		t.Fatalf("InspectControl: %v", err)
	}
	if control.Package != "hello" || control.Version != "1.0" || control.Architecture != "amd64" {
		t.Errorf("identity = %s %s %s, want hello 1.0 amd64", control.Package, control.Version, control.Architecture)
	}
	if control.Depends != "libc6" {
		t.Errorf("Depends = %q, want libc6", control.Depends)
	}
	if control.Section != "utils" {
		t.Errorf("Section = %q, want utils", control.Section)
	}
	if control.Description != "test package hello" {
		t.Errorf("Description = %q", control.Description)
	}
}

func TestDebInspectorRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.deb")
	if err := os.WriteFile(path, []byte("this is not an ar archive"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := (debpkg.DebInspector{}).Inspect(path); err == nil {
		t.Fatal("Inspect of a non-archive succeeded")
	}
}

func TestDebInspectorMissingFile(t *testing.T) {
	if _, err := (debpkg.DebInspector{}).Inspect(filepath.Join(t.TempDir(), "absent.deb")); err == nil {
		t.Fatal("Inspect of a missing file succeeded")
	}
}
