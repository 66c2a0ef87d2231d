// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/debrepo/lib/compress"
)

func TestPaths(t *testing.T) {
	root := filepath.Join("srv", "repo")
	tree := New(root, "stable", "")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"pool", tree.PoolPath("hello_1.0_amd64.deb"), filepath.Join(root, "pool", "hello_1.0_amd64.deb")},
		{"plain index", tree.IndexPath("amd64", compress.None), filepath.Join(root, "dists", "stable", "main", "binary-amd64", "Packages")},
		{"xz index", tree.IndexPath("arm64", compress.XZ), filepath.Join(root, "dists", "stable", "main", "binary-arm64", "Packages.xz")},
		{"release", tree.ReleasePath(), filepath.Join(root, "dists", "stable", "Release")},
		{"inrelease", tree.InReleasePath(), filepath.Join(root, "dists", "stable", "InRelease")},
		{"signature", tree.DetachedSignaturePath(), filepath.Join(root, "dists", "stable", "Release.gpg")},
		{"public key", tree.PublicKeyPath(), filepath.Join(root, "key.gpg")},
		{"relative", tree.IndexRelative("amd64", compress.Gzip), "main/binary-amd64/Packages.gz"},
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%s = %q, want %q", test.name, test.got, test.want)
		}
	}
	if tree.Component() != DefaultComponent {
		t.Errorf("Component() = %q, want %q", tree.Component(), DefaultComponent)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	tree := New(t.TempDir(), "stable", "main")
	architectures := []string{"amd64", "arm64"}

	for attempt := 0; attempt < 2; attempt++ {
		if err := tree.Create(architectures); err != nil {
			t.Fatalf("Create attempt %d: %v", attempt, err)
		}
	}

	for _, directory := range []string{
		tree.PoolDirectory(),
		tree.IndexDirectory("amd64"),
		tree.IndexDirectory("arm64"),
	} {
		info, err := os.Stat(directory)
		if err != nil {
			t.Fatalf("Stat(%s): %v", directory, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", directory)
		}
	}
}

func TestCreateFailsUnderFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := New(root, "stable", "").Create([]string{"amd64"}); err == nil {
		t.Fatal("Create under a regular file succeeded")
	}
}
