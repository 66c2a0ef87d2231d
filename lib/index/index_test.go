// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/debrepo/lib/checksum"
	"github.com/bureau-foundation/debrepo/lib/compress"
	"github.com/bureau-foundation/debrepo/lib/debpkg"
	"github.com/bureau-foundation/debrepo/lib/layout"
	"github.com/bureau-foundation/debrepo/lib/testutil"
)

// poolBlob writes content into the pool and returns its Blob.
func poolBlob(t *testing.T, tree layout.Layout, filename string, control debpkg.Control, content string) debpkg.Blob {
	t.Helper()
	if err := tree.Create(nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	path := tree.PoolPath(filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	sums, err := checksum.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	return debpkg.Blob{Path: path, Filename: filename, Sums: sums, Control: control}
}

func control(name, architecture string) debpkg.Control {
	return debpkg.Control{
		Package:      name,
		Version:      "1.0",
		Architecture: architecture,
		Maintainer:   "Tests <tests@example.com>",
	}
}

func TestRenderFieldOrder(t *testing.T) {
	blob := debpkg.Blob{
		Filename: "hello_1.0_amd64.deb",
		Sums: checksum.Sums{
			Size:   1234,
			MD5:    "m",
			SHA1:   "s1",
			SHA256: "s256",
		},
		Control: debpkg.Control{
			Package:      "hello",
			Version:      "1.0",
			Architecture: "amd64",
			Maintainer:   "Jane <jane@example.com>",
			Depends:      "libc6",
			Section:      "utils",
			Description:  "greets the world",
		},
	}

	got := string(Render([]debpkg.Blob{blob}, "repos/owner/hello"))
	want := "Package: hello\n" +
		"Version: 1.0\n" +
		"Architecture: amd64\n" +
		"Maintainer: Jane <jane@example.com>\n" +
		"Depends: libc6\n" +
		"Filename: repos/owner/hello/pool/hello_1.0_amd64.deb\n" +
		"Size: 1234\n" +
		"MD5sum: m\n" +
		"SHA1: s1\n" +
		"SHA256: s256\n" +
		"Section: utils\n" +
		"Description: greets the world\n" +
		"\n"
	if got != want {
		t.Errorf("Render =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderOmitsAbsentOptionalFields(t *testing.T) {
	blob := debpkg.Blob{Filename: "a.deb", Control: control("a", "all")}
	got := string(Render([]debpkg.Blob{blob}, ""))
	for _, absent := range []string{"Depends:", "Section:", "Description:"} {
		if strings.Contains(got, absent) {
			t.Errorf("record contains %q:\n%s", absent, got)
		}
	}
	if !strings.Contains(got, "Filename: pool/a.deb\n") {
		t.Errorf("archive-relative Filename missing:\n%s", got)
	}
	if !strings.HasSuffix(got, "SHA256: \n\n") {
		t.Errorf("record does not end with SHA256 and one blank line:\n%q", got)
	}
}

func TestRenderMultilineDescription(t *testing.T) {
	blob := debpkg.Blob{Filename: "a.deb", Control: control("a", "amd64")}
	blob.Control.Description = "short summary\nlong text line\n\nsecond paragraph\n  indented"
	got := string(Render([]debpkg.Blob{blob}, ""))
	want := "Description: short summary\n long text line\n .\n second paragraph\n   indented\n\n"
	if !strings.HasSuffix(got, want) {
		t.Errorf("description rendered as\n%q\nwant suffix\n%q", got, want)
	}
}

// A description read from a real control file renders back to the same
// lines, including indentation past the continuation marker.
func TestRenderKeepsControlFileDescription(t *testing.T) {
	description := "widget tool\n" +
		" Widget frobnicates things.\n" +
		" .\n" +
		" Example:\n" +
		"   widget --frob input\n" +
		"     nested"
	path := testutil.WriteDeb(t, t.TempDir(), "widget_1.0_amd64.deb",
		append(testutil.ControlFields("widget", "1.0", "amd64")[:4],
			testutil.Field{Name: "Description", Value: description}))

	parsed, err := debpkg.InspectControl(debpkg.DebInspector{}, path)
	if err != nil {
		t.Fatalf("InspectControl: %v", err)
	}
	got := string(Render([]debpkg.Blob{{Filename: "widget_1.0_amd64.deb", Control: parsed}}, ""))
	want := "Description: " + description + "\n\n"
	if !strings.HasSuffix(got, want) {
		t.Errorf("description rendered as\n%q\nwant suffix\n%q", got, want)
	}
}

func TestBuildSingleArchitecture(t *testing.T) {
	tree := layout.New(t.TempDir(), "stable", "")
	blobs := []debpkg.Blob{
		poolBlob(t, tree, "hello_1.0_amd64.deb", control("hello", "amd64"), "amd64 payload"),
	}

	built, err := BuildAll(tree, []string{"amd64", "arm64"}, blobs, "repos/o/r")
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(built) != 1 || built[0].Architecture != "amd64" {
		t.Fatalf("built architectures = %v, want [amd64]", Architectures(built))
	}
	if len(built[0].Packages) != 1 {
		t.Errorf("amd64 has %d records, want 1", len(built[0].Packages))
	}

	plain, err := os.ReadFile(tree.IndexPath("amd64", compress.None))
	if err != nil {
		t.Fatalf("reading amd64 index: %v", err)
	}
	if count := strings.Count(string(plain), "Package: "); count != 1 {
		t.Errorf("amd64 index has %d records, want 1", count)
	}

	for _, codec := range compress.Codecs {
		_, err := os.Stat(tree.IndexPath("arm64", codec))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("arm64 %s index exists or unexpected error: %v", codec, err)
		}
	}
}

func TestBuildIncludesArchitectureAll(t *testing.T) {
	tree := layout.New(t.TempDir(), "stable", "")
	blobs := []debpkg.Blob{
		poolBlob(t, tree, "tool_1.0_amd64.deb", control("tool", "amd64"), "binary"),
		poolBlob(t, tree, "docs_1.0_all.deb", control("docs", "all"), "documentation"),
	}

	built, err := BuildAll(tree, []string{"amd64", "arm64"}, blobs, "")
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if got := Architectures(built); len(got) != 2 || got[0] != "amd64" || got[1] != "arm64" {
		t.Fatalf("built architectures = %v, want [amd64 arm64]", got)
	}
	if len(built[0].Packages) != 2 {
		t.Errorf("amd64 has %d records, want 2", len(built[0].Packages))
	}
	if len(built[1].Packages) != 1 || built[1].Packages[0].Control.Package != "docs" {
		t.Errorf("arm64 records = %v, want only docs", built[1].Packages)
	}
	// Sorted by pool file name.
	if built[0].Packages[0].Filename != "docs_1.0_all.deb" {
		t.Errorf("first amd64 record = %s, want docs_1.0_all.deb", built[0].Packages[0].Filename)
	}
}

func TestBuildAllRepeatedArchitecture(t *testing.T) {
	tree := layout.New(t.TempDir(), "stable", "")
	blobs := []debpkg.Blob{
		poolBlob(t, tree, "tool_1.0_amd64.deb", control("tool", "amd64"), "binary"),
	}

	built, err := BuildAll(tree, []string{"amd64", "arm64", "amd64"}, blobs, "")
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if got := Architectures(built); len(got) != 1 || got[0] != "amd64" {
		t.Errorf("built architectures = %v, want [amd64]", got)
	}
}

func TestBuildOnlyAllPackagesWithoutAmd64(t *testing.T) {
	tree := layout.New(t.TempDir(), "stable", "")
	blobs := []debpkg.Blob{
		poolBlob(t, tree, "tool_1.0_amd64.deb", control("tool", "amd64"), "binary"),
	}
	_, ok, err := Build(tree, "arm64", blobs, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ok {
		t.Error("Build(arm64) reported a non-empty index")
	}
	if _, err := os.Stat(tree.IndexDirectory("arm64")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("arm64 directory created for empty index: %v", err)
	}
}

func TestRecordChecksumsMatchPoolFiles(t *testing.T) {
	tree := layout.New(t.TempDir(), "stable", "")
	blobs := []debpkg.Blob{
		poolBlob(t, tree, "a_1_amd64.deb", control("a", "amd64"), "first payload"),
		poolBlob(t, tree, "b_1_amd64.deb", control("b", "amd64"), "second, longer payload"),
	}
	index, ok, err := Build(tree, "amd64", blobs, "")
	if err != nil || !ok {
		t.Fatalf("Build = ok %v, err %v", ok, err)
	}

	plain, err := os.ReadFile(index.Artifacts[0].Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	records := parseRecords(string(plain))
	if len(records) != 2 {
		t.Fatalf("parsed %d records, want 2", len(records))
	}
	for _, record := range records {
		poolFile := filepath.Join(tree.Root(), filepath.FromSlash(record["Filename"]))
		content, err := os.ReadFile(poolFile)
		if err != nil {
			t.Fatalf("reading %s: %v", poolFile, err)
		}
		if got, want := record["SHA256"], checksum.Hex(content, checksum.SHA256); got != want {
			t.Errorf("%s SHA256 = %s, want %s", record["Package"], got, want)
		}
		if got, want := record["MD5sum"], checksum.Hex(content, checksum.MD5); got != want {
			t.Errorf("%s MD5sum = %s, want %s", record["Package"], got, want)
		}
	}
}

func TestCompressedArtifactsDecodeToPlain(t *testing.T) {
	tree := layout.New(t.TempDir(), "stable", "")
	blobs := []debpkg.Blob{poolBlob(t, tree, "a_1_amd64.deb", control("a", "amd64"), "payload")}
	index, ok, err := Build(tree, "amd64", blobs, "")
	if err != nil || !ok {
		t.Fatalf("Build = ok %v, err %v", ok, err)
	}
	if len(index.Artifacts) != 3 {
		t.Fatalf("artifacts = %d, want 3", len(index.Artifacts))
	}

	plain, err := os.ReadFile(index.Artifacts[0].Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, artifact := range index.Artifacts {
		encoded, err := os.ReadFile(artifact.Path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", artifact.Path, err)
		}
		if artifact.Sums != checksum.Sum(encoded) {
			t.Errorf("%s: recorded sums do not match file", artifact.Relative)
		}
		decoded, err := artifact.Codec.Decompress(encoded)
		if err != nil {
			t.Fatalf("%s Decompress: %v", artifact.Relative, err)
		}
		if string(decoded) != string(plain) {
			t.Errorf("%s does not decode to the plain index", artifact.Relative)
		}
	}
}

// parseRecords splits a Packages document into single-line field maps.
func parseRecords(document string) []map[string]string {
	var records []map[string]string
	for _, paragraph := range strings.Split(strings.TrimSpace(document), "\n\n") {
		record := make(map[string]string)
		for _, line := range strings.Split(paragraph, "\n") {
			name, value, found := strings.Cut(line, ": ")
			if found {
				record[name] = value
			}
		}
		records = append(records, record)
	}
	return records
}
