// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Field is one control field, kept ordered so the generated control
// file matches what dpkg-deb would write.
type Field struct {
	Name  string
	Value string
}

// ControlFields returns the fields of a typical package. Extra fields
// are appended after the standard ones.
func ControlFields(name, version, architecture string, extra ...Field) []Field {
	fields := []Field{
		{"Package", name},
		{"Version", version},
		{"Architecture", architecture},
		{"Maintainer", "Repository Tests <tests@example.com>"},
		{"Description", "test package " + name},
	}
	return append(fields, extra...)
}

// WriteDeb writes a .deb archive containing the given control fields
// to directory/filename and returns its path. The data member holds a
// single file so archives for different packages differ in content.
func WriteDeb(t testing.TB, directory, filename string, fields []Field) string {
	t.Helper()

	var control strings.Builder
	for _, field := range fields {
		fmt.Fprintf(&control, "%s: %s\n", field.Name, field.Value)
	}

	controlTar := tarGzip(t, map[string]string{"./control": control.String()})
	dataTar := tarGzip(t, map[string]string{
		"./usr/share/doc/" + fields[0].Value + "/README": "payload for " + filename + "\n",
	})

	var archive bytes.Buffer
	archive.WriteString("!<arch>\n")
	writeArMember(&archive, "debian-binary", []byte("2.0\n"))
	writeArMember(&archive, "control.tar.gz", controlTar)
	writeArMember(&archive, "data.tar.gz", dataTar)

	path := filepath.Join(directory, filename)
	if err := os.WriteFile(path, archive.Bytes(), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// writeArMember appends one member in the common ar format: a 60-byte
// header followed by the data, padded to an even length.
func writeArMember(archive *bytes.Buffer, name string, data []byte) {
	fmt.Fprintf(archive, "%-16s%-12d%-6d%-6d%-8s%-10d`\n", name, 0, 0, 0, "100644", len(data))
	archive.Write(data)
	if len(data)%2 == 1 {
		archive.WriteByte('\n')
	}
}

func tarGzip(t testing.TB, files map[string]string) []byte {
	t.Helper()

	var buffer bytes.Buffer
	compressor := gzip.NewWriter(&buffer)
	writer := tar.NewWriter(compressor)
	for name, content := range files {
		header := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := writer.WriteHeader(header); err != nil {
			t.Fatalf("tar header %s: %v", name, err)
		}
		if _, err := writer.Write([]byte(content)); err != nil {
			t.Fatalf("tar write %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := compressor.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buffer.Bytes()
}
