// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checksum

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestHexKnownVectors(t *testing.T) {
	tests := []struct {
		algorithm Algorithm
		input     string
		want      string
	}{
		{MD5, "", "d41d8cd98f00b204e9800998ecf8427e"},
		{MD5, "abc", "900150983cd24fb0d6963f7d28e17f72"},
		{SHA1, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, test := range tests {
		t.Run(test.algorithm.String()+"/"+test.input, func(t *testing.T) {
			if got := Hex([]byte(test.input), test.algorithm); got != test.want {
				t.Errorf("Hex(%q, %s) = %s, want %s", test.input, test.algorithm, got, test.want)
			}
		})
	}
}

func TestSumMatchesHex(t *testing.T) {
	data := []byte("Package: hello\nVersion: 1.0\n\n")
	sums := Sum(data)

	if sums.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", sums.Size, len(data))
	}
	for _, algorithm := range Algorithms {
		if got, want := sums.Get(algorithm), Hex(data, algorithm); got != want {
			t.Errorf("Sums.Get(%s) = %s, want %s", algorithm, got, want)
		}
	}
}

func TestHasherForwardsWrites(t *testing.T) {
	var destination bytes.Buffer
	hasher := NewHasher(&destination)

	hasher.Write([]byte("hello "))
	hasher.Write([]byte("world"))

	if destination.String() != "hello world" {
		t.Errorf("forwarded = %q, want %q", destination.String(), "hello world")
	}
	if got, want := hasher.Sums(), Sum([]byte("hello world")); got != want {
		t.Errorf("Sums() = %+v, want %+v", got, want)
	}
}

func TestHashFileAndCopyFile(t *testing.T) {
	directory := t.TempDir()
	source := filepath.Join(directory, "source.deb")
	content := bytes.Repeat([]byte{0x42, 0x00, 0xff}, 10000)
	if err := os.WriteFile(source, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	hashed, err := HashFile(source)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if hashed != Sum(content) {
		t.Errorf("HashFile = %+v, want %+v", hashed, Sum(content))
	}

	destination := filepath.Join(directory, "copy.deb")
	copied, err := CopyFile(destination, source)
	if err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	if copied != hashed {
		t.Errorf("CopyFile sums = %+v, want %+v", copied, hashed)
	}
	written, err := os.ReadFile(destination)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(written, content) {
		t.Error("copied content differs from source")
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("HashFile on missing file succeeded")
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, algorithm := range Algorithms {
		for _, name := range []string{algorithm.String(), algorithm.SectionName()} {
			parsed, err := ParseAlgorithm(name)
			if err != nil {
				t.Fatalf("ParseAlgorithm(%q): %v", name, err)
			}
			if parsed != algorithm {
				t.Errorf("ParseAlgorithm(%q) = %s, want %s", name, parsed, algorithm)
			}
		}
	}
	if _, err := ParseAlgorithm("crc32"); err == nil {
		t.Error("ParseAlgorithm(crc32) succeeded")
	}
}

func TestFieldNames(t *testing.T) {
	if MD5.SectionName() != "MD5Sum" || MD5.FieldName() != "MD5sum" {
		t.Errorf("MD5 names = %q/%q", MD5.SectionName(), MD5.FieldName())
	}
	if SHA256.FieldName() != "SHA256" {
		t.Errorf("SHA256.FieldName() = %q", SHA256.FieldName())
	}
}
