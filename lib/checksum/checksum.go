// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Algorithm identifies one of the digest algorithms used in APT
// metadata.
type Algorithm uint8

const (
	MD5 Algorithm = iota + 1
	SHA1
	SHA256
)

// Algorithms lists every supported algorithm in the order the Release
// manifest writes its checksum sections.
var Algorithms = []Algorithm{MD5, SHA1, SHA256}

// String returns the lowercase algorithm name.
func (algorithm Algorithm) String() string {
	switch algorithm {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(algorithm))
	}
}

// SectionName returns the heading used for this algorithm's table in
// a Release file ("MD5Sum", "SHA1", "SHA256").
func (algorithm Algorithm) SectionName() string {
	switch algorithm {
	case MD5:
		return "MD5Sum"
	case SHA1:
		return "SHA1"
	case SHA256:
		return "SHA256"
	default:
		return algorithm.String()
	}
}

// FieldName returns the field name used for this algorithm inside a
// Packages record ("MD5sum", "SHA1", "SHA256").
func (algorithm Algorithm) FieldName() string {
	if algorithm == MD5 {
		return "MD5sum"
	}
	return algorithm.SectionName()
}

// ParseAlgorithm parses an algorithm from its lowercase name or its
// Release section heading.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "md5", "MD5Sum", "MD5sum":
		return MD5, nil
	case "sha1", "SHA1":
		return SHA1, nil
	case "sha256", "SHA256":
		return SHA256, nil
	default:
		return 0, fmt.Errorf("checksum: unknown algorithm %q", name)
	}
}

func (algorithm Algorithm) newHash() hash.Hash {
	switch algorithm {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	default:
		panic("checksum: unknown algorithm " + algorithm.String())
	}
}

// Hex returns the lowercase hex digest of data under algorithm.
func Hex(data []byte, algorithm Algorithm) string {
	hasher := algorithm.newHash()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// Sums holds every digest of one blob together with its length.
type Sums struct {
	Size   int64
	MD5    string
	SHA1   string
	SHA256 string
}

// Get returns the hex digest for algorithm.
func (sums Sums) Get(algorithm Algorithm) string {
	switch algorithm {
	case MD5:
		return sums.MD5
	case SHA1:
		return sums.SHA1
	case SHA256:
		return sums.SHA256
	default:
		return ""
	}
}

// Set stores digest as the hex value for algorithm.
func (sums *Sums) Set(algorithm Algorithm, digest string) {
	switch algorithm {
	case MD5:
		sums.MD5 = digest
	case SHA1:
		sums.SHA1 = digest
	case SHA256:
		sums.SHA256 = digest
	}
}

// Hasher is an io.Writer that feeds every byte written through MD5,
// SHA1 and SHA256 at once and counts the total size. If constructed
// with a destination writer, bytes are forwarded to it as well, which
// lets a file copy and its digests happen in one pass.
type Hasher struct {
	md5    hash.Hash
	sha1   hash.Hash
	sha256 hash.Hash
	tee    io.Writer
	size   int64
}

// NewHasher returns a Hasher that forwards writes to tee. tee may be
// nil.
func NewHasher(tee io.Writer) *Hasher {
	return &Hasher{
		md5:    md5.New(),
		sha1:   sha1.New(),
		sha256: sha256.New(),
		tee:    tee,
	}
}

// Write implements io.Writer. A short write to the tee destination is
// reported and the bytes are not counted.
func (hasher *Hasher) Write(buffer []byte) (int, error) {
	if hasher.tee != nil {
		n, err := hasher.tee.Write(buffer)
		if err != nil {
			return n, err
		}
	}
	hasher.md5.Write(buffer)
	hasher.sha1.Write(buffer)
	hasher.sha256.Write(buffer)
	hasher.size += int64(len(buffer))
	return len(buffer), nil
}

// Sums returns the digests of everything written so far.
func (hasher *Hasher) Sums() Sums {
	return Sums{
		Size:   hasher.size,
		MD5:    hex.EncodeToString(hasher.md5.Sum(nil)),
		SHA1:   hex.EncodeToString(hasher.sha1.Sum(nil)),
		SHA256: hex.EncodeToString(hasher.sha256.Sum(nil)),
	}
}

// Sum computes all digests of an in-memory buffer.
func Sum(data []byte) Sums {
	hasher := NewHasher(nil)
	hasher.Write(data)
	return hasher.Sums()
}

// HashFile streams the file at path through all three digests with
// constant memory use.
func HashFile(path string) (Sums, error) {
	file, err := os.Open(path)
	if err != nil {
		return Sums{}, fmt.Errorf("checksum: opening %s: %w", path, err)
	}
	defer file.Close()

	hasher := NewHasher(nil)
	if _, err := io.Copy(hasher, file); err != nil {
		return Sums{}, fmt.Errorf("checksum: hashing %s: %w", path, err)
	}
	return hasher.Sums(), nil
}

// CopyFile copies source to destination and returns the digests of the
// copied bytes. The destination is created with mode 0644, replacing
// any existing file.
func CopyFile(destination, source string) (Sums, error) {
	input, err := os.Open(source)
	if err != nil {
		return Sums{}, fmt.Errorf("checksum: opening %s: %w", source, err)
	}
	defer input.Close()

	output, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Sums{}, fmt.Errorf("checksum: creating %s: %w", destination, err)
	}

	hasher := NewHasher(output)
	if _, err := io.Copy(hasher, input); err != nil {
		output.Close()
		return Sums{}, fmt.Errorf("checksum: copying %s: %w", source, err)
	}
	if err := output.Close(); err != nil {
		return Sums{}, fmt.Errorf("checksum: closing %s: %w", destination, err)
	}
	return hasher.Sums(), nil
}
