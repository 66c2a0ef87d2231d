// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress produces the compressed siblings of APT index files.
//
// Every Packages index is published three times: plain, gzip and xz.
// Both codecs run at their strongest setting and write no timestamps or
// file names into their containers, so the compressed bytes depend only
// on the input.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Codec identifies an index encoding.
type Codec uint8

const (
	// None is the uncompressed index.
	None Codec = iota
	// Gzip is RFC 1952 gzip at best compression.
	Gzip
	// XZ is the xz container with LZMA2.
	XZ
)

// Codecs lists every codec in the order index artifacts are written and
// listed in the Release manifest.
var Codecs = []Codec{None, Gzip, XZ}

// maxDictionary matches the dictionary size of the xz -9 preset.
const maxDictionary = 64 << 20

// minDictionary is the smallest dictionary the xz writer accepts.
const minDictionary = 1 << 12

// String returns the codec name.
func (codec Codec) String() string {
	switch codec {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case XZ:
		return "xz"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(codec))
	}
}

// Extension returns the file name suffix for the codec, including the
// leading dot. None has no extension.
func (codec Codec) Extension() string {
	switch codec {
	case Gzip:
		return ".gz"
	case XZ:
		return ".xz"
	default:
		return ""
	}
}

// ParseCodec parses a codec from its name or file extension.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "none":
		return None, nil
	case "gzip", "gz", ".gz":
		return Gzip, nil
	case "xz", ".xz":
		return XZ, nil
	default:
		return 0, fmt.Errorf("compress: unknown codec %q", name)
	}
}

// Compress encodes data with the codec. None returns data unchanged.
func (codec Codec) Compress(data []byte) ([]byte, error) {
	if codec == None {
		return data, nil
	}
	var buffer bytes.Buffer
	writer, err := codec.newWriter(&buffer, len(data))
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %s write: %w", codec, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compress: %s close: %w", codec, err)
	}
	return buffer.Bytes(), nil
}

// Decompress reverses Compress.
func (codec Codec) Decompress(data []byte) ([]byte, error) {
	var reader io.Reader
	switch codec {
	case None:
		return data, nil
	case Gzip:
		gzipReader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("compress: gzip header: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case XZ:
		xzReader, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("compress: xz header: %w", err)
		}
		reader = xzReader
	default:
		return nil, fmt.Errorf("compress: unknown codec %d", uint8(codec))
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("compress: %s decode: %w", codec, err)
	}
	return decoded, nil
}

// NewWriter returns a streaming encoder writing to w. The caller must
// Close it to flush the container trailer; Close does not close w.
// None returns a writer whose Close is a no-op.
func (codec Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return codec.newWriter(w, maxDictionary)
}

// newWriter sizes the xz dictionary to the expected input. A
// dictionary larger than the input cannot improve the ratio.
func (codec Codec) newWriter(w io.Writer, expected int) (io.WriteCloser, error) {
	switch codec {
	case None:
		return nopCloser{w}, nil
	case Gzip:
		writer, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("compress: gzip writer: %w", err)
		}
		return writer, nil
	case XZ:
		config := xz.WriterConfig{DictCap: dictionarySize(expected)}
		writer, err := config.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("compress: xz writer: %w", err)
		}
		return writer, nil
	default:
		return nil, fmt.Errorf("compress: unknown codec %d", uint8(codec))
	}
}

func dictionarySize(expected int) int {
	size := minDictionary
	for size < expected && size < maxDictionary {
		size <<= 1
	}
	return size
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
