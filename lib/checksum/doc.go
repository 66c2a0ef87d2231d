// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package checksum computes the content digests an APT repository
// publishes for every package and index file: MD5, SHA1 and SHA256.
//
// APT clients select the strongest algorithm they support from the
// Release manifest and the Packages index, so every artifact carries
// all three. [Hasher] computes the three digests and the byte count in
// a single pass over a stream; [Sum] and [HashFile] are conveniences
// for in-memory buffers and files on disk.
//
// This package has no dependencies on other debrepo packages.
package checksum
