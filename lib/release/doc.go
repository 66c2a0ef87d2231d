// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package release writes and checks the signed top-level manifest of a
// repository dist.
//
// Build is called once every architecture index is finalized. It lists
// each index artifact on disk under MD5Sum, SHA1 and SHA256 tables,
// writes Release, then signs it twice: the cleartext-signed InRelease
// and the detached Release.gpg. Because the manifest commits to the
// exact bytes of each index, any later change to an index invalidates
// the signature.
//
// Parse and Verify read a finished dist back for the verify command
// and for tests.
package release
