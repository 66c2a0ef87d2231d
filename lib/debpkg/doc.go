// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package debpkg models the binary packages that go into a repository.
//
// A [Blob] is a .deb file in the repository pool together with the
// metadata the Packages index needs: its size, its digests and its
// [Control] record. Control holds exactly the control fields the index
// publishes. [ParseControl] validates a raw field mapping into a
// Control, rejecting packages that lack a required field.
//
// The [Inspector] interface extracts the raw mapping from a package
// file. [DebInspector] reads real .deb archives through
// pault.ag/go/debian; tests substitute a map-backed inspector.
package debpkg
