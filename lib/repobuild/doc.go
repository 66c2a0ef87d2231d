// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package repobuild runs one repository build end to end.
//
// A build fetches the newest releases of a repository from a
// [source.Source], downloads their .deb assets into a staging
// directory, inspects each one, copies the packages that inspect
// cleanly into the pool, writes per-architecture indexes, exports the
// signing public key, writes and signs the Release manifest, and
// finally publishes the tree to the object store under the
// repository's namespace.
//
// Stages run strictly in that order. Nothing is published unless every
// earlier stage succeeded, so an upstream or signing failure never
// disturbs the snapshot already served at the namespace. The error
// returned by [Builder.Build] wraps exactly one of the sentinel
// classes in errors.go.
package repobuild
