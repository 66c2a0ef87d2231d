// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish synchronizes a finished repository tree to an object
// store namespace.
//
// A publish replaces the namespace wholesale. The previous snapshot is
// deleted first, then the new tree is uploaded in phases so that a
// client polling the repository meets referenced files before the
// files that reference them:
//
//  1. pool packages and any other content
//  2. Packages indexes
//  3. key.gpg
//  4. Release.gpg, Release, InRelease, one at a time
//
// Files within phases 1 to 3 upload concurrently. Index and Release
// objects are served with caching disabled; everything else keeps the
// store's default caching, since pool files never change in place.
//
// Uploads failing with a transient store error are retried with
// exponential backoff on the injected clock. Any other failure aborts
// the publish and wraps ErrStorage.
package publish
