// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectstore defines the remote store a finished repository
// tree is published to, and an in-memory implementation for tests.
//
// Keys are slash separated. Prefix operations treat a prefix as a
// directory: DeletePrefix("repos/o/r") removes "repos/o/r/pool/x.deb"
// but leaves "repos/o/r2/..." alone.
//
// Backends live in subpackages: fsstore (a local directory served by
// any web server), s3store (S3 and Cloudflare R2 via minio-go) and
// gcsstore (Google Cloud Storage). Each reports provider failures as
// *Error so that IsTransient can decide whether an upload is worth
// retrying.
package objectstore
