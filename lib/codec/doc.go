// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration used for data at rest.
//
// JSON is the format at the HTTP edge (the trigger API and CLI
// output). CBOR is the format of build summaries stored in the job
// database. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2), so the same summary always produces the same bytes, and
// timestamps are written as RFC 3339 strings with nanoseconds so they
// survive a round trip exactly.
//
// # Struct tags
//
// A `cbor` tag marks a type that is only ever stored. A `json` tag
// marks a type that is also served over HTTP: fxamacker/cbor reads
// `json` tags when `cbor` tags are absent, so one tag names the field
// in both formats. Never put both tags on one field.
package codec
