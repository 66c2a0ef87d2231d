// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the HTTP scaffolding shared by long-running
// debrepo binaries: a TCP server with graceful shutdown, access
// logging, JSON response helpers and webhook signature verification.
//
// Binaries compose these pieces in main rather than through a
// framework. Routing and request semantics live in the packages that
// own them (see lib/trigger).
package service
