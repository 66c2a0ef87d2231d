// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the debrepo
// binaries: fatal error reporting to stderr for errors that occur
// before the structured logger exists, exit codes, and the
// signal-aware root context.
package process
