// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for debrepo packages.
//
// [WriteDeb] assembles a minimal but genuine .deb archive (ar container
// with debian-binary, control.tar.gz and data.tar.gz members) so that
// tests exercise the real package inspector instead of a stub.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern for tests that wait on worker goroutines. They are the only
// place tests use the wall clock.
package testutil
