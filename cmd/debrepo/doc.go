// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// debrepo builds signed APT repositories from GitHub release assets or
// a local directory of .deb files, and publishes them to the
// configured object store.
//
// Commands that sign or publish read their configuration from
// --config or DEBREPO_CONFIG. inspect and verify need no configuration.
package main
