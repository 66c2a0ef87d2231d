// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the debrepo
// CLI and service.
//
// Configuration is loaded from a single file named by either the
// DEBREPO_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no file discovery.
//
// The file may carry development, staging and production sections.
// The one matching [Config].Environment is decoded over the base
// values after load, so it only needs the keys it changes.
//
// ${VAR} and ${VAR:-default} are expanded in path, endpoint and secret
// fields after overrides are applied. ${DEBREPO_ROOT} refers to
// paths.root. Secrets are normally written as ${GITHUB_TOKEN} and
// friends rather than inline.
//
// Key exports:
//
//   - [Config] -- master struct: repository, signing, github, storage,
//     service, paths
//   - [Default] -- a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other debrepo packages.
package config
