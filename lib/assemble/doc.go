// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assemble turns a loaded [config.Config] into the running
// parts of debrepo: the signing keyring, the object store named by
// storage.backend, the publisher, the GitHub release source and the
// repository builder. Both binaries construct their components here so
// the CLI and the service agree on how configuration is interpreted.
package assemble
