// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package source lists the binary packages a repository is built from
// and downloads them into the pool.
//
// A [Source] reports releases newest first, each carrying only its
// .deb assets. Releases with no .deb assets are skipped before the
// limit is applied, so a limit of N yields the N most recent releases
// that actually ship packages. [GitHub] reads a repository's GitHub
// releases; [Directory] serves local files for offline builds and
// tests.
package source
