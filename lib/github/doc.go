// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package github is a small typed client for the parts of the GitHub
// REST API a release-driven repository build needs: listing a
// repository's releases and downloading release assets.
//
// Requests are authenticated with a personal access token when one is
// configured and anonymous otherwise (public repositories only, with
// the lower anonymous rate limit). The client tracks X-RateLimit-*
// headers and waits out an exhausted window before sending, retries a
// rate-limited response once after the advertised backoff, follows
// RFC 5988 Link pagination, and reuses ETag-validated responses.
//
// All requests go over HTTPS. The client refuses non-HTTPS base URLs.
package github
