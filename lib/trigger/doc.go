// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trigger is the HTTP front end of debrepo-service. It turns
// build requests and GitHub release webhooks into queued jobs and
// serves the per-repository status records the workers write.
//
// Routes:
//
//	POST /build                        queue a build {owner, repo, limit?}
//	GET  /repositories                 list status records
//	GET  /repositories/{owner}/{repo}  one status record
//	POST /webhooks/github              release webhooks (HMAC verified)
//	GET  /healthz                      liveness
//
// POST /build is rate limited per client address. Webhook deliveries
// are deduplicated by X-GitHub-Delivery for an hour.
package trigger
