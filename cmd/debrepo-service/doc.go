// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// debrepo-service runs repository builds on request. It serves the
// trigger API (POST /build, GET /repositories, the GitHub release
// webhook) on service.address and works the build queue with
// service.workers builders. Job status persists in paths.database.
//
// Configuration comes from --config or DEBREPO_CONFIG. SIGINT or
// SIGTERM stops the listener and waits for running builds; queued
// builds stay pending.
package main
