// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jobs queues repository builds and records their status.
//
// A [Store] holds one [Record] per repository, keyed "owner/repo": the
// latest job's id, its status (pending, completed or failed), the
// error text of a failure and the summary of a success. [SQLiteStore]
// persists records; [MemoryStore] backs tests and store-less runs.
//
// A [Queue] accepts requests into a bounded buffer and runs them on a
// fixed number of workers. A request for a repository that already has
// a job waiting coalesces onto that job and returns its id. Builds of
// the same repository never overlap: a job whose repository is still
// building waits for the earlier build to finish.
package jobs
