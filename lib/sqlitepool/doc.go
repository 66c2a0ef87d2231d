// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite database that holds build status
// records.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool with a fixed set of
// pragmas and an ordered list of schema migrations. Callers [Pool.Take]
// a connection and [Pool.Put] it back, or use [Pool.Do]. Connections
// are not safe for concurrent use; each goroutine holds its own for the
// duration of its work.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: readers never block the single writer.
//   - synchronous=NORMAL: commits survive a process crash without an
//     fsync per transaction. Status records are rebuilt by the next
//     build, so losing the tail on power failure is acceptable.
//   - busy_timeout=5000: wait up to 5 seconds for the write lock.
//   - foreign_keys=ON.
//   - temp_store=MEMORY.
//
// # Migrations
//
// [Config.Migrations] is an append-only list of SQL scripts. Open runs
// the ones not yet applied, each in its own immediate transaction, and
// records progress in PRAGMA user_version. Never edit or reorder an
// entry once it has shipped; add a new one.
package sqlitepool
