// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/debrepo/lib/codec"
	"github.com/bureau-foundation/debrepo/lib/repobuild"
	"github.com/bureau-foundation/debrepo/lib/sqlitepool"
)

var migrations = []string{
	`CREATE TABLE repositories (
		id          TEXT PRIMARY KEY,
		owner       TEXT NOT NULL,
		repo        TEXT NOT NULL,
		status      TEXT NOT NULL,
		job_id      TEXT NOT NULL,
		build_limit INTEGER NOT NULL DEFAULT 1,
		error       TEXT NOT NULL DEFAULT '',
		error_class TEXT NOT NULL DEFAULT '',
		updated_at  INTEGER NOT NULL,
		summary     BLOB
	);`,
}

const upsertRecord = `
INSERT INTO repositories (id, owner, repo, status, job_id, build_limit, error, error_class, updated_at, summary)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	owner = excluded.owner,
	repo = excluded.repo,
	status = excluded.status,
	job_id = excluded.job_id,
	build_limit = excluded.build_limit,
	error = excluded.error,
	error_class = excluded.error_class,
	updated_at = excluded.updated_at,
	summary = excluded.summary`

const selectRecords = `
SELECT id, owner, repo, status, job_id, build_limit, error, error_class, updated_at, summary
FROM repositories`

// SQLiteStore keeps records in SQLite. Summaries are stored as CBOR.
type SQLiteStore struct {
	pool *sqlitepool.Pool
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       path,
		Migrations: migrations,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}
	return &SQLiteStore{pool: pool}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, record Record) error {
	var summary []byte
	if record.Summary != nil {
		encoded, err := codec.Marshal(record.Summary)
		if err != nil {
			return fmt.Errorf("jobs: encoding summary of %s: %w", record.ID, err)
		}
		summary = encoded
	}
	return s.pool.Do(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, upsertRecord, &sqlitex.ExecOptions{
			Args: []any{
				record.ID,
				record.Owner,
				record.Repo,
				string(record.Status),
				record.JobID,
				record.Limit,
				record.Error,
				record.ErrorClass,
				record.UpdatedAt.UnixNano(),
				summary,
			},
		})
		if err != nil {
			return fmt.Errorf("jobs: writing %s: %w", record.ID, err)
		}
		return nil
	})
}

func (s *SQLiteStore) Get(ctx context.Context, owner, repo string) (Record, error) {
	records, err := s.query(ctx, selectRecords+" WHERE id = ?", RecordID(owner, repo))
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, ErrNotFound
	}
	return records[0], nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, selectRecords+" ORDER BY id")
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	records := []Record{}
	err := s.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, err := scanRecord(stmt)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: reading records: %w", err)
	}
	return records, nil
}

func scanRecord(stmt *sqlite.Stmt) (Record, error) {
	record := Record{
		ID:         stmt.ColumnText(0),
		Owner:      stmt.ColumnText(1),
		Repo:       stmt.ColumnText(2),
		Status:     Status(stmt.ColumnText(3)),
		JobID:      stmt.ColumnText(4),
		Limit:      stmt.ColumnInt(5),
		Error:      stmt.ColumnText(6),
		ErrorClass: stmt.ColumnText(7),
		UpdatedAt:  time.Unix(0, stmt.ColumnInt64(8)).UTC(),
	}
	if length := stmt.ColumnLen(9); length > 0 {
		encoded := make([]byte, length)
		stmt.ColumnBytes(9, encoded)
		var summary repobuild.Summary
		if err := codec.Unmarshal(encoded, &summary); err != nil {
			return Record{}, fmt.Errorf("decoding summary of %s: %w", record.ID, err)
		}
		record.Summary = &summary
	}
	return record, nil
}
