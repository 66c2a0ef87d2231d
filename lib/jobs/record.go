// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/bureau-foundation/debrepo/lib/repobuild"
)

// Status is the state of a repository's latest job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned by Store.Get for a repository with no record.
var ErrNotFound = errors.New("jobs: record not found")

// Record is the status of one repository.
type Record struct {
	// ID is "owner/repo".
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Status Status `json:"status"`
	JobID  string `json:"job_id"`
	Limit  int    `json:"limit"`

	// Error is the failure text of a failed job.
	Error string `json:"error,omitempty"`

	// ErrorClass names the failure class ("upstream fetch failed",
	// "signing failed", ...) when one applies.
	ErrorClass string `json:"error_class,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	// Summary describes the last completed build.
	Summary *repobuild.Summary `json:"summary,omitempty"`
}

// RecordID is the store key for owner/repo.
func RecordID(owner, repo string) string {
	return owner + "/" + repo
}

// Store persists records. Implementations are safe for concurrent use.
type Store interface {
	// Put inserts or replaces the record with record.ID.
	Put(ctx context.Context, record Record) error

	// Get returns the record for owner/repo or ErrNotFound.
	Get(ctx context.Context, owner, repo string) (Record, error)

	// List returns every record ordered by ID.
	List(ctx context.Context) ([]Record, error)
}
