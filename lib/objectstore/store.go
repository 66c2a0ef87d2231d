// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Metadata are the HTTP response headers an object is served with.
type Metadata struct {
	ContentType  string
	CacheControl string
	Expires      string
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key      string
	Size     int64
	Metadata Metadata
}

// Store is a flat key/value object store.
type Store interface {
	// Put uploads size bytes from body under key, replacing any
	// existing object.
	Put(ctx context.Context, key string, body io.Reader, size int64, metadata Metadata) error

	// DeletePrefix removes every object under prefix and returns how
	// many were removed. An empty namespace is not an error.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// List returns every object under prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// DirectoryPrefix returns prefix with exactly one trailing slash, or ""
// for the bucket root.
func DirectoryPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Error is a backend failure with the provider's classification.
type Error struct {
	// Op is the store operation ("put", "list", "delete").
	Op  string
	Key string

	// StatusCode is the HTTP status of the provider response, zero if
	// the request never got one.
	StatusCode int

	// Code is the provider error code, such as "SlowDown".
	Code string

	Err error
}

func (e *Error) Error() string {
	var detail strings.Builder
	if e.StatusCode != 0 {
		fmt.Fprintf(&detail, " (HTTP %d", e.StatusCode)
		if e.Code != "" {
			detail.WriteString(" " + e.Code)
		}
		detail.WriteString(")")
	} else if e.Code != "" {
		detail.WriteString(" (" + e.Code + ")")
	}
	return fmt.Sprintf("objectstore: %s %s%s: %v", e.Op, e.Key, detail.String(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// transientCodes are provider error codes that describe a momentary
// server condition.
var transientCodes = map[string]bool{
	"InternalError":      true,
	"SlowDown":           true,
	"ServiceUnavailable": true,
	"RequestTimeout":     true,
}

// Transient reports whether retrying the same request may succeed.
func (e *Error) Transient() bool {
	if e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return transientCodes[e.Code]
}

// IsTransient reports whether err is a backend failure worth retrying:
// HTTP 5xx, 429, InternalError or SlowDown. Context cancellation is
// never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var storeError *Error
	if errors.As(err, &storeError) {
		return storeError.Transient()
	}
	return false
}
