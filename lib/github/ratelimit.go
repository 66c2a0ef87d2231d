// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bureau-foundation/debrepo/lib/clock"
)

// RateLimit is the rate limit state most recently reported by GitHub.
// Known is false until a response carrying X-RateLimit-* headers has
// been seen.
type RateLimit struct {
	Known     bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// rateLimitTracker records X-RateLimit-* headers and blocks requests
// while the window is exhausted.
type rateLimitTracker struct {
	mu    sync.Mutex
	state RateLimit
	clock clock.Clock
}

func newRateLimitTracker(clock clock.Clock) *rateLimitTracker {
	return &rateLimitTracker{clock: clock}
}

func (tracker *rateLimitTracker) update(header http.Header) {
	remaining, err := strconv.Atoi(header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}
	limit, _ := strconv.Atoi(header.Get("X-RateLimit-Limit"))

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.state = RateLimit{
		Known:     true,
		Limit:     limit,
		Remaining: remaining,
		Reset:     time.Unix(resetUnix, 0),
	}
}

func (tracker *rateLimitTracker) snapshot() RateLimit {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.state
}

// wait sleeps until the reset time when the window is known to be
// exhausted. Returns an error only if ctx ends first.
func (tracker *rateLimitTracker) wait(ctx context.Context) error {
	tracker.mu.Lock()
	if !tracker.state.Known || tracker.state.Remaining > 0 {
		tracker.mu.Unlock()
		return nil
	}
	sleepDuration := tracker.state.Reset.Sub(tracker.clock.Now())
	tracker.mu.Unlock()

	if sleepDuration <= 0 {
		return nil
	}
	return clock.Sleep(ctx, tracker.clock, sleepDuration)
}

// retryAfter computes the backoff for a rate-limited response:
// Retry-After (secondary limits) first, then X-RateLimit-Reset.
// Zero means no backoff information was present.
func (tracker *rateLimitTracker) retryAfter(header http.Header) time.Duration {
	if retryStr := header.Get("Retry-After"); retryStr != "" {
		if seconds, err := strconv.Atoi(retryStr); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	if resetStr := header.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetUnix, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			duration := time.Unix(resetUnix, 0).Sub(tracker.clock.Now())
			if duration > 0 {
				return duration
			}
		}
	}
	return 0
}
