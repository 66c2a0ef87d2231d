// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/layout"
	"github.com/bureau-foundation/debrepo/lib/objectstore"
)

// ErrStorage is the class of every object store failure that ends a
// publish.
var ErrStorage = errors.New("object storage failure")

const (
	// DefaultMaxAttempts bounds uploads of one object, first try
	// included.
	DefaultMaxAttempts = 5

	// DefaultConcurrency is the number of simultaneous uploads within
	// a phase.
	DefaultConcurrency = 8
)

// Config configures a Publisher.
type Config struct {
	Store objectstore.Store

	Clock  clock.Clock
	Logger *slog.Logger

	// MaxAttempts defaults to DefaultMaxAttempts.
	MaxAttempts int

	// Concurrency defaults to DefaultConcurrency.
	Concurrency int

	// UploadRate caps upload attempts per second. Zero is unlimited.
	UploadRate float64

	// UploadBurst is the limiter burst. Defaults to Concurrency.
	UploadBurst int
}

// Publisher uploads repository trees to one store.
type Publisher struct {
	store       objectstore.Store
	clock       clock.Clock
	logger      *slog.Logger
	maxAttempts int
	concurrency int
	limiter     *rate.Limiter
}

// Report summarizes one publish.
type Report struct {
	Namespace string

	// Deleted counts objects removed from the previous snapshot.
	Deleted int

	Uploaded int
	Bytes    int64

	// Retries counts upload attempts after the first, across all
	// objects.
	Retries int

	Duration time.Duration
}

// New returns a Publisher.
func New(config Config) (*Publisher, error) {
	if config.Store == nil {
		return nil, errors.New("publish: store is required")
	}
	publisher := &Publisher{
		store:       config.Store,
		clock:       config.Clock,
		logger:      config.Logger,
		maxAttempts: config.MaxAttempts,
		concurrency: config.Concurrency,
	}
	if publisher.clock == nil {
		publisher.clock = clock.Real()
	}
	if publisher.logger == nil {
		publisher.logger = slog.Default()
	}
	if publisher.maxAttempts <= 0 {
		publisher.maxAttempts = DefaultMaxAttempts
	}
	if publisher.concurrency <= 0 {
		publisher.concurrency = DefaultConcurrency
	}
	if config.UploadRate > 0 {
		burst := config.UploadBurst
		if burst <= 0 {
			burst = publisher.concurrency
		}
		publisher.limiter = rate.NewLimiter(rate.Limit(config.UploadRate), burst)
	}
	return publisher, nil
}

// Backoff returns the delay before retry number attempt (1-based):
// 2s, 4s, 8s, 16s.
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// upload is one local file bound for a key.
type upload struct {
	local string
	key   string
	size  int64
}

type phase int

const (
	phaseContent phase = iota
	phaseIndex
	phasePublicKey
	phaseRelease
)

// releaseOrder is the upload sequence of the final phase.
var releaseOrder = map[string]int{
	layout.SignatureName: 0,
	layout.ReleaseName:   1,
	layout.InReleaseName: 2,
}

func classify(relative string) phase {
	base := path.Base(relative)
	if _, ok := releaseOrder[base]; ok {
		return phaseRelease
	}
	switch {
	case base == layout.PublicKeyFileName:
		return phasePublicKey
	case uncachedNames[base]:
		return phaseIndex
	default:
		return phaseContent
	}
}

// Publish replaces everything under namespace with the tree at root.
// Object keys are namespace joined with each file's slash-separated
// path relative to root.
func (p *Publisher) Publish(ctx context.Context, namespace, root string) (Report, error) {
	start := p.clock.Now()
	report := Report{Namespace: namespace}

	phases, err := collect(root, namespace)
	if err != nil {
		return report, err
	}

	deleted, err := p.store.DeletePrefix(ctx, namespace)
	if err != nil {
		return report, fmt.Errorf("%w: clearing %s: %w", ErrStorage, namespace, err)
	}
	report.Deleted = deleted
	p.logger.Info("cleared previous snapshot", "namespace", namespace, "deleted", deleted)

	var stats counters
	for current, uploads := range phases {
		if len(uploads) == 0 {
			continue
		}
		concurrency := p.concurrency
		if phase(current) == phaseRelease {
			concurrency = 1
		}
		if err := p.uploadAll(ctx, uploads, concurrency, &stats); err != nil {
			stats.fill(&report)
			return report, err
		}
	}

	stats.fill(&report)
	report.Duration = p.clock.Now().Sub(start)
	p.logger.Info("publish complete",
		"namespace", namespace,
		"uploaded", report.Uploaded,
		"bytes", report.Bytes,
		"retries", report.Retries,
		"duration", report.Duration,
	)
	return report, nil
}

// collect walks root and groups its regular files by phase.
func collect(root, namespace string) ([4][]upload, error) {
	var phases [4][]upload
	err := filepath.WalkDir(root, func(local string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(root, local)
		if err != nil {
			return err
		}
		relative = filepath.ToSlash(relative)
		current := classify(relative)
		phases[current] = append(phases[current], upload{
			local: local,
			key:   path.Join(namespace, relative),
			size:  info.Size(),
		})
		return nil
	})
	if err != nil {
		return phases, fmt.Errorf("publish: scanning %s: %w", root, err)
	}

	for current := range phases {
		sort.Slice(phases[current], func(i, j int) bool {
			return phases[current][i].key < phases[current][j].key
		})
	}
	release := phases[phaseRelease]
	sort.SliceStable(release, func(i, j int) bool {
		return releaseOrder[path.Base(release[i].key)] < releaseOrder[path.Base(release[j].key)]
	})
	return phases, nil
}

type counters struct {
	uploaded atomic.Int64
	bytes    atomic.Int64
	retries  atomic.Int64
}

func (c *counters) fill(report *Report) {
	report.Uploaded = int(c.uploaded.Load())
	report.Bytes = c.bytes.Load()
	report.Retries = int(c.retries.Load())
}

// uploadAll uploads one phase with at most concurrency uploads in
// flight. The first failure cancels the rest and is returned.
func (p *Publisher) uploadAll(ctx context.Context, uploads []upload, concurrency int, stats *counters) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	slots := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
dispatch:
	for _, item := range uploads {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			if err := p.uploadWithRetry(ctx, item, stats); err != nil {
				cancel(err)
			}
		}()
	}
	wg.Wait()
	return context.Cause(ctx)
}

func (p *Publisher) uploadWithRetry(ctx context.Context, item upload, stats *counters) error {
	metadata := MetadataFor(item.key)
	for attempt := 1; ; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		err := p.put(ctx, item, metadata)
		if err == nil {
			stats.uploaded.Add(1)
			stats.bytes.Add(item.size)
			return nil
		}
		if !objectstore.IsTransient(err) || attempt >= p.maxAttempts {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: uploading %s after %d attempt(s): %w", ErrStorage, item.key, attempt, err)
		}

		delay := Backoff(attempt)
		p.logger.Warn("transient upload failure, retrying",
			"key", item.key,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		stats.retries.Add(1)
		if err := clock.Sleep(ctx, p.clock, delay); err != nil {
			return err
		}
	}
}

func (p *Publisher) put(ctx context.Context, item upload, metadata objectstore.Metadata) error {
	file, err := os.Open(item.local)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer file.Close()
	return p.store.Put(ctx, item.key, file, item.size, metadata)
}
