// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/repobuild"
)

const (
	DefaultWorkers      = 2
	DefaultCapacity     = 64
	DefaultBuildTimeout = 30 * time.Minute

	// pendingTTL bounds how long a queued job can hold its coalescing
	// slot. A job is normally picked up long before this.
	pendingTTL = 6 * time.Hour
)

// ErrQueueFull is returned by Enqueue when the buffer is at capacity.
var ErrQueueFull = errors.New("jobs: queue is full")

// ErrQueueClosed is returned by Enqueue after Run has returned.
var ErrQueueClosed = errors.New("jobs: queue is closed")

// Runner executes one build. *repobuild.Builder satisfies it.
type Runner interface {
	Build(ctx context.Context, request repobuild.Request, options repobuild.Options) (repobuild.Summary, error)
}

// QueueConfig configures a Queue.
type QueueConfig struct {
	Runner Runner
	Store  Store

	// Workers defaults to DefaultWorkers.
	Workers int

	// Capacity defaults to DefaultCapacity.
	Capacity int

	// BuildTimeout bounds one build. Defaults to DefaultBuildTimeout.
	BuildTimeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Job is a queued build.
type Job struct {
	ID      string
	Request repobuild.Request

	// Coalesced is true when the request joined a job already waiting
	// for the same repository.
	Coalesced bool
}

// Queue is a bounded build queue.
type Queue struct {
	runner       Runner
	store        Store
	workers      int
	buildTimeout time.Duration
	clock        clock.Clock
	logger       *slog.Logger

	jobs chan Job

	// pending maps owner/repo to the id of the job waiting for it.
	pending *ttlcache.Cache[string, string]

	// enqueueMu makes the coalescing check and the send atomic.
	enqueueMu sync.Mutex
	closed    bool

	locksMu sync.Mutex
	locks   map[string]*repositoryLock
}

// repositoryLock serializes builds of one repository. users counts
// holders and waiters so the map entry can be dropped when idle.
type repositoryLock struct {
	sync.Mutex
	users int
}

// NewQueue returns a Queue. Call Run to start the workers.
func NewQueue(config QueueConfig) (*Queue, error) {
	if config.Runner == nil {
		return nil, errors.New("jobs: runner is required")
	}
	if config.Store == nil {
		return nil, errors.New("jobs: store is required")
	}
	queue := &Queue{
		runner:       config.Runner,
		store:        config.Store,
		workers:      config.Workers,
		buildTimeout: config.BuildTimeout,
		clock:        config.Clock,
		logger:       config.Logger,
		locks:        make(map[string]*repositoryLock),
	}
	if queue.workers <= 0 {
		queue.workers = DefaultWorkers
	}
	capacity := config.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if queue.buildTimeout <= 0 {
		queue.buildTimeout = DefaultBuildTimeout
	}
	if queue.clock == nil {
		queue.clock = clock.Real()
	}
	if queue.logger == nil {
		queue.logger = slog.Default()
	}
	queue.jobs = make(chan Job, capacity)
	queue.pending = ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](pendingTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	return queue, nil
}

// Enqueue validates request, records it as pending and queues it.
func (q *Queue) Enqueue(ctx context.Context, request repobuild.Request) (Job, error) {
	request, err := request.Normalize()
	if err != nil {
		return Job{}, err
	}
	key := RecordID(request.Owner, request.Repo)

	q.enqueueMu.Lock()
	defer q.enqueueMu.Unlock()
	if q.closed {
		return Job{}, ErrQueueClosed
	}

	if item := q.pending.Get(key); item != nil {
		q.logger.Info("build coalesced onto waiting job", "repository", key, "job_id", item.Value())
		return Job{ID: item.Value(), Request: request, Coalesced: true}, nil
	}

	job := Job{ID: uuid.NewString(), Request: request}
	select {
	case q.jobs <- job:
	default:
		return Job{}, ErrQueueFull
	}
	q.pending.Set(key, job.ID, ttlcache.DefaultTTL)

	if err := q.store.Put(ctx, Record{
		ID:        key,
		Owner:     request.Owner,
		Repo:      request.Repo,
		Status:    StatusPending,
		JobID:     job.ID,
		Limit:     request.Limit,
		UpdatedAt: q.clock.Now().UTC(),
		Summary:   q.previousSummary(ctx, request),
	}); err != nil {
		// The job is queued regardless; its worker writes the final
		// status.
		q.logger.Error("recording pending job", "repository", key, "job_id", job.ID, "error", err)
	}
	q.logger.Info("build queued", "repository", key, "job_id", job.ID, "limit", request.Limit)
	return job, nil
}

// previousSummary keeps the last successful summary visible while a
// new job is pending.
func (q *Queue) previousSummary(ctx context.Context, request repobuild.Request) *repobuild.Summary {
	record, err := q.store.Get(ctx, request.Owner, request.Repo)
	if err != nil {
		return nil
	}
	return record.Summary
}

// Len returns the number of queued jobs not yet picked up.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Run starts the workers and blocks until ctx is cancelled and every
// running build has returned. Jobs still queued at shutdown stay
// pending in the store.
func (q *Queue) Run(ctx context.Context) error {
	var wait sync.WaitGroup
	for worker := range q.workers {
		wait.Add(1)
		go func() {
			defer wait.Done()
			q.work(ctx, worker)
		}()
	}
	<-ctx.Done()

	q.enqueueMu.Lock()
	q.closed = true
	q.enqueueMu.Unlock()

	wait.Wait()
	if remaining := len(q.jobs); remaining > 0 {
		q.logger.Warn("queue stopped with jobs still pending", "pending", remaining)
	}
	return nil
}

func (q *Queue) work(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.run(ctx, worker, job)
		}
	}
}

func (q *Queue) run(ctx context.Context, worker int, job Job) {
	key := RecordID(job.Request.Owner, job.Request.Repo)
	logger := q.logger.With("repository", key, "job_id", job.ID, "worker", worker)

	q.enqueueMu.Lock()
	q.pending.Delete(key)
	q.enqueueMu.Unlock()

	unlock := q.lockRepository(key)
	defer unlock()

	// Status writes must land even when shutdown cancels the build.
	statusCtx := context.WithoutCancel(ctx)
	previous := q.previousSummary(statusCtx, job.Request)

	buildCtx, cancel := context.WithTimeout(ctx, q.buildTimeout)
	defer cancel()

	logger.Info("build started")
	summary, err := q.runner.Build(buildCtx, job.Request, repobuild.Options{})
	if err != nil {
		record := Record{
			Status:  StatusFailed,
			Error:   err.Error(),
			Summary: previous,
		}
		if class := repobuild.Class(err); class != nil {
			record.ErrorClass = class.Error()
		}
		logger.Error("build failed", "error", err)
		q.record(statusCtx, logger, record, job)
		return
	}
	logger.Info("build completed", "packages", len(summary.Packages), "duration", summary.Duration)
	q.record(statusCtx, logger, Record{Status: StatusCompleted, Summary: &summary}, job)
}

// record fills the job identity into record and stores it.
func (q *Queue) record(ctx context.Context, logger *slog.Logger, record Record, job Job) {
	record.ID = RecordID(job.Request.Owner, job.Request.Repo)
	record.Owner = job.Request.Owner
	record.Repo = job.Request.Repo
	record.JobID = job.ID
	record.Limit = job.Request.Limit
	record.UpdatedAt = q.clock.Now().UTC()
	if err := q.store.Put(ctx, record); err != nil {
		logger.Error("recording job status", "status", record.Status, "error", err)
	}
}

func (q *Queue) lockRepository(key string) func() {
	q.locksMu.Lock()
	lock, ok := q.locks[key]
	if !ok {
		lock = &repositoryLock{}
		q.locks[key] = lock
	}
	lock.users++
	q.locksMu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		q.locksMu.Lock()
		lock.users--
		if lock.users == 0 {
			delete(q.locks, key)
		}
		q.locksMu.Unlock()
	}
}
