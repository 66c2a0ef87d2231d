// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/debrepo/lib/repobuild"
	"github.com/bureau-foundation/debrepo/lib/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// gatedRunner blocks every build until release is closed or receives
// a value, and reports starts on started.
type gatedRunner struct {
	started chan repobuild.Request
	release chan error

	mu      sync.Mutex
	active  map[string]int
	overlap atomic.Bool
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{
		started: make(chan repobuild.Request, 16),
		release: make(chan error),
		active:  make(map[string]int),
	}
}

func (r *gatedRunner) Build(ctx context.Context, request repobuild.Request, _ repobuild.Options) (repobuild.Summary, error) {
	key := request.Name()
	r.mu.Lock()
	r.active[key]++
	if r.active[key] > 1 {
		r.overlap.Store(true)
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active[key]--
		r.mu.Unlock()
	}()

	r.started <- request
	select {
	case err := <-r.release:
		if err != nil {
			return repobuild.Summary{}, err
		}
		return repobuild.Summary{Owner: request.Owner, Repo: request.Repo, Namespace: "repos/" + key}, nil
	case <-ctx.Done():
		return repobuild.Summary{}, ctx.Err()
	}
}

func startQueue(t *testing.T, runner Runner, store Store, workers, capacity int) *Queue {
	t.Helper()
	queue, err := NewQueue(QueueConfig{
		Runner:   runner,
		Store:    store,
		Workers:  workers,
		Capacity: capacity,
		Logger:   discard,
	})
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		queue.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return queue
}

// waitForStatus polls the store until the record reaches status.
func waitForStatus(t *testing.T, store Store, owner, repo string, status Status) Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.Get(context.Background(), owner, repo)
		if err == nil && record.Status == status {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s/%s never reached status %s", owner, repo, status)
	return Record{}
}

func TestQueueRecordsCompletion(t *testing.T) {
	runner := newGatedRunner()
	store := NewMemoryStore()
	queue := startQueue(t, runner, store, 1, 4)

	job, err := queue.Enqueue(context.Background(), repobuild.Request{Owner: "octo", Repo: "hello"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.ID == "" || job.Coalesced || job.Request.Limit != 1 {
		t.Errorf("job = %+v", job)
	}

	testutil.RequireReceive(t, runner.started, 5*time.Second, "build start")
	record, err := store.Get(context.Background(), "octo", "hello")
	if err != nil || record.Status != StatusPending || record.JobID != job.ID {
		t.Errorf("while running: %+v, %v", record, err)
	}

	runner.release <- nil
	record = waitForStatus(t, store, "octo", "hello", StatusCompleted)
	if record.JobID != job.ID || record.Summary == nil || record.Summary.Namespace != "repos/octo/hello" {
		t.Errorf("completed record = %+v", record)
	}
}

func TestQueueRecordsFailureClass(t *testing.T) {
	runner := newGatedRunner()
	store := NewMemoryStore()
	queue := startQueue(t, runner, store, 1, 4)

	if _, err := queue.Enqueue(context.Background(), repobuild.Request{Owner: "octo", Repo: "broken"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	testutil.RequireReceive(t, runner.started, 5*time.Second, "build start")
	runner.release <- errors.Join(repobuild.ErrNoReleases, errors.New("octo/broken"))

	record := waitForStatus(t, store, "octo", "broken", StatusFailed)
	if record.ErrorClass != repobuild.ErrNoReleases.Error() || record.Error == "" {
		t.Errorf("failed record = %+v", record)
	}
}

func TestQueueCoalescesWaitingJob(t *testing.T) {
	runner := newGatedRunner()
	store := NewMemoryStore()
	queue := startQueue(t, runner, store, 1, 4)
	ctx := context.Background()

	// Occupy the only worker so later jobs stay queued.
	if _, err := queue.Enqueue(ctx, repobuild.Request{Owner: "octo", Repo: "busy"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	testutil.RequireReceive(t, runner.started, 5*time.Second, "busy build start")

	first, err := queue.Enqueue(ctx, repobuild.Request{Owner: "octo", Repo: "hello"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	second, err := queue.Enqueue(ctx, repobuild.Request{Owner: "octo", Repo: "hello", Limit: 3})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !second.Coalesced || second.ID != first.ID {
		t.Errorf("second = %+v, want coalesced onto %s", second, first.ID)
	}
	if queue.Len() != 1 {
		t.Errorf("Len = %d, want 1", queue.Len())
	}

	runner.release <- nil
	started := testutil.RequireReceive(t, runner.started, 5*time.Second, "hello build start")
	if started.Repo != "hello" {
		t.Errorf("started %+v", started)
	}

	// Once the job is running, a new request gets a new job.
	third, err := queue.Enqueue(ctx, repobuild.Request{Owner: "octo", Repo: "hello"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if third.Coalesced || third.ID == first.ID {
		t.Errorf("third = %+v, want a fresh job", third)
	}
	runner.release <- nil
	testutil.RequireReceive(t, runner.started, 5*time.Second, "second hello build start")
	runner.release <- nil
	waitForStatus(t, store, "octo", "hello", StatusCompleted)
}

func TestQueueSerializesSameRepository(t *testing.T) {
	runner := newGatedRunner()
	store := NewMemoryStore()
	queue := startQueue(t, runner, store, 3, 8)
	ctx := context.Background()

	if _, err := queue.Enqueue(ctx, repobuild.Request{Owner: "octo", Repo: "hello"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	testutil.RequireReceive(t, runner.started, 5*time.Second, "first build start")
	if _, err := queue.Enqueue(ctx, repobuild.Request{Owner: "octo", Repo: "hello"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := queue.Enqueue(ctx, repobuild.Request{Owner: "octo", Repo: "other"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// The other repository starts while hello is still building; the
	// second hello job does not.
	started := testutil.RequireReceive(t, runner.started, 5*time.Second, "other build start")
	if started.Repo != "other" {
		t.Fatalf("started %+v, want octo/other", started)
	}
	runner.release <- nil
	runner.release <- nil
	testutil.RequireReceive(t, runner.started, 5*time.Second, "second hello build start")
	runner.release <- nil

	waitForStatus(t, store, "octo", "hello", StatusCompleted)
	if runner.overlap.Load() {
		t.Error("two builds of one repository overlapped")
	}
}

func TestQueueFull(t *testing.T) {
	runner := newGatedRunner()
	queue := startQueue(t, runner, NewMemoryStore(), 1, 1)
	ctx := context.Background()

	queue.Enqueue(ctx, repobuild.Request{Owner: "o", Repo: "a"})
	testutil.RequireReceive(t, runner.started, 5*time.Second, "build start")
	if _, err := queue.Enqueue(ctx, repobuild.Request{Owner: "o", Repo: "b"}); err != nil {
		t.Fatalf("Enqueue into free slot: %v", err)
	}
	if _, err := queue.Enqueue(ctx, repobuild.Request{Owner: "o", Repo: "c"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("error = %v, want ErrQueueFull", err)
	}
	runner.release <- nil
	testutil.RequireReceive(t, runner.started, 5*time.Second, "second build start")
	runner.release <- nil
}

func TestQueueRejectsInvalidRequest(t *testing.T) {
	queue, err := NewQueue(QueueConfig{Runner: newGatedRunner(), Store: NewMemoryStore(), Logger: discard})
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	if _, err := queue.Enqueue(context.Background(), repobuild.Request{Owner: "octo"}); !errors.Is(err, repobuild.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestQueueClosedAfterRun(t *testing.T) {
	queue, err := NewQueue(QueueConfig{Runner: newGatedRunner(), Store: NewMemoryStore(), Logger: discard})
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	queue.Run(ctx)
	if _, err := queue.Enqueue(context.Background(), repobuild.Request{Owner: "o", Repo: "r"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("error = %v, want ErrQueueClosed", err)
	}
}
