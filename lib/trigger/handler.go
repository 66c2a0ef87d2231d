// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/jobs"
	"github.com/bureau-foundation/debrepo/lib/netutil"
	"github.com/bureau-foundation/debrepo/lib/repobuild"
	"github.com/bureau-foundation/debrepo/lib/service"
)

const (
	// maxRequestBodySize bounds POST /build bodies.
	maxRequestBodySize = 64 * 1024

	// DefaultRate and DefaultBurst apply per client to POST /build.
	DefaultRate  = rate.Limit(1)
	DefaultBurst = 5

	// limiterIdle is how long an idle client's limiter is kept.
	limiterIdle = 10 * time.Minute
	maxLimiters = 4096
)

// Enqueuer accepts build requests. *jobs.Queue satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, request repobuild.Request) (jobs.Job, error)
}

// Config configures a Handler.
type Config struct {
	Queue Enqueuer
	Store jobs.Store

	// WebhookSecret enables POST /webhooks/github. When empty the
	// route answers 404.
	WebhookSecret []byte

	// RateLimit and Burst limit POST /build per client. Zero values
	// mean DefaultRate and DefaultBurst; a negative RateLimit
	// disables limiting.
	RateLimit rate.Limit
	Burst     int

	// TrustProxy takes the client address from X-Forwarded-For or
	// X-Real-IP.
	TrustProxy bool

	Clock  clock.Clock
	Logger *slog.Logger
}

// BuildRequest is the body of POST /build.
type BuildRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Limit int    `json:"limit,omitempty"`
}

// BuildResponse is the body of a successful POST /build.
type BuildResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// RepositoriesResponse is the body of GET /repositories.
type RepositoriesResponse struct {
	Repositories []jobs.Record `json:"repositories"`
}

// Handler serves the trigger API.
type Handler struct {
	queue      Enqueuer
	store      jobs.Store
	limit      rate.Limit
	burst      int
	trustProxy bool
	clock      clock.Clock
	logger     *slog.Logger

	limitersMu sync.Mutex
	limiters   *ttlcache.Cache[string, *rate.Limiter]
	webhook    *webhookHandler
	mux        *http.ServeMux
}

// New returns a Handler.
func New(config Config) (*Handler, error) {
	if config.Queue == nil {
		return nil, errors.New("trigger: Queue is required")
	}
	if config.Store == nil {
		return nil, errors.New("trigger: Store is required")
	}
	if config.RateLimit == 0 {
		config.RateLimit = DefaultRate
	}
	if config.Burst <= 0 {
		config.Burst = DefaultBurst
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	handler := &Handler{
		queue:      config.Queue,
		store:      config.Store,
		limit:      config.RateLimit,
		burst:      config.Burst,
		trustProxy: config.TrustProxy,
		clock:      config.Clock,
		logger:     config.Logger,
		limiters: ttlcache.New(
			ttlcache.WithTTL[string, *rate.Limiter](limiterIdle),
			ttlcache.WithCapacity[string, *rate.Limiter](maxLimiters),
		),
		mux: http.NewServeMux(),
	}

	handler.mux.HandleFunc("POST /build", handler.handleBuild)
	handler.mux.HandleFunc("GET /repositories", handler.handleList)
	handler.mux.HandleFunc("GET /repositories/{owner}/{repo}", handler.handleGet)
	handler.mux.HandleFunc("GET /healthz", handler.handleHealth)
	if len(config.WebhookSecret) > 0 {
		handler.webhook = newWebhookHandler(config.WebhookSecret, handler.enqueue, config.Logger)
		handler.mux.Handle("POST /webhooks/github", handler.webhook)
	}
	return handler, nil
}

func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	h.mux.ServeHTTP(writer, request)
}

func (h *Handler) handleBuild(writer http.ResponseWriter, request *http.Request) {
	if !h.allow(request) {
		writer.Header().Set("Retry-After", "1")
		service.WriteError(writer, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var body BuildRequest
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxRequestBodySize))
	if err := decoder.Decode(&body); err != nil {
		service.WriteError(writer, http.StatusBadRequest, "invalid JSON body")
		return
	}
	build := repobuild.Request{Owner: body.Owner, Repo: body.Repo, Limit: body.Limit}

	job, err := h.enqueue(request.Context(), build)
	switch {
	case err == nil:
	case errors.Is(err, repobuild.ErrValidation):
		service.WriteError(writer, http.StatusBadRequest, validationMessage(err))
		return
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrQueueClosed):
		service.WriteError(writer, http.StatusServiceUnavailable, "build queue is unavailable, retry later")
		return
	default:
		h.logger.Error("enqueue failed", "repository", build.Name(), "error", err)
		service.WriteError(writer, http.StatusInternalServerError, "internal error")
		return
	}

	service.WriteJSON(writer, http.StatusOK, BuildResponse{
		Status:  "success",
		Message: fmt.Sprintf("Build queued for %s", job.Request.Name()),
		JobID:   job.ID,
	})
}

func (h *Handler) enqueue(ctx context.Context, request repobuild.Request) (jobs.Job, error) {
	return h.queue.Enqueue(ctx, request)
}

func (h *Handler) handleList(writer http.ResponseWriter, request *http.Request) {
	records, err := h.store.List(request.Context())
	if err != nil {
		h.logger.Error("listing repositories", "error", err)
		service.WriteError(writer, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []jobs.Record{}
	}
	service.WriteJSON(writer, http.StatusOK, RepositoriesResponse{Repositories: records})
}

func (h *Handler) handleGet(writer http.ResponseWriter, request *http.Request) {
	record, err := h.store.Get(request.Context(), request.PathValue("owner"), request.PathValue("repo"))
	if errors.Is(err, jobs.ErrNotFound) {
		service.WriteError(writer, http.StatusNotFound, "Repository not found")
		return
	}
	if err != nil {
		h.logger.Error("reading repository", "error", err)
		service.WriteError(writer, http.StatusInternalServerError, "internal error")
		return
	}
	service.WriteJSON(writer, http.StatusOK, record)
}

func (h *Handler) handleHealth(writer http.ResponseWriter, request *http.Request) {
	service.WriteJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}

// allow takes one token from the caller's limiter.
func (h *Handler) allow(request *http.Request) bool {
	if h.limit < 0 {
		return true
	}
	client := netutil.ClientIP(request, h.trustProxy)

	// Get refreshes the entry's TTL, so only idle clients expire.
	h.limitersMu.Lock()
	var limiter *rate.Limiter
	if item := h.limiters.Get(client); item != nil {
		limiter = item.Value()
	} else {
		limiter = rate.NewLimiter(h.limit, h.burst)
		h.limiters.Set(client, limiter, ttlcache.DefaultTTL)
	}
	h.limitersMu.Unlock()

	if limiter.AllowN(h.clock.Now(), 1) {
		return true
	}
	h.logger.Warn("build request rate limited", "client", client)
	return false
}

// validationMessage strips the sentinel prefix from a validation error.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), repobuild.ErrValidation.Error()+": ")
}
