// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/bureau-foundation/debrepo/lib/jobs"
	"github.com/bureau-foundation/debrepo/lib/repobuild"
	"github.com/bureau-foundation/debrepo/lib/service"
)

// maxWebhookBodySize is the largest payload accepted. Release
// payloads are small; GitHub's documented ceiling is 25 MB.
const maxWebhookBodySize = 32 * 1024 * 1024

// deduplicationWindow is how long delivery IDs are remembered.
const deduplicationWindow = 1 * time.Hour

// releaseEvent is the subset of a GitHub "release" payload used here.
type releaseEvent struct {
	Action  string `json:"action"`
	Release struct {
		TagName string `json:"tag_name"`
		Draft   bool   `json:"draft"`
	} `json:"release"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// webhookHandler verifies GitHub webhooks and queues a build for every
// published release.
type webhookHandler struct {
	secret  []byte
	enqueue func(context.Context, repobuild.Request) (jobs.Job, error)
	logger  *slog.Logger

	// deliveries holds X-GitHub-Delivery ids already acted on. mu
	// makes the check and the insert atomic.
	mu         sync.Mutex
	deliveries *ttlcache.Cache[string, struct{}]
}

func newWebhookHandler(secret []byte, enqueue func(context.Context, repobuild.Request) (jobs.Job, error), logger *slog.Logger) *webhookHandler {
	return &webhookHandler{
		secret:  secret,
		enqueue: enqueue,
		logger:  logger,
		deliveries: ttlcache.New(
			ttlcache.WithTTL[string, struct{}](deduplicationWindow),
			ttlcache.WithDisableTouchOnHit[string, struct{}](),
		),
	}
}

func (h *webhookHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	// HMAC verification needs the raw bytes.
	body, err := io.ReadAll(io.LimitReader(request.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error("webhook: reading body", "error", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := service.VerifyWebhookHMAC(h.secret, body, request.Header.Get("X-Hub-Signature-256")); err != nil {
		h.logger.Warn("webhook: HMAC verification failed",
			"error", err,
			"remote_addr", request.RemoteAddr,
		)
		writer.WriteHeader(http.StatusUnauthorized)
		return
	}

	eventType := request.Header.Get("X-GitHub-Event")
	deliveryID := request.Header.Get("X-GitHub-Delivery")
	if eventType == "" {
		h.logger.Warn("webhook: missing X-GitHub-Event header")
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if deliveryID != "" && h.deliveries.Get(deliveryID) != nil {
		h.logger.Debug("webhook: duplicate delivery, ignoring",
			"delivery_id", deliveryID,
			"event_type", eventType,
		)
		// 200 so GitHub does not redeliver.
		writer.WriteHeader(http.StatusOK)
		return
	}

	status := h.dispatch(request.Context(), eventType, deliveryID, body)
	if status == http.StatusOK && deliveryID != "" {
		h.deliveries.Set(deliveryID, struct{}{}, ttlcache.DefaultTTL)
	}
	writer.WriteHeader(status)
}

// dispatch acts on one verified delivery and returns the response
// status. Only failures worth a redelivery return non-200.
func (h *webhookHandler) dispatch(ctx context.Context, eventType, deliveryID string, body []byte) int {
	logger := h.logger.With("event_type", eventType, "delivery_id", deliveryID)
	if eventType != "release" {
		logger.Debug("webhook: unhandled event type, ignoring")
		return http.StatusOK
	}

	var event releaseEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Error("webhook: decoding release payload", "error", err)
		return http.StatusOK
	}
	if event.Action != "published" || event.Release.Draft {
		logger.Debug("webhook: release action ignored", "action", event.Action)
		return http.StatusOK
	}

	job, err := h.enqueue(ctx, repobuild.Request{
		Owner: event.Repository.Owner.Login,
		Repo:  event.Repository.Name,
	})
	switch {
	case err == nil:
		logger.Info("webhook: build queued",
			"repository", job.Request.Name(),
			"tag", event.Release.TagName,
			"job_id", job.ID,
		)
		return http.StatusOK
	case errors.Is(err, repobuild.ErrValidation):
		logger.Warn("webhook: release payload names no valid repository", "error", err)
		return http.StatusOK
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrQueueClosed):
		logger.Warn("webhook: build queue unavailable", "error", err)
		return http.StatusServiceUnavailable
	default:
		logger.Error("webhook: enqueue failed", "error", err)
		return http.StatusInternalServerError
	}
}
