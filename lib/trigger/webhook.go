// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/fmtbot/lib/clock"
	"github.com/bureau-foundation/fmtbot/lib/netutil"
	"github.com/bureau-foundation/fmtbot/lib/pipeline"
)

// maxWebhookBodySize bounds a webhook payload. GitHub caps push
// payloads at about 25 MB.
const maxWebhookBodySize = 32 * 1024 * 1024

// DeduplicationWindow is how long a delivery ID is remembered.
const DeduplicationWindow = 1 * time.Hour

// zeroSHA is the "after" value of a push that deleted its ref.
const zeroSHA = "0000000000000000000000000000000000000000"

// Delivery is an accepted push event.
type Delivery struct {
	// ID is the X-GitHub-Delivery header, empty if absent.
	ID      string
	Trigger pipeline.Trigger

	// CloneURL is the repository's HTTPS clone URL from the payload.
	CloneURL string
}

// WebhookConfig configures a WebhookHandler.
type WebhookConfig struct {
	// Secret is the webhook HMAC secret. Required.
	Secret []byte

	// Filter selects which pushes are dispatched.
	Filter Filter

	// Dispatch receives each accepted push. It is called on the
	// request goroutine and must not block on the run itself.
	// Required.
	Dispatch func(Delivery)

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger is required.
	Logger *slog.Logger
}

// WebhookHandler is an http.Handler for GitHub push webhooks.
type WebhookHandler struct {
	secret   []byte
	filter   Filter
	dispatch func(Delivery)
	clock    clock.Clock
	logger   *slog.Logger

	mu         sync.Mutex
	deliveries map[string]time.Time
}

// NewWebhookHandler creates a handler. Panics if a required field of
// config is missing.
func NewWebhookHandler(config WebhookConfig) *WebhookHandler {
	if len(config.Secret) == 0 {
		panic("trigger.WebhookHandler: Secret is required")
	}
	if config.Dispatch == nil {
		panic("trigger.WebhookHandler: Dispatch is required")
	}
	if config.Logger == nil {
		panic("trigger.WebhookHandler: Logger is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &WebhookHandler{
		secret:     config.Secret,
		filter:     config.Filter,
		dispatch:   config.Dispatch,
		clock:      config.Clock,
		logger:     config.Logger,
		deliveries: make(map[string]time.Time),
	}
}

// ServeHTTP handles one webhook request. Verified requests that are
// not dispatched (other event types, filtered pushes, duplicates) are
// acknowledged with 200 so GitHub does not retry them; dispatched
// pushes get 202.
func (h *WebhookHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	body, err := netutil.ReadRequest(request.Body, maxWebhookBodySize)
	if err != nil {
		if errors.Is(err, netutil.ErrBodyTooLarge) {
			http.Error(writer, "", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Error("webhook: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	if err := VerifySignature(h.secret, body, request.Header.Get("X-Hub-Signature-256")); err != nil {
		h.logger.Warn("webhook: HMAC verification failed",
			"error", err,
			"remote_addr", request.RemoteAddr,
		)
		http.Error(writer, "", http.StatusUnauthorized)
		return
	}

	eventType := request.Header.Get("X-GitHub-Event")
	deliveryID := request.Header.Get("X-GitHub-Delivery")
	if eventType == "" {
		h.logger.Warn("webhook: missing X-GitHub-Event header")
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	logger := h.logger.With("event_type", eventType, "delivery_id", deliveryID)

	if eventType != "push" {
		logger.Debug("webhook: unhandled event type, ignoring")
		writer.WriteHeader(http.StatusOK)
		return
	}

	delivery, reason, err := translatePush(body)
	if err != nil {
		logger.Error("webhook: translation failed", "error", err)
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	// Only deliveries that parsed are recorded, so a redelivery of a
	// rejected payload is evaluated again.
	if deliveryID != "" && h.isDuplicate(deliveryID) {
		logger.Debug("webhook: duplicate delivery, ignoring")
		writer.WriteHeader(http.StatusOK)
		return
	}
	delivery.ID = deliveryID
	trigger := delivery.Trigger
	if reason == "" {
		if accepted, filterReason := h.filter.Accept(trigger); !accepted {
			reason = filterReason
		}
	}
	if reason != "" {
		logger.Info("webhook: push ignored",
			"reason", reason,
			"repository", trigger.Repository,
			"ref", trigger.Ref,
		)
		writer.WriteHeader(http.StatusOK)
		return
	}

	logger.Info("webhook: push accepted",
		"repository", trigger.Repository,
		"ref", trigger.Ref,
		"sha", trigger.SHA,
		"sender", trigger.Sender,
	)
	h.dispatch(delivery)
	writer.WriteHeader(http.StatusAccepted)
}

// isDuplicate records deliveryID and reports whether it was already
// seen within DeduplicationWindow. Expired entries are pruned on every
// call.
func (h *WebhookHandler) isDuplicate(deliveryID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	for id, receivedAt := range h.deliveries {
		if now.Sub(receivedAt) > DeduplicationWindow {
			delete(h.deliveries, id)
		}
	}

	if _, exists := h.deliveries[deliveryID]; exists {
		return true
	}
	h.deliveries[deliveryID] = now
	return false
}

// pushPayload is the subset of GitHub's push event that fmtbot reads.
type pushPayload struct {
	Ref     string `json:"ref"`
	Before  string `json:"before"`
	After   string `json:"after"`
	Deleted bool   `json:"deleted"`

	Repository struct {
		FullName string `json:"full_name"`
		CloneURL string `json:"clone_url"`
	} `json:"repository"`

	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

// translatePush decodes a push payload. A non-empty reason means the
// push is valid but never starts a run.
func translatePush(body []byte) (delivery Delivery, reason string, err error) {
	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return delivery, "", fmt.Errorf("parsing push payload: %w", err)
	}

	delivery = Delivery{
		Trigger: pipeline.Trigger{
			Ref:        payload.Ref,
			SHA:        payload.After,
			Repository: payload.Repository.FullName,
			Sender:     payload.Sender.Login,
		},
		CloneURL: payload.Repository.CloneURL,
	}

	switch {
	case payload.Deleted || payload.After == zeroSHA:
		return delivery, "branch deleted", nil
	case strings.HasPrefix(payload.Ref, "refs/tags/"):
		return delivery, "tag push", nil
	case payload.After == "":
		return delivery, "", fmt.Errorf("push payload for %s has no after SHA", payload.Ref)
	}
	return delivery, "", nil
}
