// Package handler implements HTTP request handlers
// Following Hexagonal Architecture: Adapters translate HTTP to domain logic
package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"facebot/internal/adapters/dto"
	"facebot/internal/core/domain"
	"facebot/internal/core/ports"
)

// EventDispatcher is what the handler needs from the core: fan out a parsed
// event batch. Defined here so tests can substitute the dispatcher.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []dto.Event)
}

// signatureHeader carries the base64 HMAC-SHA256 of the raw body
const signatureHeader = "X-Line-Signature"

// WebhookHandler verifies webhook deliveries and hands the event batch to
// the dispatcher
type WebhookHandler struct {
	dispatcher    EventDispatcher
	audit         ports.AuditRepository
	channelSecret string // Shared secret for signature validation
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(dispatcher EventDispatcher, audit ports.AuditRepository, channelSecret string) *WebhookHandler {
	return &WebhookHandler{
		dispatcher:    dispatcher,
		audit:         audit,
		channelSecret: channelSecret,
	}
}

// HandleEvent handles an incoming webhook delivery.
//
// The platform contract requires a fast acknowledgment, so the handler
// answers 200 and processes the batch in a detached goroutine. A delivery
// with a bad signature is dropped silently: same 200, empty body, no
// processing. Surfacing the rejection would tell a forger the secret is
// being checked byte-for-byte.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read webhook body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Signature gate: the HMAC must cover the exact raw bytes, so the body
	// is verified before any parsing touches it.
	if !h.validateSignature(body, r.Header.Get(signatureHeader)) {
		slog.Warn("Webhook signature validation failed",
			"content_length", len(body),
		)
		h.recordRejected()
		w.WriteHeader(http.StatusOK)
		return
	}

	var payload dto.WebhookRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Error("Failed to parse webhook JSON", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Acknowledge before processing: nothing below blocks the response
	w.WriteHeader(http.StatusOK)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("PANIC in webhook processing goroutine",
					"panic", r,
				)
			}
		}()

		h.dispatcher.Dispatch(context.Background(), payload.Events)
	}()

	slog.Info("Webhook received and queued for processing",
		"event_count", len(payload.Events),
	)
}

// validateSignature checks the base64 HMAC-SHA256 of the raw payload against
// the header value. Exact match required, constant-time comparison.
func (h *WebhookHandler) validateSignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.channelSecret))
	mac.Write(payload)
	computed := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(signature))
}

// recordRejected audits a dropped delivery without blocking the response.
// The silent-drop contract forbids any observable reaction, an internal
// audit row is the only permitted trace.
func (h *WebhookHandler) recordRejected() {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("PANIC in rejected-delivery audit", "panic", r)
			}
		}()

		audit := &domain.EventAudit{
			EventType: "delivery",
			Status:    domain.AuditStatusRejected,
			CreatedAt: time.Now(),
		}
		if err := h.audit.SaveEvent(context.Background(), audit); err != nil {
			slog.Warn("Failed to audit rejected delivery", "error", err)
		}
	}()
}
