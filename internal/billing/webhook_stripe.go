package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// StripeWebhookHandler handles Stripe payment intent webhook events.
type StripeWebhookHandler struct {
	webhookSecret string
	repo          *Repository
	processed     ProcessedTracker
	logger        *logging.Logger
}

// NewStripeWebhookHandler creates a new handler for Stripe webhooks.
func NewStripeWebhookHandler(webhookSecret string, repo *Repository, processed ProcessedTracker, logger *logging.Logger) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		repo:          repo,
		processed:     processed,
		logger:        logger,
	}
}

// Handle processes incoming Stripe webhook events. Only
// payment_intent.succeeded and payment_intent.payment_failed mutate state;
// every other event type is acknowledged and ignored.
// Route: POST /webhooks/stripe
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret == "" {
		h.logger.Error("stripe webhook secret is not configured")
		respond.Error(w, http.StatusInternalServerError, "stripe webhook secret is not configured")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if !verifyStripeSignature(h.webhookSecret, payload, sigHeader) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt stripeWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode stripe event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if evt.ID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if evt.Type != "payment_intent.succeeded" && evt.Type != "payment_intent.payment_failed" {
		ack(w)
		return
	}

	if processed, err := h.processed.AlreadyProcessed(r.Context(), "stripe", evt.ID); err != nil {
		h.logger.Error("processed lookup failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if processed {
		ack(w)
		return
	}

	intent := evt.Data.Object
	if intent.ID == "" {
		h.logger.Warn("stripe event missing payment intent id", "event_id", evt.ID)
		ack(w)
		return
	}

	switch evt.Type {
	case "payment_intent.succeeded":
		invoiceID, err := h.repo.MarkPaid(r.Context(), intent.ID)
		if errors.Is(err, ErrPaymentNotFound) {
			h.logger.Warn("stripe event for unknown payment intent", "event_id", evt.ID, "intent", intent.ID)
			ack(w)
			return
		}
		if err != nil {
			h.logger.Error("failed to mark payment paid", "error", err, "intent", intent.ID)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if err := h.repo.SettleInvoice(r.Context(), invoiceID); err != nil {
			h.logger.Error("failed to settle invoice", "error", err, "invoice_id", invoiceID)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		h.logger.Info("payment succeeded", "intent", intent.ID, "invoice_id", invoiceID,
			"amount_cents", intent.Amount)

	case "payment_intent.payment_failed":
		reason := intent.LastPaymentError.Message
		err := h.repo.MarkFailed(r.Context(), intent.ID, reason)
		if errors.Is(err, ErrPaymentNotFound) {
			h.logger.Warn("stripe event for unknown payment intent", "event_id", evt.ID, "intent", intent.ID)
			ack(w)
			return
		}
		if err != nil {
			h.logger.Error("failed to mark payment failed", "error", err, "intent", intent.ID)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		h.logger.Info("payment failed", "intent", intent.ID, "reason", reason)
	}

	if _, err := h.processed.MarkProcessed(r.Context(), "stripe", evt.ID); err != nil {
		h.logger.Error("failed to record processed event", "error", err)
	}

	ack(w)
}

func ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"received":true}`))
}

// stripeWebhookEvent represents a Stripe webhook event envelope.
type stripeWebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object stripePaymentIntent `json:"object"`
	} `json:"data"`
}

// stripePaymentIntent is the payment_intent object from the webhook.
type stripePaymentIntent struct {
	ID               string `json:"id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	LastPaymentError struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// verifyStripeSignature verifies a Stripe webhook signature.
// Stripe signs with HMAC-SHA256 and sends the signature in the Stripe-Signature
// header as: t=<timestamp>,v1=<signature>[,v0=<test_signature>]
func verifyStripeSignature(secret string, payload []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}

	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	// Timestamp tolerance: 5 minutes.
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if abs64(time.Now().Unix()-ts) > 300 {
		return false
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
