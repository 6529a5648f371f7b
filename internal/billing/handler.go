package billing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Handler serves admin billing endpoints. Payments created here are settled
// later by the Stripe webhook.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new billing handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

type createInvoiceRequest struct {
	ClientID    string `json:"client_id"`
	AmountCents int64  `json:"amount_cents"`
	Notes       string `json:"notes"`
}

type createPaymentRequest struct {
	StripePaymentIntentID string `json:"stripe_payment_intent_id"`
	AmountCents           int64  `json:"amount_cents"`
}

// CreateInvoice opens a draft invoice for a client.
// Route: POST /admin/invoices
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if req.ClientID == "" {
		respond.BadRequest(w, "client_id is required")
		return
	}
	if req.AmountCents <= 0 {
		respond.BadRequest(w, "amount_cents must be positive")
		return
	}
	inv, err := h.repo.CreateInvoice(r.Context(), req.ClientID, req.AmountCents, req.Notes)
	if err != nil {
		h.logger.Error("invoice create failed", "error", err, "client_id", req.ClientID)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"success": true, "invoice": inv})
}

// CreatePayment registers a pending Stripe payment intent against an invoice.
// Route: POST /admin/invoices/{invoiceID}/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceID")

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if req.StripePaymentIntentID == "" {
		respond.BadRequest(w, "stripe_payment_intent_id is required")
		return
	}
	p, err := h.repo.CreatePayment(r.Context(), invoiceID, req.StripePaymentIntentID, req.AmountCents)
	if err != nil {
		h.logger.Error("payment create failed", "error", err, "invoice_id", invoiceID)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"success": true, "payment": p})
}
