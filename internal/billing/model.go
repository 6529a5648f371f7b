package billing

import (
	"errors"
	"time"
)

// Invoice statuses.
const (
	InvoiceDraft  = "Draft"
	InvoiceSent   = "Sent"
	InvoicePaid   = "Paid"
	InvoiceFailed = "Failed"
)

// Payment statuses.
const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentFailed  = "Failed"
)

// ErrPaymentNotFound is returned when no payment matches a Stripe intent id.
var ErrPaymentNotFound = errors.New("billing: payment not found")

// Invoice bills a client for delivered care. Invoices fall under the 7-year
// retention policy; only the free-text notes field is blanked on erasure.
type Invoice struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Payment tracks one Stripe payment intent against an invoice.
type Payment struct {
	ID            string    `json:"id"`
	InvoiceID     string    `json:"invoice_id"`
	StripeIntent  string    `json:"stripe_payment_intent_id"`
	AmountCents   int64     `json:"amount_cents"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	FailureReason string    `json:"failure_reason,omitempty"`
}
