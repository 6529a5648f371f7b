package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pgx surface the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists invoices and payments.
type Repository struct {
	db DB
}

// NewRepository creates a billing repository backed by pgx.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// CreateInvoice inserts a draft invoice.
func (r *Repository) CreateInvoice(ctx context.Context, clientID string, amountCents int64, notes string) (*Invoice, error) {
	if clientID == "" {
		return nil, errors.New("billing: client_id is required")
	}
	inv := &Invoice{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		AmountCents: amountCents,
		Status:      InvoiceDraft,
		Notes:       notes,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoices (id, client_id, amount_cents, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, inv.ID, inv.ClientID, inv.AmountCents, inv.Status, inv.Notes, inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("billing: insert invoice: %w", err)
	}
	return inv, nil
}

// CreatePayment registers a pending payment intent against an invoice.
func (r *Repository) CreatePayment(ctx context.Context, invoiceID, stripeIntent string, amountCents int64) (*Payment, error) {
	if invoiceID == "" || stripeIntent == "" {
		return nil, errors.New("billing: invoice_id and stripe intent are required")
	}
	now := time.Now().UTC()
	p := &Payment{
		ID:           uuid.NewString(),
		InvoiceID:    invoiceID,
		StripeIntent: stripeIntent,
		AmountCents:  amountCents,
		Status:       PaymentPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (id, invoice_id, stripe_payment_intent_id, amount_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.InvoiceID, p.StripeIntent, p.AmountCents, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("billing: insert payment: %w", err)
	}
	return p, nil
}

// MarkPaid flags the payment for a Stripe intent as paid and returns the
// invoice id so the caller can settle the invoice too.
func (r *Repository) MarkPaid(ctx context.Context, stripeIntent string) (string, error) {
	var invoiceID string
	err := r.db.QueryRow(ctx, `
		UPDATE payments SET status = $2, updated_at = now()
		WHERE stripe_payment_intent_id = $1
		RETURNING invoice_id
	`, stripeIntent, PaymentPaid).Scan(&invoiceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrPaymentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("billing: mark payment paid: %w", err)
	}
	return invoiceID, nil
}

// MarkFailed flags the payment for a Stripe intent as failed.
func (r *Repository) MarkFailed(ctx context.Context, stripeIntent, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $2, failure_reason = $3, updated_at = now()
		WHERE stripe_payment_intent_id = $1
	`, stripeIntent, PaymentFailed, reason)
	if err != nil {
		return fmt.Errorf("billing: mark payment failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// SettleInvoice marks an invoice paid.
func (r *Repository) SettleInvoice(ctx context.Context, invoiceID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $2 WHERE id = $1
	`, invoiceID, InvoicePaid)
	if err != nil {
		return fmt.Errorf("billing: settle invoice: %w", err)
	}
	return nil
}
