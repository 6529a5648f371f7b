package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brightharbor/homecare-platform/internal/audit"
	"github.com/brightharbor/homecare-platform/internal/notify"
)

// ErasureResult holds the per-entity counts of one erasure cascade.
type ErasureResult struct {
	ClientID              string `json:"client_id"`
	VisitNotesAnonymized  int64  `json:"visit_notes_anonymized"`
	InvoicesBlanked       int64  `json:"invoices_blanked"`
	MessagesDeleted       int64  `json:"messages_deleted"`
	ConversationsDeleted  int64  `json:"conversations_deleted"`
	ConsentRecordsKept    int64  `json:"consent_records_kept"`
	ConfirmationEmailSent bool   `json:"confirmation_email_sent"`
}

// Erase handles a data-subject deletion request. Authorized for admins and for
// the client's own identity, matched by email. The client's address is captured
// before the masking update overwrites it; the confirmation email goes to the
// captured address.
func (s *Service) Erase(ctx context.Context, clientID string, actor Actor) (*ErasureResult, error) {
	now := time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: begin erasure tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Capture identity fields before they are overwritten.
	var capturedEmail, capturedName string
	err = tx.QueryRow(ctx, `
		SELECT email, name FROM clients WHERE id = $1 FOR UPDATE
	`, clientID).Scan(&capturedEmail, &capturedName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lifecycle: fetch client for erasure: %w", err)
	}

	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, capturedEmail) {
		return nil, ErrForbidden
	}

	result := &ErasureResult{ClientID: clientID}

	if err := s.maskClient(ctx, tx, clientID, ModeDeleted, now); err != nil {
		return nil, err
	}

	// Visit notes are anonymized in place; the rows survive for continuity.
	noteSet, noteArgs, err := SetClause("visit_notes", ModeDeleted, clientID, 2)
	if err != nil {
		return nil, err
	}
	result.VisitNotesAnonymized, err = execRowsAffected(ctx, tx, fmt.Sprintf(`
		UPDATE visit_notes SET %s
		WHERE visit_id IN (SELECT id FROM visits WHERE client_id = $1)
	`, noteSet), append([]any{clientID}, noteArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: anonymize visit notes: %w", err)
	}

	invoiceSet, invoiceArgs, err := SetClause("invoices", ModeDeleted, clientID, 2)
	if err != nil {
		return nil, err
	}
	result.InvoicesBlanked, err = execRowsAffected(ctx, tx, fmt.Sprintf(`
		UPDATE invoices SET %s WHERE client_id = $1
	`, invoiceSet), append([]any{clientID}, invoiceArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: blank invoice notes: %w", err)
	}

	result.MessagesDeleted, err = execRowsAffected(ctx, tx, `
		DELETE FROM messages
		WHERE conversation_id IN (SELECT id FROM conversations WHERE client_id = $1)
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: delete messages: %w", err)
	}

	result.ConversationsDeleted, err = execRowsAffected(ctx, tx, `
		DELETE FROM conversations WHERE client_id = $1
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: delete conversations: %w", err)
	}

	// Consent records fall under the 7-year financial/legal retention policy
	// and are never touched, only counted.
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM consent_records WHERE client_id = $1
	`, clientID).Scan(&result.ConsentRecordsKept)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: count consent records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("lifecycle: commit erasure tx: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, audit.Entry{
			UserID:     actor.UserID,
			UserEmail:  actor.Email,
			ActionType: audit.ActionErasure,
			Entity:     audit.EntityClient,
			EntityID:   clientID,
			IPAddress:  actor.IP,
			RiskLevel:  audit.RiskCritical,
			Success:    true,
			Details: fmt.Sprintf("erasure: %d visit notes anonymized, %d invoices blanked, %d conversations deleted, %d consent records kept",
				result.VisitNotesAnonymized, result.InvoicesBlanked, result.ConversationsDeleted, result.ConsentRecordsKept),
		}); err != nil {
			s.logger.Error("failed to record erasure", "error", err, "client_id", clientID)
		}
	}

	if s.email != nil && capturedEmail != "" {
		msg := notify.ErasureConfirmation(capturedEmail, capturedName, now)
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("erasure confirmation email failed", "error", err, "client_id", clientID)
		} else {
			result.ConfirmationEmailSent = true
		}
	}

	s.logger.Info("erasure complete",
		"client_id", clientID,
		"visit_notes", result.VisitNotesAnonymized,
		"conversations", result.ConversationsDeleted,
		"email_sent", result.ConfirmationEmailSent)
	return result, nil
}

func execRowsAffected(ctx context.Context, tx pgx.Tx, query string, args ...any) (int64, error) {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
