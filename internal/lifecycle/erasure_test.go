package lifecycle

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightharbor/homecare-platform/internal/audit"
)

func expectCaptureRow(mock pgxmock.PgxPoolIface, email, name string) {
	mock.ExpectQuery("SELECT email, name FROM clients").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"email", "name"}).AddRow(email, name))
}

func TestEraseCascade(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	auditRec := &fakeAudit{}
	email := &fakeEmail{}

	mock.ExpectBegin()
	expectCaptureRow(mock, "pat@home.example", "Pat Kim")
	mock.ExpectExec("UPDATE clients").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE visit_notes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec("UPDATE invoices").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec("DELETE FROM messages").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 9))
	mock.ExpectExec("DELETE FROM conversations").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectCommit()

	svc := NewService(ServiceConfig{DB: mock, Audit: auditRec, Email: email})

	result, err := svc.Erase(context.Background(), "c1", adminActor())
	require.NoError(t, err)

	assert.Equal(t, int64(4), result.VisitNotesAnonymized)
	assert.Equal(t, int64(2), result.InvoicesBlanked)
	assert.Equal(t, int64(9), result.MessagesDeleted)
	assert.Equal(t, int64(1), result.ConversationsDeleted)
	assert.Equal(t, int64(3), result.ConsentRecordsKept)
	assert.True(t, result.ConfirmationEmailSent)

	// Confirmation goes to the address captured before masking.
	require.Len(t, email.sent, 1)
	assert.Equal(t, "pat@home.example", email.sent[0].To)
	assert.Contains(t, email.sent[0].Body, "Pat Kim")

	require.Len(t, auditRec.entries, 1)
	assert.Equal(t, audit.ActionErasure, auditRec.entries[0].ActionType)
	assert.Equal(t, audit.RiskCritical, auditRec.entries[0].RiskLevel)
	assert.Equal(t, "c1", auditRec.entries[0].EntityID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEraseOwnIdentityAllowed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	expectCaptureRow(mock, "pat@home.example", "Pat Kim")
	mock.ExpectExec("UPDATE clients").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE visit_notes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("UPDATE invoices").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("DELETE FROM messages").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM conversations").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectCommit()

	svc := NewService(ServiceConfig{DB: mock})

	// Email match is case-insensitive.
	_, err = svc.Erase(context.Background(), "c1", Actor{
		UserID: "u9", Email: "Pat@Home.example", Role: "client",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEraseForbiddenForOtherClient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	email := &fakeEmail{}

	mock.ExpectBegin()
	expectCaptureRow(mock, "pat@home.example", "Pat Kim")
	mock.ExpectRollback()

	svc := NewService(ServiceConfig{DB: mock, Email: email})

	_, err = svc.Erase(context.Background(), "c1", Actor{
		UserID: "u2", Email: "other@home.example", Role: "caregiver",
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, email.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEraseClientNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT email, name FROM clients").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"email", "name"}))
	mock.ExpectRollback()

	svc := NewService(ServiceConfig{DB: mock})

	_, err = svc.Erase(context.Background(), "c1", adminActor())
	assert.ErrorIs(t, err, ErrClientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
