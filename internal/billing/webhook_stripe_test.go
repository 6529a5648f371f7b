package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

type stubTracker struct {
	seen map[string]bool
}

func newStubTracker() *stubTracker {
	return &stubTracker{seen: make(map[string]bool)}
}

func (s *stubTracker) AlreadyProcessed(_ context.Context, provider, eventID string) (bool, error) {
	return s.seen[provider+":"+eventID], nil
}

func (s *stubTracker) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	key := provider + ":" + eventID
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func signStripe(secret string, payload []byte, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postStripe(t *testing.T, h *StripeWebhookHandler, payload string, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func newWebhookHarness(t *testing.T) (*StripeWebhookHandler, pgxmock.PgxPoolIface, *stubTracker) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	tracker := newStubTracker()
	h := NewStripeWebhookHandler(testWebhookSecret, NewRepository(mock), tracker, nil)
	return h, mock, tracker
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	h, _, _ := newWebhookHarness(t)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded"}`
	rec := postStripe(t, h, payload, "t=123,v1=deadbeef")
	assert.Equal(t, 403, rec.Code)

	rec = postStripe(t, h, payload, "")
	assert.Equal(t, 403, rec.Code)
}

func TestStripeWebhookRejectsStaleTimestamp(t *testing.T) {
	h, _, _ := newWebhookHarness(t)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded"}`
	stale := time.Now().Add(-10 * time.Minute).Unix()
	rec := postStripe(t, h, payload, signStripe(testWebhookSecret, []byte(payload), stale))
	assert.Equal(t, 403, rec.Code)
}

func TestStripeWebhookIgnoresOtherEventTypes(t *testing.T) {
	h, mock, tracker := newWebhookHarness(t)

	payload := `{"id":"evt_2","type":"customer.created"}`
	rec := postStripe(t, h, payload, signStripe(testWebhookSecret, []byte(payload), time.Now().Unix()))

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Empty(t, tracker.seen, "ignored events are not tracked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStripeWebhookPaymentSucceeded(t *testing.T) {
	h, mock, tracker := newWebhookHarness(t)

	mock.ExpectQuery("UPDATE payments").
		WithArgs("pi_123", PaymentPaid).
		WillReturnRows(pgxmock.NewRows([]string{"invoice_id"}).AddRow("inv_1"))
	mock.ExpectExec("UPDATE invoices").
		WithArgs("inv_1", InvoicePaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	payload := `{"id":"evt_3","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","amount":15000}}}`
	rec := postStripe(t, h, payload, signStripe(testWebhookSecret, []byte(payload), time.Now().Unix()))

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.True(t, tracker.seen["stripe:evt_3"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStripeWebhookPaymentFailed(t *testing.T) {
	h, mock, _ := newWebhookHarness(t)

	mock.ExpectExec("UPDATE payments").
		WithArgs("pi_456", PaymentFailed, "card declined").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	payload := `{"id":"evt_4","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_456","last_payment_error":{"message":"card declined"}}}}`
	rec := postStripe(t, h, payload, signStripe(testWebhookSecret, []byte(payload), time.Now().Unix()))

	assert.Equal(t, 200, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStripeWebhookIdempotent(t *testing.T) {
	h, mock, tracker := newWebhookHarness(t)
	tracker.seen["stripe:evt_5"] = true

	payload := `{"id":"evt_5","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`
	rec := postStripe(t, h, payload, signStripe(testWebhookSecret, []byte(payload), time.Now().Unix()))

	assert.Equal(t, 200, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet(), "replayed event touches no state")
}

func TestStripeWebhookUnknownIntentAcked(t *testing.T) {
	h, mock, _ := newWebhookHarness(t)

	mock.ExpectQuery("UPDATE payments").
		WithArgs("pi_missing", PaymentPaid).
		WillReturnRows(pgxmock.NewRows([]string{"invoice_id"}))

	payload := `{"id":"evt_6","type":"payment_intent.succeeded","data":{"object":{"id":"pi_missing"}}}`
	rec := postStripe(t, h, payload, signStripe(testWebhookSecret, []byte(payload), time.Now().Unix()))

	assert.Equal(t, 200, rec.Code, "unknown intents are acked to stop retries")
}

func TestStripeWebhookFailsClosedWithoutSecret(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	h := NewStripeWebhookHandler("", NewRepository(mock), newStubTracker(), nil)

	payload := `{"id":"evt_7","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`
	rec := postStripe(t, h, payload, "")

	assert.Equal(t, 500, rec.Code)
	assert.Contains(t, rec.Body.String(), "stripe webhook secret")
	assert.NoError(t, mock.ExpectationsWereMet(), "no state is touched without verification")
}

func TestStripeWebhookMissingEventID(t *testing.T) {
	h, _, _ := newWebhookHarness(t)

	payload := `{"type":"payment_intent.succeeded"}`
	rec := postStripe(t, h, payload, signStripe(testWebhookSecret, []byte(payload), time.Now().Unix()))
	assert.Equal(t, 400, rec.Code)
}
