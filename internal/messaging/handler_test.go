package messaging

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	confirmed, declined, cancelled []string
	found                          bool
}

func (f *fakeScheduler) ConfirmNext(_ context.Context, digits string) (bool, error) {
	f.confirmed = append(f.confirmed, digits)
	return f.found, nil
}

func (f *fakeScheduler) DeclineNext(_ context.Context, digits string) (bool, error) {
	f.declined = append(f.declined, digits)
	return f.found, nil
}

func (f *fakeScheduler) CancelNext(_ context.Context, digits string) (bool, error) {
	f.cancelled = append(f.cancelled, digits)
	return f.found, nil
}

func postSMS(t *testing.T, h *Handler, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "+15035551234")
	form.Set("To", "+15030000000")
	form.Set("Body", body)

	req := httptest.NewRequest("POST", "/webhooks/twilio/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign {
		payload := buildSignaturePayload(testWebhookURL, form)
		req.Header.Set("X-Twilio-Signature", computeSignature(payload, testAuthToken))
	}

	rec := httptest.NewRecorder()
	h.InboundSMS(rec, req)
	return rec
}

func newTestHandler(t *testing.T, sched *fakeScheduler) (*Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	h := NewHandler(HandlerConfig{
		AuthToken:  testAuthToken,
		WebhookURL: testWebhookURL,
		OptOuts:    NewOptOutStore(mock, nil, nil),
		Visits:     sched,
	})
	return h, mock
}

func TestInboundSMSRejectsBadSignature(t *testing.T) {
	h, _ := newTestHandler(t, &fakeScheduler{})

	rec := postSMS(t, h, "YES", false)
	assert.Equal(t, 401, rec.Code)
}

func TestInboundSMSYesConfirmsVisit(t *testing.T) {
	sched := &fakeScheduler{found: true}
	h, _ := newTestHandler(t, sched)

	rec := postSMS(t, h, "yes", true)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<Response>")
	assert.Contains(t, rec.Body.String(), "confirmed")
	assert.Equal(t, []string{"15035551234"}, sched.confirmed)
}

func TestInboundSMSNoDeclinesVisit(t *testing.T) {
	sched := &fakeScheduler{found: true}
	h, _ := newTestHandler(t, sched)

	rec := postSMS(t, h, "NO", true)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "declined")
	assert.Equal(t, []string{"15035551234"}, sched.declined)
}

func TestInboundSMSCancelNoUpcomingVisit(t *testing.T) {
	sched := &fakeScheduler{found: false}
	h, _ := newTestHandler(t, sched)

	rec := postSMS(t, h, "CANCEL", true)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not find an upcoming visit")
	assert.Equal(t, []string{"15035551234"}, sched.cancelled)
}

func TestInboundSMSStopRecordsOptOut(t *testing.T) {
	sched := &fakeScheduler{}
	h, mock := newTestHandler(t, sched)

	mock.ExpectExec("INSERT INTO sms_optouts").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := postSMS(t, h, "STOP", true)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsubscribed")
	assert.Empty(t, sched.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInboundSMSUnknownBodyGenericReply(t *testing.T) {
	sched := &fakeScheduler{}
	h, mock := newTestHandler(t, sched)

	rec := postSMS(t, h, "What time is my visit tomorrow?", true)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "care team")
	assert.Empty(t, sched.confirmed)
	assert.Empty(t, sched.cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
