package messaging

import (
	"context"
	"net/http"

	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// VisitScheduler lets SMS replies act on the sender's next visit.
type VisitScheduler interface {
	ConfirmNext(ctx context.Context, phoneDigits string) (bool, error)
	DeclineNext(ctx context.Context, phoneDigits string) (bool, error)
	CancelNext(ctx context.Context, phoneDigits string) (bool, error)
}

// Reply texts sent back in TwiML.
const (
	replyOptOut       = "You have been unsubscribed from BrightHarbor Home Care messages. Reply to this number to reach our office."
	replyConfirmed    = "Thank you, your visit is confirmed. See you then!"
	replyDeclined     = "Got it, we have marked your visit as declined. Our office will follow up to reschedule."
	replyCancelled    = "Your upcoming visit has been cancelled. Our office will follow up with you."
	replyNoVisit      = "We could not find an upcoming visit for this number. Please call our office for help."
	replyGeneric      = "Thanks for your message. A member of our care team will get back to you shortly."
	replyErrorGeneric = "Sorry, something went wrong on our end. Please call our office."
)

// Handler serves the Twilio SMS webhook.
type Handler struct {
	authToken  string
	webhookURL string
	optouts    *OptOutStore
	visits     VisitScheduler
	logger     *logging.Logger
}

// HandlerConfig holds the Twilio webhook handler dependencies.
type HandlerConfig struct {
	AuthToken  string
	WebhookURL string
	OptOuts    *OptOutStore
	Visits     VisitScheduler
	Logger     *logging.Logger
}

// NewHandler creates the SMS webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		authToken:  cfg.AuthToken,
		webhookURL: cfg.WebhookURL,
		optouts:    cfg.OptOuts,
		visits:     cfg.Visits,
		logger:     cfg.Logger,
	}
}

// InboundSMS handles an inbound SMS and replies with TwiML.
// Route: POST /webhooks/twilio/sms
func (h *Handler) InboundSMS(w http.ResponseWriter, r *http.Request) {
	if h.authToken != "" && !ValidateTwilioSignature(r, h.authToken, h.webhookURL) {
		h.logger.Warn("twilio webhook signature rejected", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	sms, err := ParseInboundSMS(r)
	if err != nil {
		http.Error(w, "bad form body", http.StatusBadRequest)
		return
	}

	digits := PhoneDigits(sms.From)
	keyword := MatchKeyword(sms.Body)

	h.logger.Info("inbound sms",
		"message_sid", sms.MessageSid,
		"keyword", string(keyword),
		"from_digits_len", len(digits))

	WriteTwiML(w, h.dispatch(r.Context(), keyword, digits))
}

func (h *Handler) dispatch(ctx context.Context, keyword Keyword, digits string) string {
	switch keyword {
	case KeywordStop, KeywordUnsubscribe:
		if err := h.optouts.Add(ctx, digits); err != nil {
			h.logger.Error("opt-out failed", "error", err)
			return replyErrorGeneric
		}
		return replyOptOut

	case KeywordYes:
		found, err := h.visits.ConfirmNext(ctx, digits)
		return h.visitReply(found, err, replyConfirmed)

	case KeywordNo:
		found, err := h.visits.DeclineNext(ctx, digits)
		return h.visitReply(found, err, replyDeclined)

	case KeywordCancel:
		found, err := h.visits.CancelNext(ctx, digits)
		return h.visitReply(found, err, replyCancelled)

	default:
		return replyGeneric
	}
}

func (h *Handler) visitReply(found bool, err error, onFound string) string {
	if err != nil {
		h.logger.Error("visit update from sms failed", "error", err)
		return replyErrorGeneric
	}
	if !found {
		return replyNoVisit
	}
	return onFound
}
