package lifecycle

import (
	"context"

	"github.com/brightharbor/homecare-platform/internal/notify"
)

// Actor identifies who requested a lifecycle operation.
type Actor struct {
	UserID string
	Email  string
	Role   string
	IP     string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}

// EmailSender sends the erasure confirmation email.
type EmailSender interface {
	Send(ctx context.Context, msg notify.EmailMessage) error
}
