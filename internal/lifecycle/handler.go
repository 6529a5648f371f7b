package lifecycle

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightharbor/homecare-platform/internal/http/middleware"
	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Handler serves the lifecycle endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new lifecycle handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func actorFrom(r *http.Request) Actor {
	ident, _ := middleware.IdentityFromContext(r.Context())
	return Actor{
		UserID: ident.UserID,
		Email:  ident.Email,
		Role:   ident.Role,
		IP:     ident.IP,
	}
}

// Archive runs the retention and archival sweep.
// Route: POST /admin/lifecycle/archive
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Archive(r.Context(), actorFrom(r))
	if errors.Is(err, ErrForbidden) {
		respond.Forbidden(w, "admin role required")
		return
	}
	if err != nil {
		h.logger.Error("archive sweep failed", "error", err)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "archive": result})
}

// Erase handles a data-subject deletion request.
// Route: POST /clients/{clientID}/erasure
func (h *Handler) Erase(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	result, err := h.svc.Erase(r.Context(), clientID, actorFrom(r))
	if errors.Is(err, ErrForbidden) {
		respond.Forbidden(w, "not authorized for this client")
		return
	}
	if errors.Is(err, ErrClientNotFound) {
		respond.NotFound(w, "client not found")
		return
	}
	if err != nil {
		h.logger.Error("erasure failed", "error", err, "client_id", clientID)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "erasure": result})
}
