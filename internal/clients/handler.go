package clients

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightharbor/homecare-platform/internal/audit"
	"github.com/brightharbor/homecare-platform/internal/http/middleware"
	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Handler serves client management endpoints.
type Handler struct {
	repo   *Repository
	audit  *audit.Service
	logger *logging.Logger
}

// NewHandler creates a new clients handler.
func NewHandler(repo *Repository, auditSvc *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, audit: auditSvc, logger: logger}
}

// List returns clients, optionally filtered by ?status=.
// Route: GET /clients
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !ValidStatus(status) {
		respond.BadRequest(w, "unknown status")
		return
	}

	list, err := h.repo.List(r.Context(), status)
	if err != nil {
		h.logger.Error("client list failed", "error", err)
		respond.Internal(w, err)
		return
	}

	h.recordAccess(r, audit.ActionRead, "")
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "clients": list})
}

// Get returns a single client record.
// Route: GET /clients/{clientID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "clientID")
	client, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, ErrClientNotFound) {
		respond.NotFound(w, "client not found")
		return
	}
	if err != nil {
		h.logger.Error("client fetch failed", "error", err, "client_id", id)
		respond.Internal(w, err)
		return
	}

	h.recordAccess(r, audit.ActionAccessPHI, id)
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "client": client})
}

// UpdateStatus transitions a client's lifecycle status.
// Route: PATCH /clients/{clientID}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "clientID")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		respond.BadRequest(w, "status is required")
		return
	}
	if !ValidStatus(body.Status) {
		respond.BadRequest(w, "unknown status")
		return
	}

	client, err := h.repo.UpdateStatus(r.Context(), id, body.Status)
	if errors.Is(err, ErrClientNotFound) {
		respond.NotFound(w, "client not found")
		return
	}
	if err != nil {
		h.logger.Error("client status update failed", "error", err, "client_id", id)
		respond.Internal(w, err)
		return
	}

	h.recordAccess(r, audit.ActionUpdate, id)
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "client": client})
}

func (h *Handler) recordAccess(r *http.Request, action, entityID string) {
	if h.audit == nil {
		return
	}
	ident, _ := middleware.IdentityFromContext(r.Context())
	risk := audit.RiskMedium
	if action == audit.ActionAccessPHI {
		risk = audit.RiskHigh
	}
	if err := h.audit.Record(r.Context(), audit.Entry{
		UserID:     ident.UserID,
		UserEmail:  ident.Email,
		ActionType: action,
		Entity:     audit.EntityClient,
		EntityID:   entityID,
		IPAddress:  ident.IP,
		RiskLevel:  risk,
		Success:    true,
	}); err != nil {
		h.logger.Warn("failed to record client access", "error", err)
	}
}
