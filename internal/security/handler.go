package security

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Handler serves admin security endpoints.
type Handler struct {
	svc       *Service
	incidents *IncidentRepository
	logger    *logging.Logger
}

// NewHandler creates a new security handler.
func NewHandler(svc *Service, incidents *IncidentRepository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, incidents: incidents, logger: logger}
}

// Scan runs an on-demand breach scan.
// Route: POST /admin/security/scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Scan(r.Context())
	if err != nil {
		h.logger.Error("breach scan failed", "error", err)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "scan": result})
}

// ListIncidents returns open incidents for review.
// Route: GET /admin/security/incidents
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	list, err := h.incidents.ListOpen(r.Context())
	if err != nil {
		h.logger.Error("incident list failed", "error", err)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "incidents": list})
}

// ResolveIncident closes an incident.
// Route: POST /admin/security/incidents/{incidentID}/resolve
func (h *Handler) ResolveIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "incidentID")
	if err := h.incidents.Resolve(r.Context(), id); err != nil {
		respond.NotFound(w, "incident not found")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true})
}
