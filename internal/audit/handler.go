package audit

import (
	"net/http"
	"time"

	"github.com/brightharbor/homecare-platform/internal/http/middleware"
	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Handler serves the access audit report endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new audit handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// AccessAudit reports on a user's activity log.
// Route: GET /audit/access?target_user_id=&start=&end=&entity=
//
// Any caller may audit their own activity. Auditing another user requires the
// admin role; the ownership check runs before any log fetch.
func (h *Handler) AccessAudit(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respond.Unauthorized(w, "not authenticated")
		return
	}

	target := r.URL.Query().Get("target_user_id")
	if target == "" {
		target = ident.UserID
	}
	if target != ident.UserID && !ident.IsAdmin() {
		respond.Forbidden(w, "only admins may audit other users")
		return
	}

	filter := ReportFilter{Entity: r.URL.Query().Get("entity")}
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.BadRequest(w, "start must be RFC3339")
			return
		}
		filter.Start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.BadRequest(w, "end must be RFC3339")
			return
		}
		filter.End = t
	}

	entries, err := h.service.ListByUser(r.Context(), target)
	if err != nil {
		h.logger.Error("access audit query failed", "error", err, "target_user_id", target)
		respond.Internal(w, err)
		return
	}

	report := BuildReport(target, entries, filter)

	// Auditing is itself audited.
	if err := h.service.Record(r.Context(), Entry{
		UserID:     ident.UserID,
		UserEmail:  ident.Email,
		ActionType: ActionAudit,
		Entity:     EntityActivityLog,
		EntityID:   target,
		IPAddress:  ident.IP,
		RiskLevel:  RiskMedium,
		Success:    true,
	}); err != nil {
		h.logger.Warn("failed to record audit-of-audit entry", "error", err)
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}
