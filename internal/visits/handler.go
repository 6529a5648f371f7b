package visits

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightharbor/homecare-platform/internal/audit"
	"github.com/brightharbor/homecare-platform/internal/http/middleware"
	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Handler serves visit scheduling and documentation endpoints.
type Handler struct {
	repo   *Repository
	audit  *audit.Service
	logger *logging.Logger
}

// NewHandler creates a new visits handler.
func NewHandler(repo *Repository, auditSvc *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, audit: auditSvc, logger: logger}
}

type scheduleRequest struct {
	ClientID       string    `json:"client_id"`
	CaregiverID    string    `json:"caregiver_id"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
}

// Schedule creates a new visit.
// Route: POST /visits
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	v, err := h.repo.Schedule(r.Context(), ScheduleParams(req))
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"success": true, "visit": v})
}

// Get returns a visit with its notes.
// Route: GET /visits/{visitID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "visitID")
	v, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, ErrVisitNotFound) {
		respond.NotFound(w, "visit not found")
		return
	}
	if err != nil {
		h.logger.Error("visit fetch failed", "error", err, "visit_id", id)
		respond.Internal(w, err)
		return
	}
	notes, err := h.repo.ListNotes(r.Context(), id)
	if err != nil {
		h.logger.Error("visit notes fetch failed", "error", err, "visit_id", id)
		respond.Internal(w, err)
		return
	}
	h.recordAccess(r, audit.EntityVisit, id)
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "visit": v, "notes": notes})
}

type completeRequest struct {
	ActualStart time.Time `json:"actual_start"`
	ActualEnd   time.Time `json:"actual_end"`
}

// Complete marks a visit finished.
// Route: POST /visits/{visitID}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "visitID")
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if !req.ActualEnd.After(req.ActualStart) {
		respond.BadRequest(w, "actual_end must be after actual_start")
		return
	}
	err := h.repo.Complete(r.Context(), id, req.ActualStart, req.ActualEnd)
	if errors.Is(err, ErrVisitNotFound) {
		respond.NotFound(w, "visit not found")
		return
	}
	if err != nil {
		h.logger.Error("visit complete failed", "error", err, "visit_id", id)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// AddNote attaches care documentation to a visit.
// Route: POST /visits/{visitID}/notes
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "visitID")
	var note Note
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	note.VisitID = id
	saved, err := h.repo.AddNote(r.Context(), note)
	if err != nil {
		h.logger.Error("visit note create failed", "error", err, "visit_id", id)
		respond.Internal(w, err)
		return
	}
	h.recordAccess(r, audit.EntityVisitNote, saved.ID)
	respond.JSON(w, http.StatusCreated, map[string]any{"success": true, "note": saved})
}

func (h *Handler) recordAccess(r *http.Request, entity, entityID string) {
	if h.audit == nil {
		return
	}
	ident, _ := middleware.IdentityFromContext(r.Context())
	if err := h.audit.Record(r.Context(), audit.Entry{
		UserID:     ident.UserID,
		UserEmail:  ident.Email,
		ActionType: audit.ActionAccessPHI,
		Entity:     entity,
		EntityID:   entityID,
		IPAddress:  ident.IP,
		RiskLevel:  audit.RiskHigh,
		Success:    true,
	}); err != nil {
		h.logger.Warn("failed to record PHI access", "error", err)
	}
}
