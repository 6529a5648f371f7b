package inquiries

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightharbor/homecare-platform/internal/audit"
	"github.com/brightharbor/homecare-platform/internal/clients"
	"github.com/brightharbor/homecare-platform/internal/http/middleware"
	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Handler serves inquiry intake and admin triage endpoints.
type Handler struct {
	repo   *Repository
	db     TxDB
	audit  *audit.Service
	logger *logging.Logger
}

// NewHandler creates a new inquiries handler. db must be the pool backing
// repo; Convert opens a transaction spanning inquiries and clients.
func NewHandler(repo *Repository, db TxDB, auditSvc *audit.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, db: db, audit: auditSvc, logger: logger}
}

// Create accepts a public intake form submission.
// Route: POST /inquiries
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	inq, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("inquiry create failed", "error", err)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"success": true, "inquiry": inq})
}

// List returns inquiries for admin triage.
// Route: GET /admin/inquiries
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.logger.Error("inquiry list failed", "error", err)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "inquiries": list})
}

// MarkLost transitions an inquiry to Lost.
// Route: POST /admin/inquiries/{inquiryID}/lost
func (h *Handler) MarkLost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "inquiryID")
	if err := h.repo.MarkLost(r.Context(), id); err != nil {
		if errors.Is(err, ErrInquiryNotFound) {
			respond.NotFound(w, "inquiry not found")
			return
		}
		h.logger.Error("inquiry mark lost failed", "error", err, "inquiry_id", id)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// Convert creates a client from an inquiry and flags the inquiry converted.
// Route: POST /admin/inquiries/{inquiryID}/convert
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "inquiryID")

	inq, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, ErrInquiryNotFound) {
		respond.NotFound(w, "inquiry not found")
		return
	}
	if err != nil {
		h.logger.Error("inquiry fetch failed", "error", err, "inquiry_id", id)
		respond.Internal(w, err)
		return
	}
	if inq.ConvertedToClient {
		respond.BadRequest(w, "inquiry already converted")
		return
	}

	// Client creation and the converted flag commit together so a failure
	// cannot leave a client behind with the inquiry still convertible.
	tx, err := h.db.Begin(r.Context())
	if err != nil {
		h.logger.Error("convert begin tx failed", "error", err, "inquiry_id", id)
		respond.Internal(w, err)
		return
	}
	defer tx.Rollback(r.Context())

	client, err := clients.NewRepository(tx).Create(r.Context(), clients.CreateParams{
		Name:   inq.Name,
		Email:  inq.Email,
		Phone:  inq.Phone,
		Status: clients.StatusActive,
	})
	if err != nil {
		h.logger.Error("client create from inquiry failed", "error", err, "inquiry_id", id)
		respond.Internal(w, err)
		return
	}

	if err := NewRepository(tx).MarkConverted(r.Context(), id); err != nil {
		h.logger.Error("inquiry mark converted failed", "error", err, "inquiry_id", id)
		respond.Internal(w, err)
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		h.logger.Error("convert commit failed", "error", err, "inquiry_id", id)
		respond.Internal(w, err)
		return
	}

	if h.audit != nil {
		ident, _ := middleware.IdentityFromContext(r.Context())
		if err := h.audit.Record(r.Context(), audit.Entry{
			UserID:     ident.UserID,
			UserEmail:  ident.Email,
			ActionType: audit.ActionCreate,
			Entity:     audit.EntityClient,
			EntityID:   client.ID,
			IPAddress:  ident.IP,
			RiskLevel:  audit.RiskMedium,
			Success:    true,
			Details:    "converted from inquiry " + id,
		}); err != nil {
			h.logger.Warn("failed to record conversion", "error", err)
		}
	}

	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "client": client})
}
