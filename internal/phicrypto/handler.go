package phicrypto

import (
	"encoding/json"
	"net/http"

	"github.com/brightharbor/homecare-platform/internal/http/respond"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Handler exposes admin endpoints for encrypting and decrypting PHI values.
type Handler struct {
	enc    *Encryptor
	logger *logging.Logger
}

// NewHandler creates a new PHI crypto handler.
func NewHandler(enc *Encryptor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{enc: enc, logger: logger}
}

type encryptRequest struct {
	Value json.RawMessage `json:"value"`
}

type decryptRequest struct {
	Ciphertext string `json:"ciphertext"`
}

// Encrypt encrypts a PHI value. The value may be any JSON payload (string,
// object, array); its raw JSON encoding is what gets encrypted.
// Route: POST /admin/phi/encrypt
func (h *Handler) Encrypt(w http.ResponseWriter, r *http.Request) {
	var req encryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if len(req.Value) == 0 || string(req.Value) == "null" {
		respond.BadRequest(w, "value is required")
		return
	}
	out, err := h.enc.Encrypt(string(req.Value))
	if err != nil {
		h.logger.Error("phi encrypt failed", "error", err)
		respond.Internal(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "ciphertext": out})
}

// Decrypt decrypts a value produced by Encrypt.
// Route: POST /admin/phi/decrypt
func (h *Handler) Decrypt(w http.ResponseWriter, r *http.Request) {
	var req decryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body")
		return
	}
	if req.Ciphertext == "" {
		respond.BadRequest(w, "ciphertext is required")
		return
	}
	out, err := h.enc.Decrypt(req.Ciphertext)
	if err != nil {
		respond.BadRequest(w, "ciphertext is malformed or key mismatch")
		return
	}
	value := json.RawMessage(out)
	if !json.Valid(value) {
		// Ciphertext produced outside this endpoint may hold a bare string.
		value, _ = json.Marshal(out)
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "value": value})
}
