package security

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brightharbor/homecare-platform/internal/audit"
)

// Incident statuses.
const (
	StatusOpen     = "Open"
	StatusResolved = "Resolved"
)

// Incident is a persisted security finding awaiting review.
type Incident struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	IncidentType string          `json:"incident_type"`
	Severity     audit.RiskLevel `json:"severity"`
	Description  string          `json:"description"`
	Status       string          `json:"status"`
	DetectedAt   time.Time       `json:"detected_at"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
}

// DB is the pgx surface the incident repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// IncidentRepository persists security incidents.
type IncidentRepository struct {
	db DB
}

// NewIncidentRepository creates an incident repository backed by pgx.
func NewIncidentRepository(db DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create inserts an open incident from a finding.
func (r *IncidentRepository) Create(ctx context.Context, f Finding) (*Incident, error) {
	inc := &Incident{
		ID:           uuid.NewString(),
		UserID:       f.UserID,
		IncidentType: f.Type,
		Severity:     f.Severity,
		Description:  f.Description,
		Status:       StatusOpen,
		DetectedAt:   time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO security_incidents (id, user_id, incident_type, severity, description, status, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, inc.ID, inc.UserID, inc.IncidentType, string(inc.Severity), inc.Description, inc.Status, inc.DetectedAt)
	if err != nil {
		return nil, fmt.Errorf("security: insert incident: %w", err)
	}
	return inc, nil
}

// ListOpen returns unresolved incidents, newest first.
func (r *IncidentRepository) ListOpen(ctx context.Context) ([]Incident, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, incident_type, severity, description, status, detected_at, resolved_at
		FROM security_incidents WHERE status = $1 ORDER BY detected_at DESC
	`, StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("security: list incidents: %w", err)
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		var inc Incident
		var sev string
		if err := rows.Scan(&inc.ID, &inc.UserID, &inc.IncidentType, &sev,
			&inc.Description, &inc.Status, &inc.DetectedAt, &inc.ResolvedAt); err != nil {
			return nil, fmt.Errorf("security: scan incident: %w", err)
		}
		inc.Severity = audit.RiskLevel(sev)
		out = append(out, inc)
	}
	return out, rows.Err()
}

// Resolve closes an incident.
func (r *IncidentRepository) Resolve(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE security_incidents SET status = $2, resolved_at = now() WHERE id = $1 AND status = $3
	`, id, StatusResolved, StatusOpen)
	if err != nil {
		return fmt.Errorf("security: resolve incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("security: incident %s not found or already resolved", id)
	}
	return nil
}
