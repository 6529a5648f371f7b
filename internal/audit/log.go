// Package audit provides the append-only activity log that underpins
// compliance reporting and breach detection. Entries are never mutated
// after creation.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies the sensitivity of a logged action.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Action types recorded in the activity log.
const (
	ActionLogin       = "Login"
	ActionFailedLogin = "Failed Login"
	ActionAccessPHI   = "Access PHI"
	ActionRead        = "Read"
	ActionCreate      = "Create"
	ActionUpdate      = "Update"
	ActionDelete      = "Delete"
	ActionArchive     = "Archive"
	ActionErasure     = "Erase Data"
	ActionAudit       = "Audit"
)

// Entity names referenced by activity log entries.
const (
	EntityClient           = "Client"
	EntityInquiry          = "Inquiry"
	EntityVisit            = "Visit"
	EntityVisitNote        = "Visit_Note"
	EntityCarePlan         = "Care_Plan"
	EntityInvoice          = "Invoice"
	EntityConversation     = "Conversation"
	EntityActivityLog      = "Activity_Log"
	EntitySecurityIncident = "Security_Incident"
)

// phiEntities are the entities whose reads count as PHI access.
var phiEntities = map[string]struct{}{
	EntityClient:    {},
	EntityVisitNote: {},
	EntityCarePlan:  {},
}

// IsPHIEntity reports whether reads of the entity count as PHI access.
func IsPHIEntity(entity string) bool {
	_, ok := phiEntities[entity]
	return ok
}

// Entry represents an immutable activity log record.
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email,omitempty"`
	ActionType string    `json:"action_type"`
	Entity     string    `json:"entity,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Success    bool      `json:"success"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service handles activity log persistence.
type Service struct {
	db *sql.DB
}

// NewService creates a new activity log service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record appends an entry to the activity log.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.RiskLevel == "" {
		entry.RiskLevel = RiskLow
	}

	query := `
		INSERT INTO activity_log (
			id, user_id, user_email, action_type, entity, entity_id,
			ip_address, risk_level, success, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		nullString(entry.UserEmail),
		entry.ActionType,
		nullString(entry.Entity),
		nullString(entry.EntityID),
		nullString(entry.IPAddress),
		string(entry.RiskLevel),
		entry.Success,
		nullString(entry.Details),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record entry: %w", err)
	}

	return nil
}

// ListByUser returns all entries for a user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Entry, error) {
	query := selectEntries + ` WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListSince returns all entries created at or after the cutoff, across users.
// Used by the breach detector's 24h window scan.
func (s *Service) ListSince(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	query := selectEntries + ` WHERE created_at >= $1 ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query window: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

const selectEntries = `
	SELECT id, user_id, user_email, action_type, entity, entity_id,
		   ip_address, risk_level, success, details, created_at
	FROM activity_log`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var email, entity, entityID, ip, details sql.NullString
		var risk string
		err := rows.Scan(
			&e.ID, &e.UserID, &email, &e.ActionType, &entity, &entityID,
			&ip, &risk, &e.Success, &details, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("audit: failed to scan entry: %w", err)
		}
		e.UserEmail = email.String
		e.Entity = entity.String
		e.EntityID = entityID.String
		e.IPAddress = ip.String
		e.RiskLevel = RiskLevel(risk)
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
