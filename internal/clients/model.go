package clients

import (
	"errors"
	"time"
)

// Status values for a client's care lifecycle.
const (
	StatusInquiry    = "Inquiry"
	StatusActive     = "Active"
	StatusPaused     = "Paused"
	StatusDischarged = "Discharged"
)

// ErrClientNotFound is returned when no client matches the lookup.
var ErrClientNotFound = errors.New("clients: client not found")

// Client is a person receiving care. Clients are never hard-deleted; erasure
// and archival overwrite PII in place so the row survives for joins and audit
// continuity.
type Client struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	Conditions       string     `json:"medical_conditions"`
	Medications      string     `json:"medications"`
	EmergencyContact string     `json:"emergency_contact"`
	Status           string     `json:"status"`
	DischargeDate    *time.Time `json:"discharge_date,omitempty"`
	AnonymizedAt     *time.Time `json:"anonymized_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ValidStatus reports whether s is a recognized client status.
func ValidStatus(s string) bool {
	switch s {
	case StatusInquiry, StatusActive, StatusPaused, StatusDischarged:
		return true
	}
	return false
}
