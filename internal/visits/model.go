package visits

import (
	"errors"
	"time"
)

// Status values for a visit.
const (
	StatusScheduled  = "Scheduled"
	StatusConfirmed  = "Confirmed"
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
	StatusDeclined   = "Declined"
)

// ErrVisitNotFound is returned when no visit matches the lookup.
var ErrVisitNotFound = errors.New("visits: visit not found")

// Visit is a scheduled or occurred care appointment.
type Visit struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"client_id"`
	CaregiverID    string     `json:"caregiver_id"`
	ScheduledStart time.Time  `json:"scheduled_start"`
	ScheduledEnd   time.Time  `json:"scheduled_end"`
	ActualStart    *time.Time `json:"actual_start,omitempty"`
	ActualEnd      *time.Time `json:"actual_end,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Note is the PHI-bearing documentation of a visit. Notes are anonymized, not
// deleted, when the owning client's data is erased.
type Note struct {
	ID           string    `json:"id"`
	VisitID      string    `json:"visit_id"`
	Tasks        string    `json:"tasks"`
	Meals        string    `json:"meals"`
	Medications  string    `json:"medications"`
	Observations string    `json:"observations"`
	Incidents    string    `json:"incidents"`
	Photos       []string  `json:"photos"`
	CreatedAt    time.Time `json:"created_at"`
}
