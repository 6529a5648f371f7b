package security

import (
	"fmt"
	"time"

	"github.com/brightharbor/homecare-platform/internal/audit"
)

// Incident type labels.
const (
	TypeFailedLoginPattern = "Failed Login Pattern"
	TypeSuspiciousActivity = "Suspicious Activity"
)

// Thresholds configures the breach detector. Zero values fall back to
// DefaultThresholds.
type Thresholds struct {
	FailedLogins  int // >= triggers High
	PHIReads      int // > triggers Critical
	DistinctIPs   int // > triggers Medium
	AfterHours    int // > actions in the night window triggers Medium
	NightStartHr  int // inclusive, local time
	NightEndHr    int // exclusive, local time
}

// DefaultThresholds mirror the agency's HIPAA monitoring policy.
var DefaultThresholds = Thresholds{
	FailedLogins: 5,
	PHIReads:     50,
	DistinctIPs:  3,
	AfterHours:   10,
	NightStartHr: 22,
	NightEndHr:   6,
}

// Finding is one flagged pattern for one user.
type Finding struct {
	UserID      string          `json:"user_id"`
	Type        string          `json:"type"`
	Severity    audit.RiskLevel `json:"severity"`
	Count       int             `json:"count"`
	Description string          `json:"description"`
}

// userStats are the per-user aggregates accumulated in a single pass.
type userStats struct {
	failedLogins int
	phiReads     int
	ips          map[string]struct{}
	afterHours   int
}

// Detect runs the four pattern checks over one window of activity log entries.
// It keeps only per-user aggregates, so the pass is O(n) in entries and carries
// no state between runs.
func Detect(entries []audit.Entry, th Thresholds, loc *time.Location) []Finding {
	if th == (Thresholds{}) {
		th = DefaultThresholds
	}
	if loc == nil {
		loc = time.UTC
	}

	stats := make(map[string]*userStats)
	for _, e := range entries {
		if e.UserID == "" {
			continue
		}
		s := stats[e.UserID]
		if s == nil {
			s = &userStats{ips: make(map[string]struct{})}
			stats[e.UserID] = s
		}
		if e.ActionType == audit.ActionFailedLogin {
			s.failedLogins++
		}
		if e.ActionType == audit.ActionAccessPHI || (e.ActionType == audit.ActionRead && audit.IsPHIEntity(e.Entity)) {
			s.phiReads++
		}
		if e.IPAddress != "" {
			s.ips[e.IPAddress] = struct{}{}
		}
		hr := e.CreatedAt.In(loc).Hour()
		if hr >= th.NightStartHr || hr < th.NightEndHr {
			s.afterHours++
		}
	}

	var findings []Finding
	for userID, s := range stats {
		if s.failedLogins >= th.FailedLogins {
			findings = append(findings, Finding{
				UserID:      userID,
				Type:        TypeFailedLoginPattern,
				Severity:    audit.RiskHigh,
				Count:       s.failedLogins,
				Description: fmt.Sprintf("%d failed logins for user %s", s.failedLogins, userID),
			})
		}
		if s.phiReads > th.PHIReads {
			findings = append(findings, Finding{
				UserID:      userID,
				Type:        TypeSuspiciousActivity,
				Severity:    audit.RiskCritical,
				Count:       s.phiReads,
				Description: fmt.Sprintf("%d PHI record accesses for user %s", s.phiReads, userID),
			})
		}
		if len(s.ips) > th.DistinctIPs {
			findings = append(findings, Finding{
				UserID:      userID,
				Type:        TypeSuspiciousActivity,
				Severity:    audit.RiskMedium,
				Count:       len(s.ips),
				Description: fmt.Sprintf("activity from %d distinct IPs for user %s", len(s.ips), userID),
			})
		}
		if s.afterHours > th.AfterHours {
			findings = append(findings, Finding{
				UserID:      userID,
				Type:        TypeSuspiciousActivity,
				Severity:    audit.RiskMedium,
				Count:       s.afterHours,
				Description: fmt.Sprintf("%d after-hours actions for user %s", s.afterHours, userID),
			})
		}
	}
	return findings
}
