package security

import (
	"context"
	"fmt"
	"time"

	"github.com/brightharbor/homecare-platform/internal/audit"
	"github.com/brightharbor/homecare-platform/internal/identity"
	"github.com/brightharbor/homecare-platform/internal/notify"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// ActivityReader supplies activity log entries for a scan window.
type ActivityReader interface {
	ListSince(ctx context.Context, cutoff time.Time) ([]audit.Entry, error)
}

// AdminLister supplies the admin users to alert on critical findings.
type AdminLister interface {
	ListAdmins(ctx context.Context) ([]identity.User, error)
}

// ScanResult summarizes one breach scan.
type ScanResult struct {
	WindowStart      time.Time `json:"window_start"`
	EntriesScanned   int       `json:"entries_scanned"`
	Findings         []Finding `json:"findings"`
	IncidentsCreated int       `json:"incidents_created"`
	AdminsAlerted    int       `json:"admins_alerted"`
}

// Service runs breach scans over the activity log.
type Service struct {
	activity   ActivityReader
	incidents  *IncidentRepository
	admins     AdminLister
	email      notify.EmailSender
	window     time.Duration
	thresholds Thresholds
	loc        *time.Location
	logger     *logging.Logger
}

// NewService creates a breach scan service.
func NewService(activity ActivityReader, incidents *IncidentRepository, admins AdminLister,
	email notify.EmailSender, window time.Duration, th Thresholds, loc *time.Location, logger *logging.Logger) *Service {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		activity:   activity,
		incidents:  incidents,
		admins:     admins,
		email:      email,
		window:     window,
		thresholds: th,
		loc:        loc,
		logger:     logger,
	}
}

// Scan detects breach patterns in the configured window. High and Critical
// findings become open incidents; any Critical finding alerts every admin.
// Alert failures do not fail the scan.
func (s *Service) Scan(ctx context.Context) (*ScanResult, error) {
	start := time.Now().UTC().Add(-s.window)
	entries, err := s.activity.ListSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("security: load scan window: %w", err)
	}

	findings := Detect(entries, s.thresholds, s.loc)
	result := &ScanResult{
		WindowStart:    start,
		EntriesScanned: len(entries),
		Findings:       findings,
	}

	var critical []string
	for _, f := range findings {
		if f.Severity != audit.RiskHigh && f.Severity != audit.RiskCritical {
			continue
		}
		if _, err := s.incidents.Create(ctx, f); err != nil {
			return nil, err
		}
		result.IncidentsCreated++
		if f.Severity == audit.RiskCritical {
			critical = append(critical, f.Description)
		}
	}

	if len(critical) > 0 {
		result.AdminsAlerted = s.alertAdmins(ctx, critical)
	}

	s.logger.Info("breach scan complete",
		"entries", result.EntriesScanned,
		"findings", len(findings),
		"incidents", result.IncidentsCreated,
		"admins_alerted", result.AdminsAlerted)
	return result, nil
}

func (s *Service) alertAdmins(ctx context.Context, descriptions []string) int {
	if s.admins == nil || s.email == nil {
		return 0
	}
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		s.logger.Error("failed to list admins for breach alert", "error", err)
		return 0
	}
	sent := 0
	now := time.Now().UTC()
	for _, admin := range admins {
		msg := notify.BreachAlert(admin.Email, descriptions, now)
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("breach alert send failed", "error", err, "to", admin.Email)
			continue
		}
		sent++
	}
	return sent
}
