package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"

	"github.com/brightharbor/homecare-platform/internal/audit"
	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrForbidden      = errors.New("lifecycle: forbidden")
	ErrClientNotFound = errors.New("lifecycle: client not found")
)

// DB begins the transactions the cascades run in.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// S3Client is the S3 surface the compliance exporter needs.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AuditRecorder appends lifecycle actions to the activity log.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// RetentionPolicy holds the retention windows in years.
type RetentionPolicy struct {
	ClientYears  int
	InquiryYears int
	VisitYears   int
}

// DefaultRetention is the agency's 7/2/7-year policy.
var DefaultRetention = RetentionPolicy{ClientYears: 7, InquiryYears: 2, VisitYears: 7}

// archivedClient is one JSONL line in the pre-masking compliance export.
type archivedClient struct {
	ClientID         string     `json:"client_id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	Conditions       string     `json:"medical_conditions"`
	Medications      string     `json:"medications"`
	EmergencyContact string     `json:"emergency_contact"`
	DischargeDate    *time.Time `json:"discharge_date,omitempty"`
	ArchivedAt       time.Time  `json:"archived_at"`
	ArchiveReason    string     `json:"archive_reason"`
}

// ArchiveResult holds the aggregate counts of one retention sweep.
type ArchiveResult struct {
	ClientsArchived  int    `json:"clients_archived"`
	InquiriesDeleted int64  `json:"inquiries_deleted"`
	VisitsEligible   int64  `json:"visits_eligible"`
	ExportKey        string `json:"export_key,omitempty"`
}

// Service runs the lifecycle flows.
type Service struct {
	db        DB
	s3        S3Client
	bucket    string
	audit     AuditRecorder
	retention RetentionPolicy
	logger    *logging.Logger

	email EmailSender
}

// ServiceConfig holds the dependencies of the lifecycle service.
type ServiceConfig struct {
	DB        DB
	S3        S3Client
	Bucket    string
	Audit     AuditRecorder
	Email     EmailSender
	Retention RetentionPolicy
	Logger    *logging.Logger
}

// NewService creates the lifecycle service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Retention == (RetentionPolicy{}) {
		cfg.Retention = DefaultRetention
	}
	return &Service{
		db:        cfg.DB,
		s3:        cfg.S3,
		bucket:    cfg.Bucket,
		audit:     cfg.Audit,
		email:     cfg.Email,
		retention: cfg.Retention,
		logger:    cfg.Logger,
	}
}

// Archive runs the retention sweep: anonymize long-discharged clients (after
// exporting them to the compliance archive), hard-delete stale lost inquiries,
// and count visits past retention without mutating them. One summary activity
// log entry is written at the end, not one per record.
func (s *Service) Archive(ctx context.Context, actor Actor) (*ArchiveResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	clientCutoff := now.AddDate(-s.retention.ClientYears, 0, 0)
	inquiryCutoff := now.AddDate(-s.retention.InquiryYears, 0, 0)
	visitCutoff := now.AddDate(-s.retention.VisitYears, 0, 0)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: begin archive tx: %w", err)
	}
	defer tx.Rollback(ctx)

	eligible, err := s.fetchArchivable(ctx, tx, clientCutoff, now)
	if err != nil {
		return nil, err
	}

	result := &ArchiveResult{}

	if len(eligible) > 0 {
		key, err := s.exportClients(ctx, eligible, now)
		if err != nil {
			return nil, err
		}
		result.ExportKey = key

		for _, c := range eligible {
			if err := s.maskClient(ctx, tx, c.ClientID, ModeArchived, now); err != nil {
				return nil, err
			}
		}
		result.ClientsArchived = len(eligible)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM inquiries
		WHERE status = 'Lost' AND converted_to_client = FALSE AND inquiry_date < $1
	`, inquiryCutoff)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: delete stale inquiries: %w", err)
	}
	result.InquiriesDeleted = tag.RowsAffected()

	// Visits past retention are counted only. Whether they should also be
	// anonymized is an open product question; see the visit retention docs.
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM visits WHERE scheduled_start < $1
	`, visitCutoff).Scan(&result.VisitsEligible)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: count old visits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("lifecycle: commit archive tx: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, audit.Entry{
			UserID:     actor.UserID,
			UserEmail:  actor.Email,
			ActionType: audit.ActionArchive,
			Entity:     audit.EntityClient,
			IPAddress:  actor.IP,
			RiskLevel:  audit.RiskMedium,
			Success:    true,
			Details: fmt.Sprintf("retention sweep: %d clients archived, %d inquiries deleted, %d visits eligible",
				result.ClientsArchived, result.InquiriesDeleted, result.VisitsEligible),
		}); err != nil {
			s.logger.Error("failed to record archive sweep", "error", err)
		}
	}

	s.logger.Info("retention sweep complete",
		"clients_archived", result.ClientsArchived,
		"inquiries_deleted", result.InquiriesDeleted,
		"visits_eligible", result.VisitsEligible,
		"export_key", result.ExportKey)
	return result, nil
}

func (s *Service) fetchArchivable(ctx context.Context, tx pgx.Tx, cutoff, now time.Time) ([]archivedClient, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, name, email, phone, address, medical_conditions, medications,
		       emergency_contact, discharge_date
		FROM clients
		WHERE status = 'Discharged' AND discharge_date < $1 AND anonymized_at IS NULL
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: query archivable clients: %w", err)
	}
	defer rows.Close()

	var out []archivedClient
	for rows.Next() {
		var c archivedClient
		if err := rows.Scan(&c.ClientID, &c.Name, &c.Email, &c.Phone, &c.Address,
			&c.Conditions, &c.Medications, &c.EmergencyContact, &c.DischargeDate); err != nil {
			return nil, fmt.Errorf("lifecycle: scan archivable client: %w", err)
		}
		c.ArchivedAt = now
		c.ArchiveReason = "retention_sweep"
		out = append(out, c)
	}
	return out, rows.Err()
}

// exportClients writes the pre-masking client rows to the compliance bucket
// as JSONL. The export must succeed before any masking happens.
func (s *Service) exportClients(ctx context.Context, clients []archivedClient, now time.Time) (string, error) {
	if s.s3 == nil || s.bucket == "" {
		s.logger.Warn("compliance archive bucket not configured, skipping export",
			"clients", len(clients))
		return "", nil
	}

	var buf bytes.Buffer
	for _, c := range clients {
		line, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("lifecycle: marshal archive line: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	key := fmt.Sprintf("compliance/archive/%d/%02d/%02d/clients_%s.jsonl",
		now.Year(), now.Month(), now.Day(), now.Format("20060102T150405Z"))

	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			"archive_reason": "retention_sweep",
			"client_count":   fmt.Sprintf("%d", len(clients)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("lifecycle: s3 export failed: %w", err)
	}

	s.logger.Info("exported clients to compliance archive", "key", key, "clients", len(clients))
	return key, nil
}

// maskClient applies the client masking policy inside the transaction.
func (s *Service) maskClient(ctx context.Context, tx pgx.Tx, clientID string, mode Mode, now time.Time) error {
	setClause, args, err := SetClause("clients", mode, clientID, 2)
	if err != nil {
		return err
	}
	n := len(args)
	query := fmt.Sprintf(`UPDATE clients SET %s, status = 'Discharged', anonymized_at = $%d WHERE id = $1`,
		setClause, n+2)
	args = append([]any{clientID}, args...)
	args = append(args, now)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("lifecycle: mask client %s: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}
