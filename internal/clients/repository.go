package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pgx surface the repository needs. Satisfied by *pgxpool.Pool and
// by pgxmock in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists clients.
type Repository struct {
	db DB
}

// NewRepository creates a client repository backed by pgx.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const clientColumns = `id, name, email, phone, address, medical_conditions, medications,
	emergency_contact, status, discharge_date, anonymized_at, created_at, updated_at`

// CreateParams holds the fields for a new client record.
type CreateParams struct {
	Name             string
	Email            string
	Phone            string
	Address          string
	Conditions       string
	Medications      string
	EmergencyContact string
	Status           string
}

// Create inserts a new client.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*Client, error) {
	if p.Status == "" {
		p.Status = StatusInquiry
	}
	if !ValidStatus(p.Status) {
		return nil, fmt.Errorf("clients: invalid status %q", p.Status)
	}
	now := time.Now().UTC()
	c := &Client{
		ID:               uuid.NewString(),
		Name:             p.Name,
		Email:            p.Email,
		Phone:            p.Phone,
		Address:          p.Address,
		Conditions:       p.Conditions,
		Medications:      p.Medications,
		EmergencyContact: p.EmergencyContact,
		Status:           p.Status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO clients (
			id, name, email, phone, address, medical_conditions, medications,
			emergency_contact, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.Name, c.Email, c.Phone, c.Address, c.Conditions, c.Medications,
		c.EmergencyContact, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("clients: insert: %w", err)
	}
	return c, nil
}

// GetByID fetches a client by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Client, error) {
	row := r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	return scanClient(row)
}

// List returns clients, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClientRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a client's status. Moving to Discharged stamps the
// discharge date, which drives archival eligibility.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) (*Client, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("clients: invalid status %q", status)
	}
	var dischargeDate *time.Time
	if status == StatusDischarged {
		now := time.Now().UTC()
		dischargeDate = &now
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE clients
		SET status = $2,
			discharge_date = COALESCE($3, discharge_date),
			updated_at = now()
		WHERE id = $1
	`, id, status, dischargeDate)
	if err != nil {
		return nil, fmt.Errorf("clients: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrClientNotFound
	}
	return r.GetByID(ctx, id)
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Conditions,
		&c.Medications, &c.EmergencyContact, &c.Status, &c.DischargeDate,
		&c.AnonymizedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("clients: scan: %w", err)
	}
	return &c, nil
}

func scanClientRow(rows pgx.Rows) (*Client, error) {
	var c Client
	err := rows.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Conditions,
		&c.Medications, &c.EmergencyContact, &c.Status, &c.DischargeDate,
		&c.AnonymizedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("clients: scan: %w", err)
	}
	return &c, nil
}
