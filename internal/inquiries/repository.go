package inquiries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pgx surface the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TxDB adds transaction support for the convert flow, which writes to both
// the inquiries and clients tables.
type TxDB interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists inquiries.
type Repository struct {
	db DB
}

// NewRepository creates an inquiry repository backed by pgx.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const inquiryColumns = `id, name, email, phone, message, status, converted_to_client, inquiry_date`

// Create inserts a new inquiry in New status.
func (r *Repository) Create(ctx context.Context, req *CreateRequest) (*Inquiry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	inq := &Inquiry{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Message:     req.Message,
		Status:      StatusNew,
		InquiryDate: time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO inquiries (id, name, email, phone, message, status, converted_to_client, inquiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inq.ID, inq.Name, inq.Email, inq.Phone, inq.Message, inq.Status, inq.ConvertedToClient, inq.InquiryDate)
	if err != nil {
		return nil, fmt.Errorf("inquiries: insert: %w", err)
	}
	return inq, nil
}

// GetByID fetches an inquiry by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Inquiry, error) {
	row := r.db.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`, id)
	var inq Inquiry
	err := row.Scan(&inq.ID, &inq.Name, &inq.Email, &inq.Phone, &inq.Message,
		&inq.Status, &inq.ConvertedToClient, &inq.InquiryDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInquiryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("inquiries: scan: %w", err)
	}
	return &inq, nil
}

// List returns inquiries, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, status string) ([]Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY inquiry_date DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inquiries: list: %w", err)
	}
	defer rows.Close()

	var out []Inquiry
	for rows.Next() {
		var inq Inquiry
		if err := rows.Scan(&inq.ID, &inq.Name, &inq.Email, &inq.Phone, &inq.Message,
			&inq.Status, &inq.ConvertedToClient, &inq.InquiryDate); err != nil {
			return nil, fmt.Errorf("inquiries: scan: %w", err)
		}
		out = append(out, inq)
	}
	return out, rows.Err()
}

// MarkLost transitions an inquiry to Lost.
func (r *Repository) MarkLost(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inquiries SET status = $2 WHERE id = $1
	`, id, StatusLost)
	if err != nil {
		return fmt.Errorf("inquiries: mark lost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInquiryNotFound
	}
	return nil
}

// MarkConverted flags an inquiry as converted to a client. Converted
// inquiries are exempt from retention deletion.
func (r *Repository) MarkConverted(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inquiries SET status = $2, converted_to_client = TRUE WHERE id = $1
	`, id, StatusConverted)
	if err != nil {
		return fmt.Errorf("inquiries: mark converted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInquiryNotFound
	}
	return nil
}
