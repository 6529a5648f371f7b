package visits

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

// Repository persists visits and visit notes.
type Repository struct {
	db DB
}

// NewRepository creates a visit repository backed by pgx.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const visitColumns = `id, client_id, caregiver_id, scheduled_start, scheduled_end,
	actual_start, actual_end, status, created_at`

// ScheduleParams holds the fields for a new visit.
type ScheduleParams struct {
	ClientID       string
	CaregiverID    string
	ScheduledStart time.Time
	ScheduledEnd   time.Time
}

// Schedule inserts a new visit in Scheduled status.
func (r *Repository) Schedule(ctx context.Context, p ScheduleParams) (*Visit, error) {
	if p.ClientID == "" || p.CaregiverID == "" {
		return nil, errors.New("visits: client_id and caregiver_id are required")
	}
	if !p.ScheduledEnd.After(p.ScheduledStart) {
		return nil, errors.New("visits: scheduled_end must be after scheduled_start")
	}
	v := &Visit{
		ID:             uuid.NewString(),
		ClientID:       p.ClientID,
		CaregiverID:    p.CaregiverID,
		ScheduledStart: p.ScheduledStart.UTC(),
		ScheduledEnd:   p.ScheduledEnd.UTC(),
		Status:         StatusScheduled,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO visits (id, client_id, caregiver_id, scheduled_start, scheduled_end, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, v.ID, v.ClientID, v.CaregiverID, v.ScheduledStart, v.ScheduledEnd, v.Status, v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("visits: insert: %w", err)
	}
	return v, nil
}

// GetByID fetches a visit by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Visit, error) {
	row := r.db.QueryRow(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id)
	var v Visit
	err := row.Scan(&v.ID, &v.ClientID, &v.CaregiverID, &v.ScheduledStart, &v.ScheduledEnd,
		&v.ActualStart, &v.ActualEnd, &v.Status, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVisitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("visits: scan: %w", err)
	}
	return &v, nil
}

// Complete marks a visit completed with actual times.
func (r *Repository) Complete(ctx context.Context, id string, actualStart, actualEnd time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE visits
		SET status = $2, actual_start = $3, actual_end = $4
		WHERE id = $1
	`, id, StatusCompleted, actualStart.UTC(), actualEnd.UTC())
	if err != nil {
		return fmt.Errorf("visits: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVisitNotFound
	}
	return nil
}

// AddNote attaches documentation to a visit.
func (r *Repository) AddNote(ctx context.Context, note Note) (*Note, error) {
	if note.VisitID == "" {
		return nil, errors.New("visits: visit_id is required")
	}
	note.ID = uuid.NewString()
	note.CreatedAt = time.Now().UTC()
	if note.Photos == nil {
		note.Photos = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO visit_notes (id, visit_id, tasks, meals, medications, observations, incidents, photos, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, note.ID, note.VisitID, note.Tasks, note.Meals, note.Medications,
		note.Observations, note.Incidents, note.Photos, note.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("visits: insert note: %w", err)
	}
	return &note, nil
}

// ListNotes returns the notes for a visit, oldest first.
func (r *Repository) ListNotes(ctx context.Context, visitID string) ([]Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, visit_id, tasks, meals, medications, observations, incidents, photos, created_at
		FROM visit_notes WHERE visit_id = $1 ORDER BY created_at ASC
	`, visitID)
	if err != nil {
		return nil, fmt.Errorf("visits: list notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.VisitID, &n.Tasks, &n.Meals, &n.Medications,
			&n.Observations, &n.Incidents, &n.Photos, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("visits: scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// setNextStatus transitions the sender's next upcoming visit, matching the
// client by phone digits. Used by the SMS reply flow.
func (r *Repository) setNextStatus(ctx context.Context, phoneDigits string, from []string, to string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE visits SET status = $1
		WHERE id = (
			SELECT v.id FROM visits v
			JOIN clients c ON c.id = v.client_id
			WHERE regexp_replace(c.phone, '\D', '', 'g') = $2
			  AND v.status = ANY($3)
			  AND v.scheduled_start > now()
			ORDER BY v.scheduled_start ASC
			LIMIT 1
		)
	`, to, phoneDigits, from)
	if err != nil {
		return false, fmt.Errorf("visits: update next visit: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ConfirmNext confirms the sender's next scheduled visit.
func (r *Repository) ConfirmNext(ctx context.Context, phoneDigits string) (bool, error) {
	return r.setNextStatus(ctx, phoneDigits, []string{StatusScheduled}, StatusConfirmed)
}

// DeclineNext declines the sender's next scheduled visit.
func (r *Repository) DeclineNext(ctx context.Context, phoneDigits string) (bool, error) {
	return r.setNextStatus(ctx, phoneDigits, []string{StatusScheduled}, StatusDeclined)
}

// CancelNext cancels the sender's next upcoming visit, confirmed or not.
func (r *Repository) CancelNext(ctx context.Context, phoneDigits string) (bool, error) {
	return r.setNextStatus(ctx, phoneDigits, []string{StatusScheduled, StatusConfirmed}, StatusCancelled)
}
