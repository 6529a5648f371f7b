// Package identity stores platform users (admins, caregivers, client logins).
// Authentication itself is delegated to the token layer; this package only
// resolves identities and roles.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("identity: user not found")

// User is a platform account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DB is the pgx surface the repository needs. Satisfied by *pgxpool.Pool and
// by pgxmock in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists users.
type Repository struct {
	db DB
}

// NewRepository creates a user repository backed by pgx.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// GetByID fetches a user by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, name, role, created_at
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

// GetByEmail fetches a user by email, case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, name, role, created_at
		FROM users WHERE lower(email) = lower($1)
	`, strings.TrimSpace(email))
	return scanUser(row)
}

// ListAdmins returns every admin user. Used for critical security alerts.
func (r *Repository) ListAdmins(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, email, name, role, created_at
		FROM users WHERE role = 'admin' ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("identity: list admins: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("identity: scan admin: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: scan user: %w", err)
	}
	return &u, nil
}
