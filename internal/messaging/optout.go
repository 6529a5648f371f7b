package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/brightharbor/homecare-platform/pkg/logging"
)

// DB is the pgx surface the opt-out store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// OptOutStore is the SMS suppression list. Postgres is the source of truth;
// Redis fronts it so the send path can check without a DB round trip.
type OptOutStore struct {
	db     DB
	redis  *redis.Client
	logger *logging.Logger
}

// NewOptOutStore creates an opt-out store. redis may be nil.
func NewOptOutStore(db DB, redisClient *redis.Client, logger *logging.Logger) *OptOutStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &OptOutStore{db: db, redis: redisClient, logger: logger}
}

func optOutKey(digits string) string {
	return "sms_optout:" + digits
}

// Add records an opt-out for a phone number. Idempotent.
func (s *OptOutStore) Add(ctx context.Context, digits string) error {
	if digits == "" {
		return fmt.Errorf("messaging: empty phone for opt-out")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sms_optouts (phone_digits, opted_out_at)
		VALUES ($1, $2)
		ON CONFLICT (phone_digits) DO NOTHING
	`, digits, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("messaging: record opt-out: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Set(ctx, optOutKey(digits), "1", 0).Err(); err != nil {
			s.logger.Warn("opt-out redis set failed", "error", err, "phone_digits", digits)
		}
	}
	return nil
}

// IsOptedOut reports whether a phone number is on the suppression list.
func (s *OptOutStore) IsOptedOut(ctx context.Context, digits string) (bool, error) {
	if s.redis != nil {
		val, err := s.redis.Get(ctx, optOutKey(digits)).Result()
		if err == nil {
			return val == "1", nil
		}
		if err != redis.Nil {
			s.logger.Warn("opt-out redis get failed", "error", err, "phone_digits", digits)
		}
	}

	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM sms_optouts WHERE phone_digits = $1)
	`, digits).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("messaging: check opt-out: %w", err)
	}
	if exists && s.redis != nil {
		if err := s.redis.Set(ctx, optOutKey(digits), "1", 0).Err(); err != nil {
			s.logger.Warn("opt-out redis backfill failed", "error", err, "phone_digits", digits)
		}
	}
	return exists, nil
}
