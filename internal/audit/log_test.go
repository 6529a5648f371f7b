package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)

	tests := []struct {
		name  string
		entry Entry
	}{
		{
			name: "phi access",
			entry: Entry{
				UserID:     "user-1",
				UserEmail:  "nurse@agency.example",
				ActionType: ActionAccessPHI,
				Entity:     EntityClient,
				EntityID:   "client-9",
				RiskLevel:  RiskHigh,
				Success:    true,
			},
		},
		{
			name: "failed login defaults risk",
			entry: Entry{
				UserID:     "user-2",
				ActionType: ActionFailedLogin,
				Success:    false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec("INSERT INTO activity_log").
				WillReturnResult(sqlmock.NewResult(1, 1))

			err := service.Record(context.Background(), tt.entry)
			assert.NoError(t, err)
		})
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "user_email", "action_type", "entity", "entity_id",
		"ip_address", "risk_level", "success", "details", "created_at",
	}).
		AddRow("e1", "user-1", "nurse@agency.example", ActionRead, EntityClient, "c1", "10.0.0.1", "High", true, nil, now).
		AddRow("e2", "user-1", nil, ActionFailedLogin, nil, nil, "10.0.0.2", "Medium", false, nil, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM activity_log").
		WithArgs("user-1").
		WillReturnRows(rows)

	entries, err := service.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e1", entries[0].ID)
	assert.Equal(t, RiskHigh, entries[0].RiskLevel)
	assert.Equal(t, "", entries[1].UserEmail)
	assert.False(t, entries[1].Success)
}

func TestServiceListSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM activity_log").
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "user_email", "action_type", "entity", "entity_id",
			"ip_address", "risk_level", "success", "details", "created_at",
		}))

	entries, err := service.ListSince(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
