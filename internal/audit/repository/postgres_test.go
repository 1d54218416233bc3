package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sambhav-gg/StreetBites/internal/audit/domain"
)

func TestCreate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	repo := NewPostgresRepository(sqlx.NewDb(mockDB, "pgx"))
	now := time.Date(2026, 4, 4, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("a1", nil, "signup", "user", "10.0.0.1", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), &domain.AuditLog{
		ID: "a1", Action: "signup", Resource: "user", IP: "10.0.0.1", CreatedAt: now,
	}))

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("a2", "u1", "update", "stall", "10.0.0.2", `{"id":"s1"}`, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), &domain.AuditLog{
		ID: "a2", UserID: "u1", Action: "update", Resource: "stall", IP: "10.0.0.2", Metadata: `{"id":"s1"}`, CreatedAt: now,
	}))

	assert.NoError(t, mock.ExpectationsWereMet())
}
