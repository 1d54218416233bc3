package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Sambhav-gg/StreetBites/internal/audit/domain"
)

type auditRow struct {
	ID        string         `db:"id"`
	UserID    sql.NullString `db:"user_id"`
	Action    string         `db:"action"`
	Resource  string         `db:"resource"`
	IP        string         `db:"ip"`
	Metadata  sql.NullString `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
}

// PostgresRepository stores audit entries in audit_logs.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource, ip, metadata, created_at)
		 VALUES (:id, :user_id, :action, :resource, :ip, :metadata, :created_at)`,
		auditRow{
			ID:        a.ID,
			UserID:    sql.NullString{String: a.UserID, Valid: a.UserID != ""},
			Action:    a.Action,
			Resource:  a.Resource,
			IP:        a.IP,
			Metadata:  sql.NullString{String: a.Metadata, Valid: a.Metadata != ""},
			CreatedAt: a.CreatedAt,
		})
	return err
}
