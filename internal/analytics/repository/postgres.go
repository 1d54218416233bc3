// Package repository reads per-stall counters for vendor analytics.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Sambhav-gg/StreetBites/internal/analytics/domain"
)

const statsQuery = `SELECT s.id, s.name, s.city, s.category, s.created_at,
	(SELECT count(*) FROM stall_impressions i WHERE i.stall_id = s.id) AS impressions,
	(SELECT count(*) FROM reviews r WHERE r.stall_id = s.id) AS reviews,
	(SELECT avg(r.rating)::float8 FROM reviews r WHERE r.stall_id = s.id) AS avg_rating
FROM stalls s
WHERE s.owner_id = $1
ORDER BY s.created_at, s.id`

type statsRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	City        string          `db:"city"`
	Category    string          `db:"category"`
	CreatedAt   time.Time       `db:"created_at"`
	Impressions int             `db:"impressions"`
	Reviews     int             `db:"reviews"`
	AvgRating   sql.NullFloat64 `db:"avg_rating"`
}

// PostgresRepository aggregates stalls, impressions and reviews.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an analytics repository that uses the given db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// StatsByOwner returns the counters for every stall owned by ownerID, oldest first.
func (r *PostgresRepository) StatsByOwner(ctx context.Context, ownerID string) ([]domain.StallStats, error) {
	var rows []statsRow
	if err := r.db.SelectContext(ctx, &rows, statsQuery, ownerID); err != nil {
		return nil, err
	}
	out := make([]domain.StallStats, 0, len(rows))
	for _, row := range rows {
		s := domain.StallStats{
			ID:          row.ID,
			Name:        row.Name,
			City:        row.City,
			Category:    row.Category,
			Impressions: row.Impressions,
			Reviews:     row.Reviews,
			CreatedAt:   row.CreatedAt,
		}
		if row.AvgRating.Valid {
			avg := row.AvgRating.Float64
			s.AvgRating = &avg
		}
		out = append(out, s)
	}
	return out, nil
}
