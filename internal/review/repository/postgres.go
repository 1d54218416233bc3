package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Sambhav-gg/StreetBites/internal/db"
	"github.com/Sambhav-gg/StreetBites/internal/review/domain"
)

const reviewColumns = `r.id, r.stall_id, r.user_id, r.rating, r.comment, r.created_at,
	COALESCE(u.name, '') AS reviewer_name, COALESCE(u.avatar_url, '') AS reviewer_avatar`

type reviewRow struct {
	ID             string    `db:"id"`
	StallID        string    `db:"stall_id"`
	UserID         string    `db:"user_id"`
	Rating         int       `db:"rating"`
	Comment        string    `db:"comment"`
	CreatedAt      time.Time `db:"created_at"`
	ReviewerName   string    `db:"reviewer_name"`
	ReviewerAvatar string    `db:"reviewer_avatar"`
}

// PostgresRepository stores reviews in the reviews table and the summary on stalls.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a review repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InStallTx runs fn inside a read-committed transaction. Callers serialize on a stall via Tx.LockStall.
func (r *PostgresRepository) InStallTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review: %w", err)
	}
	return nil
}

// ReadStall reads the stored summary and the reviews from one repeatable-read snapshot.
func (r *PostgresRepository) ReadStall(ctx context.Context, stallID string) (*StallReviews, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var summary struct {
		NumReviews    int             `db:"num_reviews"`
		AverageRating sql.NullFloat64 `db:"average_rating"`
	}
	if err := tx.GetContext(ctx, &summary,
		`SELECT num_reviews, average_rating FROM stalls WHERE id = $1`, stallID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var rows []reviewRow
	if err := tx.SelectContext(ctx, &rows,
		`SELECT `+reviewColumns+` FROM reviews r LEFT JOIN users u ON u.id = r.user_id
		WHERE r.stall_id = $1 ORDER BY r.created_at DESC, r.id`, stallID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := &StallReviews{
		Summary: domain.Summary{NumReviews: summary.NumReviews},
		Reviews: make([]*domain.Review, 0, len(rows)),
	}
	if summary.AverageRating.Valid {
		avg := summary.AverageRating.Float64
		out.Summary.AverageRating = &avg
	}
	for i := range rows {
		out.Reviews = append(out.Reviews, rowToDomain(&rows[i]))
	}
	return out, nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) LockStall(ctx context.Context, stallID string) (bool, error) {
	var id string
	err := t.tx.GetContext(ctx, &id, `SELECT id FROM stalls WHERE id = $1 FOR UPDATE`, stallID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *pgTx) FindByUserAndStall(ctx context.Context, userID, stallID string) (*domain.Review, error) {
	var row reviewRow
	err := t.tx.GetContext(ctx, &row,
		`SELECT `+reviewColumns+` FROM reviews r LEFT JOIN users u ON u.id = r.user_id
		WHERE r.user_id = $1 AND r.stall_id = $2`, userID, stallID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToDomain(&row), nil
}

func (t *pgTx) Insert(ctx context.Context, r *domain.Review) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO reviews (id, stall_id, user_id, rating, comment, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.StallID, r.UserID, r.Rating, r.Comment, r.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) LoadReviewer(ctx context.Context, userID string) (string, string, error) {
	var row struct {
		Name   sql.NullString `db:"name"`
		Avatar sql.NullString `db:"avatar_url"`
	}
	err := t.tx.GetContext(ctx, &row, `SELECT name, avatar_url FROM users WHERE id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return row.Name.String, row.Avatar.String, nil
}

func (t *pgTx) ListRatings(ctx context.Context, stallID string) ([]int, error) {
	ratings := []int{}
	if err := t.tx.SelectContext(ctx, &ratings, `SELECT rating FROM reviews WHERE stall_id = $1`, stallID); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (t *pgTx) UpdateSummary(ctx context.Context, stallID string, s domain.Summary, at time.Time) error {
	var avg sql.NullFloat64
	if s.AverageRating != nil {
		avg = sql.NullFloat64{Float64: *s.AverageRating, Valid: true}
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE stalls SET num_reviews = $2, average_rating = $3, updated_at = $4 WHERE id = $1`,
		stallID, s.NumReviews, avg, at)
	return err
}

func rowToDomain(row *reviewRow) *domain.Review {
	return &domain.Review{
		ID:             row.ID,
		StallID:        row.StallID,
		UserID:         row.UserID,
		Rating:         row.Rating,
		Comment:        row.Comment,
		ReviewerName:   row.ReviewerName,
		ReviewerAvatar: row.ReviewerAvatar,
		CreatedAt:      row.CreatedAt,
	}
}
