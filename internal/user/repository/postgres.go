package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Sambhav-gg/StreetBites/internal/db"
	"github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

const userColumns = `id, phone, name, email, role, avatar_url, created_at, updated_at`

type userRow struct {
	ID        string         `db:"id"`
	Phone     string         `db:"phone"`
	Name      sql.NullString `db:"name"`
	Email     sql.NullString `db:"email"`
	Role      string         `db:"role"`
	AvatarURL sql.NullString `db:"avatar_url"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// PostgresRepository stores users in the users and user_liked_stalls tables.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByPhone returns the user with the given phone, or nil if not found.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	liked := []string{}
	if err := r.db.SelectContext(ctx, &liked,
		`SELECT stall_id FROM user_liked_stalls WHERE user_id = $1 ORDER BY liked_at, stall_id`, row.ID); err != nil {
		return nil, err
	}
	u := rowToDomain(&row)
	u.LikedStallIDs = liked
	return u, nil
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Phone, nullable(u.Name), nullable(u.Email), string(u.Role), nullable(u.AvatarURL), u.CreatedAt, u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return domain.ErrPhoneTaken
	}
	return err
}

// UpdateProfile overwrites name, email and avatar. Missing users are a no-op.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, p Profile, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, avatar_url = $4, updated_at = $5 WHERE id = $1`,
		id, nullable(p.Name), nullable(p.Email), nullable(p.AvatarURL), at)
	return err
}

// AddLikedStall records the like; liking twice keeps the first timestamp.
func (r *PostgresRepository) AddLikedStall(ctx context.Context, userID, stallID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_liked_stalls (user_id, stall_id, liked_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, stallID, at)
	return err
}

// RemoveLikedStall drops the like if present.
func (r *PostgresRepository) RemoveLikedStall(ctx context.Context, userID, stallID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_liked_stalls WHERE user_id = $1 AND stall_id = $2`, userID, stallID)
	return err
}

func rowToDomain(row *userRow) *domain.User {
	return &domain.User{
		ID:        row.ID,
		Phone:     row.Phone,
		Name:      row.Name.String,
		Email:     row.Email.String,
		Role:      domain.Role(row.Role),
		AvatarURL: row.AvatarURL.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
