package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Sambhav-gg/StreetBites/internal/db"
	"github.com/Sambhav-gg/StreetBites/internal/stall/domain"
)

const stallColumns = `s.id, s.owner_id, s.name, s.address, s.city, s.category, s.lat, s.lng,
	s.opening_time, s.closing_time, s.description, s.phone, s.main_image_url, s.other_images, s.menu,
	s.num_reviews, s.average_rating, s.created_at, s.updated_at,
	(SELECT count(*) FROM stall_impressions i WHERE i.stall_id = s.id) AS impressions`

// haversineKm is the great-circle distance in km from ($1, $2) to the stall.
const haversineKm = `6371 * 2 * asin(sqrt(
	power(sin(radians(s.lat - $1) / 2), 2) +
	cos(radians($1)) * cos(radians(s.lat)) * power(sin(radians(s.lng - $2) / 2), 2)))`

type stallRow struct {
	ID            string                    `db:"id"`
	OwnerID       string                    `db:"owner_id"`
	Name          string                    `db:"name"`
	Address       string                    `db:"address"`
	City          string                    `db:"city"`
	Category      string                    `db:"category"`
	Lat           float64                   `db:"lat"`
	Lng           float64                   `db:"lng"`
	OpeningTime   string                    `db:"opening_time"`
	ClosingTime   string                    `db:"closing_time"`
	Description   string                    `db:"description"`
	Phone         string                    `db:"phone"`
	MainImageURL  string                    `db:"main_image_url"`
	OtherImages   jsonList[string]          `db:"other_images"`
	Menu          jsonList[domain.MenuItem] `db:"menu"`
	NumReviews    int                       `db:"num_reviews"`
	AverageRating sql.NullFloat64           `db:"average_rating"`
	CreatedAt     time.Time                 `db:"created_at"`
	UpdatedAt     time.Time                 `db:"updated_at"`
	Impressions   int                       `db:"impressions"`
}

type nearbyRow struct {
	stallRow
	DistanceKm float64 `db:"distance_km"`
}

// PostgresRepository stores stalls in the stalls and stall_impressions tables.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a stall repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the stall for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Stall, error) {
	var row stallRow
	err := r.db.GetContext(ctx, &row, `SELECT `+stallColumns+` FROM stalls s WHERE s.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowToDomain(&row), nil
}

// ListAll returns every stall, newest first.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*domain.Stall, error) {
	return r.list(ctx, `SELECT `+stallColumns+` FROM stalls s ORDER BY s.created_at DESC, s.id`)
}

// ListByOwner returns the owner's stalls, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Stall, error) {
	return r.list(ctx, `SELECT `+stallColumns+` FROM stalls s WHERE s.owner_id = $1 ORDER BY s.created_at DESC, s.id`, ownerID)
}

// ListByIDs returns the stalls among ids that exist.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Stall, error) {
	if len(ids) == 0 {
		return []*domain.Stall{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+stallColumns+` FROM stalls s WHERE s.id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, r.db.Rebind(query), args...)
}

// ExistsByOwnerAndName reports whether the owner has a stall whose name matches case-insensitively.
func (r *PostgresRepository) ExistsByOwnerAndName(ctx context.Context, ownerID, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM stalls WHERE owner_id = $1 AND lower(name) = lower($2))`, ownerID, name)
	return exists, err
}

// Create persists the stall. The stall must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Stall) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stalls (id, owner_id, name, address, city, category, lat, lng, opening_time, closing_time,
			description, phone, main_image_url, other_images, menu, num_reviews, average_rating, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 0, NULL, $16, $17)`,
		s.ID, s.OwnerID, s.Name, s.Address, s.City, s.Category, s.Location.Lat, s.Location.Lng,
		s.OpeningTime, s.ClosingTime, s.Description, s.Phone, s.MainImageURL,
		jsonList[string](s.OtherImageURLs), jsonList[domain.MenuItem](s.Menu), s.CreatedAt, s.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// Update overwrites the editable fields. Ratings, owner, and menu are untouched.
func (r *PostgresRepository) Update(ctx context.Context, s *domain.Stall) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stalls SET name = $2, address = $3, city = $4, category = $5, lat = $6, lng = $7,
			opening_time = $8, closing_time = $9, description = $10, phone = $11, main_image_url = $12,
			other_images = $13, updated_at = $14
		 WHERE id = $1`,
		s.ID, s.Name, s.Address, s.City, s.Category, s.Location.Lat, s.Location.Lng,
		s.OpeningTime, s.ClosingTime, s.Description, s.Phone, s.MainImageURL,
		jsonList[string](s.OtherImageURLs), s.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return false, ErrDuplicateName
	}
	return affected(res, err)
}

// UpdateMenu replaces the menu.
func (r *PostgresRepository) UpdateMenu(ctx context.Context, id string, menu []domain.MenuItem, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stalls SET menu = $2, updated_at = $3 WHERE id = $1`, id, jsonList[domain.MenuItem](menu), at)
	return affected(res, err)
}

// Delete removes the stall; reviews, likes, and impressions cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stalls WHERE id = $1`, id)
	return affected(res, err)
}

// Search matches dish against stall and menu item names with ILIKE; city is an exact filter.
func (r *PostgresRepository) Search(ctx context.Context, dish, city string) ([]*domain.Stall, error) {
	pattern := ""
	if d := strings.TrimSpace(dish); d != "" {
		pattern = "%" + escapeLike(d) + "%"
	}
	return r.list(ctx,
		`SELECT `+stallColumns+` FROM stalls s
		 WHERE ($1 = '' OR s.name ILIKE $1
			OR EXISTS (SELECT 1 FROM jsonb_array_elements(s.menu) m WHERE m->>'name' ILIKE $1))
		   AND ($2 = '' OR s.city = $2)
		 ORDER BY s.created_at DESC, s.id`,
		pattern, strings.TrimSpace(city))
}

// TopRated returns stalls by average rating, unrated last. limit <= 0 means no limit.
func (r *PostgresRepository) TopRated(ctx context.Context, limit int) ([]*domain.Stall, error) {
	query := `SELECT ` + stallColumns + ` FROM stalls s
		 ORDER BY s.average_rating DESC NULLS LAST, s.num_reviews DESC, s.created_at DESC, s.id`
	if limit > 0 {
		return r.list(ctx, query+` LIMIT $1`, limit)
	}
	return r.list(ctx, query)
}

// Nearby returns stalls within radiusKm of at, nearest first, with DistanceKm set.
func (r *PostgresRepository) Nearby(ctx context.Context, at domain.Location, radiusKm float64) ([]*domain.Stall, error) {
	var rows []nearbyRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM (
			SELECT `+stallColumns+`, `+haversineKm+` AS distance_km FROM stalls s
		 ) t WHERE t.distance_km <= $3 ORDER BY t.distance_km, t.id`,
		at.Lat, at.Lng, radiusKm)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Stall, len(rows))
	for i := range rows {
		s := rowToDomain(&rows[i].stallRow)
		d := rows[i].DistanceKm
		s.DistanceKm = &d
		out[i] = s
	}
	return out, nil
}

// ByCity returns stalls whose city contains city, case-insensitively.
func (r *PostgresRepository) ByCity(ctx context.Context, city string) ([]*domain.Stall, error) {
	return r.list(ctx,
		`SELECT `+stallColumns+` FROM stalls s WHERE s.city ILIKE $1 ORDER BY s.created_at DESC, s.id`,
		"%"+escapeLike(strings.TrimSpace(city))+"%")
}

// AddImpression inserts an impression row.
func (r *PostgresRepository) AddImpression(ctx context.Context, id string, at time.Time) (bool, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO stall_impressions (stall_id, seen_at) VALUES ($1, $2)`, id, at)
	if db.IsForeignKeyViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Stall, error) {
	var rows []stallRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*domain.Stall, len(rows))
	for i := range rows {
		out[i] = rowToDomain(&rows[i])
	}
	return out, nil
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func rowToDomain(row *stallRow) *domain.Stall {
	s := &domain.Stall{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		Name:           row.Name,
		Address:        row.Address,
		City:           row.City,
		Category:       row.Category,
		Location:       domain.Location{Lat: row.Lat, Lng: row.Lng},
		OpeningTime:    row.OpeningTime,
		ClosingTime:    row.ClosingTime,
		Description:    row.Description,
		Phone:          row.Phone,
		MainImageURL:   row.MainImageURL,
		OtherImageURLs: []string(row.OtherImages),
		Menu:           []domain.MenuItem(row.Menu),
		NumReviews:     row.NumReviews,
		Impressions:    row.Impressions,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if s.OtherImageURLs == nil {
		s.OtherImageURLs = []string{}
	}
	if s.Menu == nil {
		s.Menu = []domain.MenuItem{}
	}
	if row.AverageRating.Valid {
		v := row.AverageRating.Float64
		s.AverageRating = &v
	}
	return s
}
