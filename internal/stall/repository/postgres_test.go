package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sambhav-gg/StreetBites/internal/stall/domain"
)

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgresRepository(sqlx.NewDb(mockDB, "pgx")), mock
}

var stallCols = []string{"id", "owner_id", "name", "address", "city", "category", "lat", "lng",
	"opening_time", "closing_time", "description", "phone", "main_image_url", "other_images", "menu",
	"num_reviews", "average_rating", "created_at", "updated_at", "impressions"}

var now = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

func stallValues(id string, avg any) []driver.Value {
	return []driver.Value{id, "v1", "Sharma Chaat", "MI Road", "Jaipur", "chaat", 26.91, 75.78,
		"10:00", "22:00", "", "", "https://img/main.jpg", []byte(`["https://img/2.jpg"]`),
		[]byte(`[{"name":"Pani Puri","price":30}]`), 3, avg, now, now, 12}
}

func TestGetByID(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM stalls s WHERE s.id = \$1`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(stallCols).AddRow(stallValues("s1", 4.3)...))

	s, err := repo.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Sharma Chaat", s.Name)
	assert.Equal(t, domain.Location{Lat: 26.91, Lng: 75.78}, s.Location)
	assert.Equal(t, []string{"https://img/2.jpg"}, s.OtherImageURLs)
	assert.Equal(t, []domain.MenuItem{{Name: "Pani Puri", Price: 30}}, s.Menu)
	require.NotNil(t, s.AverageRating)
	assert.Equal(t, 4.3, *s.AverageRating)
	assert.Equal(t, 12, s.Impressions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFoundReturnsNil(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM stalls s WHERE s.id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(stallCols))

	s, err := repo.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestListAll_UnratedHasNilAverage(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM stalls s ORDER BY s.created_at DESC`).
		WillReturnRows(sqlmock.NewRows(stallCols).AddRow(stallValues("s1", nil)...))

	list, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].AverageRating)
}

func TestListByIDs(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM stalls s WHERE s.id IN \(\$1, \$2\)`).
		WithArgs("s1", "s2").
		WillReturnRows(sqlmock.NewRows(stallCols).AddRow(stallValues("s1", nil)...))

	list, err := repo.ListByIDs(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	empty, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateName(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO stalls`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &domain.Stall{ID: "s1", OwnerID: "v1", Name: "X", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreate_EncodesJSONColumns(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO stalls`).
		WithArgs("s1", "v1", "X", "A", "Jaipur", "chaat", 1.0, 2.0, "10:00", "22:00", "", "", "img",
			"[]", `[{"name":"Tea","price":10}]`, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Stall{
		ID: "s1", OwnerID: "v1", Name: "X", Address: "A", City: "Jaipur", Category: "chaat",
		Location: domain.Location{Lat: 1, Lng: 2}, OpeningTime: "10:00", ClosingTime: "22:00",
		MainImageURL: "img", Menu: []domain.MenuItem{{Name: "Tea", Price: 10}}, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMenuAndDelete_Missing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`UPDATE stalls SET menu = \$2`).
		WithArgs("s9", "[]", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM stalls WHERE id = \$1`).
		WithArgs("s9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateMenu(context.Background(), "s9", nil, now)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.Delete(context.Background(), "s9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearch_EscapesPattern(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM stalls s\s+WHERE \(\$1 = '' OR s.name ILIKE \$1`).
		WithArgs(`%100\%%`, "Jaipur").
		WillReturnRows(sqlmock.NewRows(stallCols))

	_, err := repo.Search(context.Background(), " 100% ", " Jaipur ")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNearby_SetsDistance(t *testing.T) {
	repo, mock := newMock(t)
	cols := append(append([]string{}, stallCols...), "distance_km")
	vals := append(stallValues("s1", nil), 1.25)
	mock.ExpectQuery(`SELECT \* FROM \(`).
		WithArgs(26.9, 75.8, domain.NearbyRadiusKm).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(vals...))

	list, err := repo.Nearby(context.Background(), domain.Location{Lat: 26.9, Lng: 75.8}, domain.NearbyRadiusKm)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].DistanceKm)
	assert.Equal(t, 1.25, *list[0].DistanceKm)
}

func TestAddImpression(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO stall_impressions`).
		WithArgs("s1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO stall_impressions`).
		WithArgs("gone", now).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	ok, err := repo.AddImpression(context.Background(), "s1", now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.AddImpression(context.Background(), "gone", now)
	require.NoError(t, err)
	assert.False(t, ok)
}
