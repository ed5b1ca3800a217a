package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field/entity"
)

func newMockRepo(t *testing.T) (*FieldRepo, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewFieldRepo(sqlx.NewDb(raw, "postgres")), mock
}

func TestCreateSendsCoordinatesAsJSONText(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO fields`).
		WithArgs("1", "farmer-a", "North", `[{"lat":1,"lng":2},{"lat":3,"lng":4},{"lat":5,"lng":6}]`,
			2.0, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, "active").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	f := &entity.Field{
		ID: "1", UserID: "farmer-a", FieldName: "North", AreaHectares: 2, Status: entity.StatusActive,
		Coordinates: []entity.Coordinate{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}, {Lat: 5, Lng: 6}},
	}
	require.NoError(t, r.Create(context.Background(), f))
	assert.Equal(t, now, f.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUserDecodesCoordinates(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()
	cols := []string{"id", "user_id", "field_name", "coordinates", "area_hectares", "status", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT .+ FROM fields WHERE user_id=\$1 AND status='active' ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("farmer-a", 50).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("1", "farmer-a", "North", []byte(`[{"lat":1,"lng":2}]`), 2.0, "active", now, now))

	fields, err := r.ListByUser(context.Background(), "farmer-a", 50)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, []entity.Coordinate{{Lat: 1, Lng: 2}}, fields[0].Coordinates)
}

func TestCountActive(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM fields`).
		WithArgs("farmer-a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := r.CountActive(context.Background(), "farmer-a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
