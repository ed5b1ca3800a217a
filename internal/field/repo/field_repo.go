package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field/entity"
)

// FieldRepo stores farm fields in PostgreSQL.
type FieldRepo struct {
	db *sqlx.DB
}

func NewFieldRepo(db *sqlx.DB) *FieldRepo {
	return &FieldRepo{db: db}
}

// EnsureTable creates the fields table if it does not already exist.
func (r *FieldRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS fields (
		id varchar(32) PRIMARY KEY,
		user_id varchar(32) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		field_name varchar(255) NOT NULL,
		coordinates JSONB NOT NULL,
		area_hectares DECIMAL(10,4) NOT NULL CHECK (area_hectares > 0),
		soil_type varchar(100),
		elevation DECIMAL(8,2),
		slope_percentage DECIMAL(5,2),
		drainage_type varchar(50),
		soil_nitrogen DECIMAL(8,3),
		soil_phosphorus DECIMAL(8,3),
		soil_potassium DECIMAL(8,3),
		soil_ph DECIMAL(4,2),
		organic_matter_percentage DECIMAL(5,2),
		soil_moisture_percentage DECIMAL(5,2),
		average_temperature DECIMAL(5,2),
		annual_rainfall DECIMAL(8,2),
		average_humidity DECIMAL(5,2),
		status varchar(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive', 'deleted')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_fields_user_status ON fields (user_id, status);`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

const fieldColumns = `id, user_id, field_name, coordinates, area_hectares, soil_type, elevation,
	slope_percentage, drainage_type, soil_nitrogen, soil_phosphorus, soil_potassium, soil_ph,
	organic_matter_percentage, soil_moisture_percentage, average_temperature, annual_rainfall,
	average_humidity, status, created_at, updated_at`

type fieldRow struct {
	ID                      string    `db:"id"`
	UserID                  string    `db:"user_id"`
	FieldName               string    `db:"field_name"`
	Coordinates             []byte    `db:"coordinates"`
	AreaHectares            float64   `db:"area_hectares"`
	SoilType                *string   `db:"soil_type"`
	Elevation               *float64  `db:"elevation"`
	SlopePercentage         *float64  `db:"slope_percentage"`
	DrainageType            *string   `db:"drainage_type"`
	SoilNitrogen            *float64  `db:"soil_nitrogen"`
	SoilPhosphorus          *float64  `db:"soil_phosphorus"`
	SoilPotassium           *float64  `db:"soil_potassium"`
	SoilPH                  *float64  `db:"soil_ph"`
	OrganicMatterPercentage *float64  `db:"organic_matter_percentage"`
	SoilMoisturePercentage  *float64  `db:"soil_moisture_percentage"`
	AverageTemperature      *float64  `db:"average_temperature"`
	AnnualRainfall          *float64  `db:"annual_rainfall"`
	AverageHumidity         *float64  `db:"average_humidity"`
	Status                  string    `db:"status"`
	CreatedAt               time.Time `db:"created_at"`
	UpdatedAt               time.Time `db:"updated_at"`
}

func (row *fieldRow) toEntity() (*entity.Field, error) {
	coords := []entity.Coordinate{}
	if len(row.Coordinates) > 0 {
		if err := json.Unmarshal(row.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("decode coordinates: %w", err)
		}
	}
	return &entity.Field{
		ID:                      row.ID,
		UserID:                  row.UserID,
		FieldName:               row.FieldName,
		Coordinates:             coords,
		AreaHectares:            row.AreaHectares,
		SoilType:                row.SoilType,
		Elevation:               row.Elevation,
		SlopePercentage:         row.SlopePercentage,
		DrainageType:            row.DrainageType,
		SoilNitrogen:            row.SoilNitrogen,
		SoilPhosphorus:          row.SoilPhosphorus,
		SoilPotassium:           row.SoilPotassium,
		SoilPH:                  row.SoilPH,
		OrganicMatterPercentage: row.OrganicMatterPercentage,
		SoilMoisturePercentage:  row.SoilMoisturePercentage,
		AverageTemperature:      row.AverageTemperature,
		AnnualRainfall:          row.AnnualRainfall,
		AverageHumidity:         row.AverageHumidity,
		Status:                  row.Status,
		CreatedAt:               row.CreatedAt,
		UpdatedAt:               row.UpdatedAt,
	}, nil
}

// Create inserts f and fills its timestamps.
func (r *FieldRepo) Create(ctx context.Context, f *entity.Field) error {
	coords, err := json.Marshal(f.Coordinates)
	if err != nil {
		return err
	}
	const q = `INSERT INTO fields (
		id, user_id, field_name, coordinates, area_hectares, soil_type, elevation,
		slope_percentage, drainage_type, soil_nitrogen, soil_phosphorus, soil_potassium, soil_ph,
		organic_matter_percentage, soil_moisture_percentage, average_temperature, annual_rainfall,
		average_humidity, status
	) VALUES (
		:id, :user_id, :field_name, CAST(:coordinates AS JSONB), :area_hectares, :soil_type, :elevation,
		:slope_percentage, :drainage_type, :soil_nitrogen, :soil_phosphorus, :soil_potassium, :soil_ph,
		:organic_matter_percentage, :soil_moisture_percentage, :average_temperature, :annual_rainfall,
		:average_humidity, :status
	) RETURNING created_at, updated_at`
	params := map[string]any{
		"id":                        f.ID,
		"user_id":                   f.UserID,
		"field_name":                f.FieldName,
		"coordinates":               string(coords),
		"area_hectares":             f.AreaHectares,
		"soil_type":                 f.SoilType,
		"elevation":                 f.Elevation,
		"slope_percentage":          f.SlopePercentage,
		"drainage_type":             f.DrainageType,
		"soil_nitrogen":             f.SoilNitrogen,
		"soil_phosphorus":           f.SoilPhosphorus,
		"soil_potassium":            f.SoilPotassium,
		"soil_ph":                   f.SoilPH,
		"organic_matter_percentage": f.OrganicMatterPercentage,
		"soil_moisture_percentage":  f.SoilMoisturePercentage,
		"average_temperature":       f.AverageTemperature,
		"annual_rainfall":           f.AnnualRainfall,
		"average_humidity":          f.AverageHumidity,
		"status":                    f.Status,
	}
	rows, err := r.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&f.CreatedAt, &f.UpdatedAt)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return errors.New("no row returned")
}

// ListByUser returns userID's active fields, newest first.
func (r *FieldRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Field, error) {
	var rows []fieldRow
	q := `SELECT ` + fieldColumns + ` FROM fields WHERE user_id=$1 AND status='active' ORDER BY created_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, q, userID, limit); err != nil {
		return nil, err
	}
	out := make([]*entity.Field, 0, len(rows))
	for i := range rows {
		f, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// GetOwned returns the active field id owned by userID, or sql.ErrNoRows.
func (r *FieldRepo) GetOwned(ctx context.Context, id, userID string) (*entity.Field, error) {
	var row fieldRow
	q := `SELECT ` + fieldColumns + ` FROM fields WHERE id=$1 AND user_id=$2 AND status='active'`
	if err := r.db.GetContext(ctx, &row, q, id, userID); err != nil {
		return nil, err
	}
	return row.toEntity()
}

// CountActive counts userID's active fields.
func (r *FieldRepo) CountActive(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM fields WHERE user_id=$1 AND status='active'`, userID)
	return n, err
}
