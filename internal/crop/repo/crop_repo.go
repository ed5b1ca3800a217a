package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/crop/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/database"
)

// CropRepo stores crops and their irrigation and fertilizer records.
type CropRepo struct {
	db *sqlx.DB
}

func NewCropRepo(db *sqlx.DB) *CropRepo {
	return &CropRepo{db: db}
}

// EnsureTable creates crops, irrigation_records and fertilizer_records.
// fields must already exist.
func (r *CropRepo) EnsureTable(ctx context.Context) error {
	stmts := []string{`
	CREATE TABLE IF NOT EXISTS crops (
		id varchar(32) PRIMARY KEY,
		user_id varchar(32) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		field_id varchar(32) NOT NULL REFERENCES fields(id) ON DELETE CASCADE,
		crop_name varchar(100) NOT NULL,
		crop_variety varchar(100),
		sowing_date DATE NOT NULL,
		expected_harvest_date DATE,
		actual_harvest_date DATE,
		sowing_nitrogen DECIMAL(8,3),
		sowing_phosphorus DECIMAL(8,3),
		sowing_potassium DECIMAL(8,3),
		sowing_ph DECIMAL(4,2),
		sowing_temperature DECIMAL(5,2),
		sowing_humidity DECIMAL(5,2),
		sowing_rainfall DECIMAL(8,2),
		sowing_soil_moisture DECIMAL(5,2),
		total_water_used DECIMAL(10,3) NOT NULL DEFAULT 0,
		irrigation_method varchar(50) NOT NULL DEFAULT 'manual',
		total_nitrogen_applied DECIMAL(8,3) NOT NULL DEFAULT 0,
		total_phosphorus_applied DECIMAL(8,3) NOT NULL DEFAULT 0,
		total_potassium_applied DECIMAL(8,3) NOT NULL DEFAULT 0,
		current_stage varchar(50) NOT NULL DEFAULT 'seeded',
		crop_status varchar(20) NOT NULL DEFAULT 'active'
			CHECK (crop_status IN ('active', 'completed', 'failed', 'harvested')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
		`CREATE INDEX IF NOT EXISTS idx_crops_user_id ON crops (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_crops_field_id ON crops (field_id)`,
		`
	CREATE TABLE IF NOT EXISTS irrigation_records (
		id varchar(32) PRIMARY KEY,
		crop_id varchar(32) NOT NULL REFERENCES crops(id) ON DELETE CASCADE,
		irrigation_date DATE NOT NULL,
		amount_mm DECIMAL(6,2) NOT NULL CHECK (amount_mm > 0),
		irrigation_method varchar(50) NOT NULL DEFAULT 'manual',
		duration_minutes INTEGER,
		notes TEXT,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
		`
	CREATE TABLE IF NOT EXISTS fertilizer_records (
		id varchar(32) PRIMARY KEY,
		crop_id varchar(32) NOT NULL REFERENCES crops(id) ON DELETE CASCADE,
		application_date DATE NOT NULL,
		nutrient_type varchar(10) NOT NULL CHECK (nutrient_type IN ('N', 'P', 'K', 'NPK')),
		amount_kg_per_ha DECIMAL(8,3) NOT NULL CHECK (amount_kg_per_ha > 0),
		application_method varchar(50),
		fertilizer_name varchar(100),
		notes TEXT,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
		`CREATE INDEX IF NOT EXISTS idx_irrigation_crop_id ON irrigation_records (crop_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fertilizer_crop_id ON fertilizer_records (crop_id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

const cropColumns = `id, user_id, field_id, crop_name, crop_variety, sowing_date, expected_harvest_date,
	actual_harvest_date, sowing_nitrogen, sowing_phosphorus, sowing_potassium, sowing_ph,
	sowing_temperature, sowing_humidity, sowing_rainfall, sowing_soil_moisture, total_water_used,
	irrigation_method, total_nitrogen_applied, total_phosphorus_applied, total_potassium_applied,
	current_stage, crop_status, created_at, updated_at`

// Create inserts c and fills its timestamps.
func (r *CropRepo) Create(ctx context.Context, c *entity.Crop) error {
	const q = `INSERT INTO crops (
		id, user_id, field_id, crop_name, crop_variety, sowing_date, expected_harvest_date,
		sowing_nitrogen, sowing_phosphorus, sowing_potassium, sowing_ph, sowing_temperature,
		sowing_humidity, sowing_rainfall, sowing_soil_moisture, irrigation_method, current_stage, crop_status
	) VALUES (
		:id, :user_id, :field_id, :crop_name, :crop_variety, :sowing_date, :expected_harvest_date,
		:sowing_nitrogen, :sowing_phosphorus, :sowing_potassium, :sowing_ph, :sowing_temperature,
		:sowing_humidity, :sowing_rainfall, :sowing_soil_moisture, :irrigation_method, :current_stage, :crop_status
	) RETURNING created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, c)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&c.CreatedAt, &c.UpdatedAt)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return errors.New("no row returned")
}

// ListByUser returns userID's crops newest first.
func (r *CropRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Crop, error) {
	var out []*entity.Crop
	q := `SELECT ` + cropColumns + ` FROM crops WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &out, q, userID, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// CountActive counts userID's active crops.
func (r *CropRepo) CountActive(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM crops WHERE user_id=$1 AND crop_status='active'`, userID)
	return n, err
}

// lockOwned locks the crop row so concurrent records serialize their total
// updates. It returns sql.ErrNoRows when the crop is missing or not userID's.
func lockOwned(ctx context.Context, tx *sqlx.Tx, cropID, userID string) error {
	var id string
	return tx.GetContext(ctx, &id, `SELECT id FROM crops WHERE id=$1 AND user_id=$2 FOR UPDATE`, cropID, userID)
}

// AddIrrigation stores rec and adds its amount to the crop's water total in
// one transaction.
func (r *CropRepo) AddIrrigation(ctx context.Context, userID string, rec *entity.Irrigation) (*entity.Totals, error) {
	var totals entity.Totals
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockOwned(ctx, tx, rec.CropID, userID); err != nil {
			return err
		}
		const ins = `INSERT INTO irrigation_records (
			id, crop_id, irrigation_date, amount_mm, irrigation_method, duration_minutes, notes
		) VALUES (:id, :crop_id, :irrigation_date, :amount_mm, :irrigation_method, :duration_minutes, :notes)`
		if _, err := tx.NamedExecContext(ctx, ins, rec); err != nil {
			return err
		}
		const upd = `UPDATE crops SET total_water_used = total_water_used + $2, updated_at = NOW()
		WHERE id=$1
		RETURNING total_water_used, total_nitrogen_applied, total_phosphorus_applied, total_potassium_applied`
		return tx.GetContext(ctx, &totals, upd, rec.CropID, rec.AmountMM)
	})
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// AddFertilizer stores rec and adds its amount to the matching nutrient
// totals in one transaction.
func (r *CropRepo) AddFertilizer(ctx context.Context, userID string, rec *entity.Fertilizer) (*entity.Totals, error) {
	n, p, k := rec.NutrientType.Increments(rec.AmountKgPerHa)
	var totals entity.Totals
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockOwned(ctx, tx, rec.CropID, userID); err != nil {
			return err
		}
		const ins = `INSERT INTO fertilizer_records (
			id, crop_id, application_date, nutrient_type, amount_kg_per_ha, application_method, fertilizer_name, notes
		) VALUES (:id, :crop_id, :application_date, :nutrient_type, :amount_kg_per_ha, :application_method, :fertilizer_name, :notes)`
		if _, err := tx.NamedExecContext(ctx, ins, rec); err != nil {
			return err
		}
		const upd = `UPDATE crops SET
			total_nitrogen_applied = total_nitrogen_applied + $2,
			total_phosphorus_applied = total_phosphorus_applied + $3,
			total_potassium_applied = total_potassium_applied + $4,
			updated_at = NOW()
		WHERE id=$1
		RETURNING total_water_used, total_nitrogen_applied, total_phosphorus_applied, total_potassium_applied`
		return tx.GetContext(ctx, &totals, upd, rec.CropID, n, p, k)
	})
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
