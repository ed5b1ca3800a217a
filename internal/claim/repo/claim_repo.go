package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/database"
)

// ErrDuplicateReference is returned by Insert when the generated reference
// number collides with an existing claim.
var ErrDuplicateReference = errors.New("duplicate claim reference number")

// Repo persists claims in the climate_damage_claims table.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

// EnsureTable creates the claims table and its indexes if they do not exist.
// Claims are never deleted, so the table has no status for soft deletion.
func (r *Repo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS climate_damage_claims (
  id VARCHAR(32) PRIMARY KEY,
  user_id VARCHAR(32) NOT NULL REFERENCES users(id),
  field_id VARCHAR(32),
  crop_id VARCHAR(32),
  farmer_name VARCHAR(255) NOT NULL,
  farmer_email VARCHAR(255) NOT NULL,
  farmer_phone VARCHAR(20) NOT NULL,
  farm_location TEXT NOT NULL,
  farmer_address TEXT NOT NULL,
  incident_date DATE NOT NULL,
  damage_type VARCHAR(50) NOT NULL,
  crop_type VARCHAR(100) NOT NULL,
  affected_area_hectares DECIMAL(10,4) NOT NULL CHECK (affected_area_hectares > 0),
  estimated_loss_amount DECIMAL(12,2) NOT NULL CHECK (estimated_loss_amount > 0),
  severity_level VARCHAR(20) NOT NULL CHECK (severity_level IN ('mild', 'moderate', 'severe', 'complete')),
  damage_description TEXT NOT NULL,
  weather_condition VARCHAR(100),
  damage_duration VARCHAR(50),
  selected_scheme_id VARCHAR(50),
  scheme_name VARCHAR(255),
  claim_amount DECIMAL(12,2),
  uploaded_photos JSONB NOT NULL DEFAULT '[]'::jsonb,
  supporting_documents JSONB NOT NULL DEFAULT '[]'::jsonb,
  claim_status VARCHAR(20) NOT NULL DEFAULT 'submitted'
    CHECK (claim_status IN ('submitted', 'under_review', 'approved', 'rejected', 'completed')),
  claim_reference_number VARCHAR(50) NOT NULL,
  government_notes TEXT,
  approved_amount DECIMAL(12,2),
  approval_date DATE,
  payment_date DATE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT climate_damage_claims_reference_key UNIQUE (claim_reference_number),
  CONSTRAINT climate_damage_claims_approved_amount_check
    CHECK (claim_status <> 'approved' OR (approved_amount IS NOT NULL AND approved_amount > 0))
);
CREATE INDEX IF NOT EXISTS idx_claims_user_id ON climate_damage_claims(user_id);
CREATE INDEX IF NOT EXISTS idx_claims_status ON climate_damage_claims(claim_status);
CREATE INDEX IF NOT EXISTS idx_claims_incident_date ON climate_damage_claims(incident_date);
CREATE INDEX IF NOT EXISTS idx_claims_created_at ON climate_damage_claims(created_at DESC);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const claimColumns = `id, claim_reference_number, user_id, field_id, crop_id,
	farmer_name, farmer_email, farmer_phone, farm_location, farmer_address,
	incident_date, damage_type, crop_type, affected_area_hectares, estimated_loss_amount,
	severity_level, damage_description, weather_condition, damage_duration,
	selected_scheme_id, scheme_name, claim_amount, uploaded_photos, supporting_documents,
	claim_status, government_notes, approved_amount, approval_date, payment_date,
	created_at, updated_at`

// claimRow mirrors a table row; JSONB columns stay raw until toEntity.
type claimRow struct {
	ID                   string     `db:"id"`
	ReferenceNumber      string     `db:"claim_reference_number"`
	UserID               string     `db:"user_id"`
	FieldID              *string    `db:"field_id"`
	CropID               *string    `db:"crop_id"`
	FarmerName           string     `db:"farmer_name"`
	FarmerEmail          string     `db:"farmer_email"`
	FarmerPhone          string     `db:"farmer_phone"`
	FarmLocation         string     `db:"farm_location"`
	FarmerAddress        string     `db:"farmer_address"`
	IncidentDate         time.Time  `db:"incident_date"`
	DamageType           string     `db:"damage_type"`
	CropType             string     `db:"crop_type"`
	AffectedAreaHectares float64    `db:"affected_area_hectares"`
	EstimatedLossAmount  float64    `db:"estimated_loss_amount"`
	SeverityLevel        string     `db:"severity_level"`
	DamageDescription    string     `db:"damage_description"`
	WeatherCondition     *string    `db:"weather_condition"`
	DamageDuration       *string    `db:"damage_duration"`
	SelectedSchemeID     *string    `db:"selected_scheme_id"`
	SchemeName           *string    `db:"scheme_name"`
	ClaimAmount          *float64   `db:"claim_amount"`
	UploadedPhotos       []byte     `db:"uploaded_photos"`
	SupportingDocuments  []byte     `db:"supporting_documents"`
	ClaimStatus          string     `db:"claim_status"`
	GovernmentNotes      *string    `db:"government_notes"`
	ApprovedAmount       *float64   `db:"approved_amount"`
	ApprovalDate         *time.Time `db:"approval_date"`
	PaymentDate          *time.Time `db:"payment_date"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

func (row *claimRow) toEntity() (*entity.Claim, error) {
	photos, err := decodeAttachments(row.UploadedPhotos)
	if err != nil {
		return nil, fmt.Errorf("decode uploaded_photos: %w", err)
	}
	docs, err := decodeAttachments(row.SupportingDocuments)
	if err != nil {
		return nil, fmt.Errorf("decode supporting_documents: %w", err)
	}
	return &entity.Claim{
		ID:                   row.ID,
		ReferenceNumber:      row.ReferenceNumber,
		UserID:               row.UserID,
		FieldID:              row.FieldID,
		CropID:               row.CropID,
		FarmerName:           row.FarmerName,
		FarmerEmail:          row.FarmerEmail,
		FarmerPhone:          row.FarmerPhone,
		FarmLocation:         row.FarmLocation,
		FarmerAddress:        row.FarmerAddress,
		IncidentDate:         row.IncidentDate,
		DamageType:           row.DamageType,
		CropType:             row.CropType,
		AffectedAreaHectares: row.AffectedAreaHectares,
		EstimatedLossAmount:  row.EstimatedLossAmount,
		SeverityLevel:        entity.Severity(row.SeverityLevel),
		DamageDescription:    row.DamageDescription,
		WeatherCondition:     row.WeatherCondition,
		DamageDuration:       row.DamageDuration,
		SelectedSchemeID:     row.SelectedSchemeID,
		SchemeName:           row.SchemeName,
		ClaimAmount:          row.ClaimAmount,
		UploadedPhotos:       photos,
		SupportingDocuments:  docs,
		Status:               entity.Status(row.ClaimStatus),
		GovernmentNotes:      row.GovernmentNotes,
		ApprovedAmount:       row.ApprovedAmount,
		ApprovalDate:         row.ApprovalDate,
		PaymentDate:          row.PaymentDate,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}, nil
}

func decodeAttachments(raw []byte) ([]entity.Attachment, error) {
	out := []entity.Attachment{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.Attachment{}
	}
	return out, nil
}

// encodeAttachments returns JSON text; lib/pq would send a []byte as bytea.
func encodeAttachments(a []entity.Attachment) (string, error) {
	if a == nil {
		a = []entity.Attachment{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Insert stores a new claim and fills its server-side timestamps.
func (r *Repo) Insert(ctx context.Context, c *entity.Claim) error {
	photos, err := encodeAttachments(c.UploadedPhotos)
	if err != nil {
		return err
	}
	docs, err := encodeAttachments(c.SupportingDocuments)
	if err != nil {
		return err
	}
	const q = `INSERT INTO climate_damage_claims (
		id, claim_reference_number, user_id, field_id, crop_id,
		farmer_name, farmer_email, farmer_phone, farm_location, farmer_address,
		incident_date, damage_type, crop_type, affected_area_hectares, estimated_loss_amount,
		severity_level, damage_description, weather_condition, damage_duration,
		selected_scheme_id, scheme_name, claim_amount, uploaded_photos, supporting_documents,
		claim_status
	) VALUES (
		:id, :claim_reference_number, :user_id, :field_id, :crop_id,
		:farmer_name, :farmer_email, :farmer_phone, :farm_location, :farmer_address,
		:incident_date, :damage_type, :crop_type, :affected_area_hectares, :estimated_loss_amount,
		:severity_level, :damage_description, :weather_condition, :damage_duration,
		:selected_scheme_id, :scheme_name, :claim_amount, CAST(:uploaded_photos AS JSONB), CAST(:supporting_documents AS JSONB),
		:claim_status
	) RETURNING created_at, updated_at`
	params := map[string]any{
		"id":                     c.ID,
		"claim_reference_number": c.ReferenceNumber,
		"user_id":                c.UserID,
		"field_id":               c.FieldID,
		"crop_id":                c.CropID,
		"farmer_name":            c.FarmerName,
		"farmer_email":           c.FarmerEmail,
		"farmer_phone":           c.FarmerPhone,
		"farm_location":          c.FarmLocation,
		"farmer_address":         c.FarmerAddress,
		"incident_date":          c.IncidentDate,
		"damage_type":            c.DamageType,
		"crop_type":              c.CropType,
		"affected_area_hectares": c.AffectedAreaHectares,
		"estimated_loss_amount":  c.EstimatedLossAmount,
		"severity_level":         string(c.SeverityLevel),
		"damage_description":     c.DamageDescription,
		"weather_condition":      c.WeatherCondition,
		"damage_duration":        c.DamageDuration,
		"selected_scheme_id":     c.SelectedSchemeID,
		"scheme_name":            c.SchemeName,
		"claim_amount":           c.ClaimAmount,
		"uploaded_photos":        photos,
		"supporting_documents":   docs,
		"claim_status":           string(c.Status),
	}
	rows, err := r.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "reference") {
			return ErrDuplicateReference
		}
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

// FindByID returns the claim with id or sql.ErrNoRows.
func (r *Repo) FindByID(ctx context.Context, id string) (*entity.Claim, error) {
	var row claimRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+claimColumns+` FROM climate_damage_claims WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return row.toEntity()
}

// Transition locks the claim row, lets apply decide the update from the
// current state, and writes it, all inside one transaction. apply's error
// aborts the transaction unchanged.
func (r *Repo) Transition(ctx context.Context, id string, apply func(current *entity.Claim) (entity.StatusUpdate, error)) (*entity.Claim, error) {
	var out *entity.Claim
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var row claimRow
		if err := tx.GetContext(ctx, &row, `SELECT `+claimColumns+` FROM climate_damage_claims WHERE id=$1 FOR UPDATE`, id); err != nil {
			return err
		}
		current, err := row.toEntity()
		if err != nil {
			return err
		}
		upd, err := apply(current)
		if err != nil {
			return err
		}
		const q = `UPDATE climate_damage_claims SET
			claim_status=$2,
			government_notes=COALESCE($3, government_notes),
			approved_amount=COALESCE($4, approved_amount),
			approval_date=COALESCE($5, approval_date),
			payment_date=COALESCE($6, payment_date),
			updated_at=NOW()
		WHERE id=$1
		RETURNING ` + claimColumns
		var updated claimRow
		if err := tx.GetContext(ctx, &updated, q, id, string(upd.Status), upd.Notes, upd.ApprovedAmount, upd.ApprovalDate, upd.PaymentDate); err != nil {
			return err
		}
		out, err = updated.toEntity()
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Query lists claims matching f, newest first.
func (r *Repo) Query(ctx context.Context, f entity.Filter) ([]*entity.Claim, error) {
	where, args := filterClause(f)
	q := `SELECT ` + claimColumns + ` FROM climate_damage_claims` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	var rows []claimRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]*entity.Claim, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func filterClause(f entity.Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if len(f.Statuses) > 0 {
		ss := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			ss[i] = string(s)
		}
		add("claim_status = ANY($%d)", pq.Array(ss))
	}
	if f.DamageType != "" {
		add("damage_type = $%d", f.DamageType)
	}
	if f.Severity != "" {
		add("severity_level = $%d", string(f.Severity))
	}
	if f.From != nil {
		add("incident_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("incident_date <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Aggregate computes statistics for one owner, or for every claim when userID is empty.
func (r *Repo) Aggregate(ctx context.Context, userID string) (*entity.Statistics, error) {
	const q = `SELECT
		COUNT(*) AS total_claims,
		COUNT(*) FILTER (WHERE claim_status = 'submitted') AS submitted,
		COUNT(*) FILTER (WHERE claim_status = 'under_review') AS under_review,
		COUNT(*) FILTER (WHERE claim_status = 'approved') AS approved,
		COUNT(*) FILTER (WHERE claim_status = 'rejected') AS rejected,
		COUNT(*) FILTER (WHERE claim_status = 'completed') AS completed,
		COALESCE(SUM(estimated_loss_amount), 0) AS total_estimated_loss,
		COALESCE(SUM(approved_amount) FILTER (WHERE claim_status IN ('approved', 'completed')), 0) AS total_approved_amount,
		COALESCE(AVG(estimated_loss_amount), 0) AS average_claim_amount
	FROM climate_damage_claims
	WHERE ($1 = '' OR user_id = $1)`
	var st entity.Statistics
	if err := r.db.GetContext(ctx, &st, q, userID); err != nil {
		return nil, err
	}
	return &st, nil
}
