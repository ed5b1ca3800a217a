package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/database"
)

// Repo stores the scheme catalog in PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// EnsureTable ensures the government_schemes table and its index exist.
func (r *Repo) EnsureTable(ctx context.Context) error {
	var tblName sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT to_regclass('public.government_schemes')").Scan(&tblName); err != nil {
		return err
	}
	if !tblName.Valid {
		createTable := `CREATE TABLE government_schemes (
			id varchar(32) PRIMARY KEY,
			scheme_code varchar(50) NOT NULL UNIQUE,
			scheme_name varchar(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			max_claim_amount DECIMAL(12,2),
			eligibility_criteria TEXT NOT NULL DEFAULT '',
			application_process TEXT NOT NULL DEFAULT '',
			required_documents jsonb NOT NULL DEFAULT '[]'::jsonb,
			is_active boolean NOT NULL DEFAULT TRUE,
			start_date DATE,
			end_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
		if _, err := r.db.ExecContext(ctx, createTable); err != nil {
			return err
		}
	}

	var idxName sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT to_regclass('public.idx_government_schemes_active')").Scan(&idxName); err != nil {
		return err
	}
	if !idxName.Valid {
		if _, err := r.db.ExecContext(ctx, `CREATE INDEX idx_government_schemes_active ON government_schemes (is_active)`); err != nil {
			return err
		}
	}
	return nil
}

type schemeRow struct {
	ID                  string     `db:"id"`
	Code                string     `db:"scheme_code"`
	Name                string     `db:"scheme_name"`
	Description         string     `db:"description"`
	MaxClaimAmount      *float64   `db:"max_claim_amount"`
	EligibilityCriteria string     `db:"eligibility_criteria"`
	ApplicationProcess  string     `db:"application_process"`
	RequiredDocuments   []byte     `db:"required_documents"`
	IsActive            bool       `db:"is_active"`
	StartDate           *time.Time `db:"start_date"`
	EndDate             *time.Time `db:"end_date"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (row *schemeRow) toEntity() (*entity.Scheme, error) {
	docs := []string{}
	if len(row.RequiredDocuments) > 0 {
		if err := json.Unmarshal(row.RequiredDocuments, &docs); err != nil {
			return nil, err
		}
	}
	return &entity.Scheme{
		ID:                  row.ID,
		Code:                row.Code,
		Name:                row.Name,
		Description:         row.Description,
		MaxClaimAmount:      row.MaxClaimAmount,
		EligibilityCriteria: row.EligibilityCriteria,
		ApplicationProcess:  row.ApplicationProcess,
		RequiredDocuments:   docs,
		IsActive:            row.IsActive,
		StartDate:           row.StartDate,
		EndDate:             row.EndDate,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}, nil
}

// Upsert inserts or refreshes every scheme keyed on scheme_code in one
// transaction. Existing rows keep their id.
func (r *Repo) Upsert(ctx context.Context, schemes []*entity.Scheme) error {
	const q = `INSERT INTO government_schemes (
		id, scheme_code, scheme_name, description, max_claim_amount,
		eligibility_criteria, application_process, required_documents, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, CAST($8 AS JSONB), TRUE)
	ON CONFLICT (scheme_code) DO UPDATE SET
		scheme_name = EXCLUDED.scheme_name,
		description = EXCLUDED.description,
		max_claim_amount = EXCLUDED.max_claim_amount,
		eligibility_criteria = EXCLUDED.eligibility_criteria,
		application_process = EXCLUDED.application_process,
		required_documents = EXCLUDED.required_documents,
		is_active = TRUE,
		updated_at = NOW()`
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, s := range schemes {
			docs, err := json.Marshal(s.RequiredDocuments)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, q, s.ID, s.Code, s.Name, s.Description, s.MaxClaimAmount,
				s.EligibilityCriteria, s.ApplicationProcess, string(docs)); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns active schemes whose name or description contains search,
// ignoring case. An empty search returns all of them.
func (r *Repo) List(ctx context.Context, search string) ([]*entity.Scheme, error) {
	const q = `SELECT id, scheme_code, scheme_name, description, max_claim_amount, eligibility_criteria,
		application_process, required_documents, is_active, start_date, end_date, created_at, updated_at
	FROM government_schemes
	WHERE is_active AND ($1 = '' OR scheme_name ILIKE $2 ESCAPE '\' OR description ILIKE $2 ESCAPE '\')
	ORDER BY scheme_code`
	var rows []schemeRow
	if err := r.db.SelectContext(ctx, &rows, q, search, likePattern(search)); err != nil {
		return nil, err
	}
	out := make([]*entity.Scheme, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
