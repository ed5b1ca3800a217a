// Package migrate creates the schema and loads reference data.
package migrate

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	claimrepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/repo"
	croprepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/crop/repo"
	fieldrepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field/repo"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme"
	schemerepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme/repo"
	userrepo "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/user/repo"
)

type tableEnsurer interface {
	EnsureTable(ctx context.Context) error
}

// Tables creates every table in foreign key order.
func Tables(ctx context.Context, db *sqlx.DB, logger *zap.SugaredLogger) error {
	steps := []struct {
		name string
		repo tableEnsurer
	}{
		{"users", userrepo.NewUserRepo(db)},
		{"fields", fieldrepo.NewFieldRepo(db)},
		{"crops", croprepo.NewCropRepo(db)},
		{"climate_damage_claims", claimrepo.NewRepo(db)},
		{"government_schemes", schemerepo.NewRepo(db)},
	}
	for _, s := range steps {
		if err := s.repo.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
		logger.Debugw("table ensured", "table", s.name)
	}
	return nil
}

// Schemes upserts the built-in scheme catalog.
func Schemes(ctx context.Context, db *sqlx.DB, logger *zap.SugaredLogger) (int, error) {
	return scheme.NewService(schemerepo.NewRepo(db), logger).Seed(ctx)
}
