package scheme

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

//go:embed schemes.yaml
var catalogYAML []byte

// Store is the scheme catalog store.
type Store interface {
	Upsert(ctx context.Context, schemes []*entity.Scheme) error
	List(ctx context.Context, search string) ([]*entity.Scheme, error)
}

// Catalog parses the built-in scheme catalog.
func Catalog() ([]*entity.Scheme, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(raw []byte) ([]*entity.Scheme, error) {
	var doc struct {
		Schemes []*entity.Scheme `yaml:"schemes"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse scheme catalog: %w", err)
	}
	seen := map[string]bool{}
	for i, s := range doc.Schemes {
		s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
		if s.Code == "" || strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("scheme catalog entry %d: code and name are required", i)
		}
		if seen[s.Code] {
			return nil, fmt.Errorf("scheme catalog: duplicate code %s", s.Code)
		}
		seen[s.Code] = true
		if s.RequiredDocuments == nil {
			s.RequiredDocuments = []string{}
		}
		s.IsActive = true
	}
	return doc.Schemes, nil
}

type Service struct {
	store  Store
	logger *zap.SugaredLogger
}

func NewService(store Store, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, logger: logger}
}

// Seed writes the built-in catalog to the store and returns how many
// schemes it holds.
func (s *Service) Seed(ctx context.Context) (int, error) {
	schemes, err := Catalog()
	if err != nil {
		return 0, err
	}
	for _, sc := range schemes {
		sc.ID = utilities.NewSnowflakeID()
	}
	if err := s.store.Upsert(ctx, schemes); err != nil {
		return 0, fmt.Errorf("seed schemes: %w", err)
	}
	s.logger.Infow("scheme catalog seeded", "count", len(schemes))
	return len(schemes), nil
}

// List returns active schemes matching search.
func (s *Service) List(ctx context.Context, search string) ([]*entity.Scheme, error) {
	schemes, err := s.store.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	return schemes, nil
}
