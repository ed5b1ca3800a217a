package field

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

// Store is the field record store.
type Store interface {
	Create(ctx context.Context, f *entity.Field) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Field, error)
	GetOwned(ctx context.Context, id, userID string) (*entity.Field, error)
	CountActive(ctx context.Context, userID string) (int, error)
}

var (
	ErrNotFound  = errors.New("field not found")
	ErrForbidden = errors.New("only farmers manage fields")
)

const (
	DefaultLimit   = 50
	MaxLimit       = 200
	minCoordinates = 3
)

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

// CreateInput is the field payload.
type CreateInput struct {
	FieldName    string              `json:"field_name"`
	Coordinates  []entity.Coordinate `json:"coordinates"`
	AreaHectares float64             `json:"area_hectares"`

	SoilType        *string  `json:"soil_type,omitempty"`
	Elevation       *float64 `json:"elevation,omitempty"`
	SlopePercentage *float64 `json:"slope_percentage,omitempty"`
	DrainageType    *string  `json:"drainage_type,omitempty"`

	SoilNitrogen            *float64 `json:"soil_nitrogen,omitempty"`
	SoilPhosphorus          *float64 `json:"soil_phosphorus,omitempty"`
	SoilPotassium           *float64 `json:"soil_potassium,omitempty"`
	SoilPH                  *float64 `json:"soil_ph,omitempty"`
	OrganicMatterPercentage *float64 `json:"organic_matter_percentage,omitempty"`
	SoilMoisturePercentage  *float64 `json:"soil_moisture_percentage,omitempty"`

	AverageTemperature *float64 `json:"average_temperature,omitempty"`
	AnnualRainfall     *float64 `json:"annual_rainfall,omitempty"`
	AverageHumidity    *float64 `json:"average_humidity,omitempty"`
}

func (in CreateInput) validate() error {
	var v utilities.Violations
	v.Required("field_name", in.FieldName)
	if len(in.Coordinates) < minCoordinates {
		v.Add("coordinates", "coordinates must contain at least %d points", minCoordinates)
	}
	for i, c := range in.Coordinates {
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			v.Add(fmt.Sprintf("coordinates[%d]", i), "coordinate is out of range")
		}
	}
	if in.AreaHectares <= 0 {
		v.Add("area_hectares", "area_hectares must be greater than 0")
	}
	if in.SoilPH != nil && (*in.SoilPH < 0 || *in.SoilPH > 14) {
		v.Add("soil_ph", "soil_ph must be between 0 and 14")
	}
	percentages := []struct {
		name string
		val  *float64
	}{
		{"slope_percentage", in.SlopePercentage},
		{"organic_matter_percentage", in.OrganicMatterPercentage},
		{"soil_moisture_percentage", in.SoilMoisturePercentage},
		{"average_humidity", in.AverageHumidity},
	}
	for _, p := range percentages {
		if p.val != nil && (*p.val < 0 || *p.val > 100) {
			v.Add(p.name, "%s must be between 0 and 100", p.name)
		}
	}
	return v.Err()
}

// Create records a new active field for the farmer p.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*entity.Field, error) {
	if !p.IsFarmer() {
		return nil, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	f := &entity.Field{
		ID:                      utilities.NewSnowflakeID(),
		UserID:                  p.ID,
		FieldName:               strings.TrimSpace(in.FieldName),
		Coordinates:             in.Coordinates,
		AreaHectares:            in.AreaHectares,
		SoilType:                utilities.Trimmed(in.SoilType),
		Elevation:               in.Elevation,
		SlopePercentage:         in.SlopePercentage,
		DrainageType:            utilities.Trimmed(in.DrainageType),
		SoilNitrogen:            in.SoilNitrogen,
		SoilPhosphorus:          in.SoilPhosphorus,
		SoilPotassium:           in.SoilPotassium,
		SoilPH:                  in.SoilPH,
		OrganicMatterPercentage: in.OrganicMatterPercentage,
		SoilMoisturePercentage:  in.SoilMoisturePercentage,
		AverageTemperature:      in.AverageTemperature,
		AnnualRainfall:          in.AnnualRainfall,
		AverageHumidity:         in.AverageHumidity,
		Status:                  entity.StatusActive,
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create field: %w", err)
	}
	s.logger.Infow("field created", "field_id", f.ID, "user_id", p.ID)
	return f, nil
}

// List returns the farmer's active fields, newest first.
func (s *Service) List(ctx context.Context, p auth.Principal, limit int) ([]*entity.Field, error) {
	if !p.IsFarmer() {
		return nil, ErrForbidden
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	fields, err := s.store.ListByUser(ctx, p.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	return fields, nil
}

// Owned returns the active field id if it belongs to userID.
func (s *Service) Owned(ctx context.Context, id, userID string) (*entity.Field, error) {
	f, err := s.store.GetOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get field: %w", err)
	}
	return f, nil
}

// CountActive counts userID's active fields.
func (s *Service) CountActive(ctx context.Context, userID string) (int, error) {
	return s.store.CountActive(ctx, userID)
}
