package crop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/crop/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field"
	fieldentity "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/field/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

// Store is the crop record store. AddIrrigation and AddFertilizer must
// write the record and the running totals atomically, and report
// sql.ErrNoRows when the crop does not belong to userID.
type Store interface {
	Create(ctx context.Context, c *entity.Crop) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Crop, error)
	CountActive(ctx context.Context, userID string) (int, error)
	AddIrrigation(ctx context.Context, userID string, rec *entity.Irrigation) (*entity.Totals, error)
	AddFertilizer(ctx context.Context, userID string, rec *entity.Fertilizer) (*entity.Totals, error)
}

// Fields resolves a farmer's active field.
type Fields interface {
	Owned(ctx context.Context, id, userID string) (*fieldentity.Field, error)
}

var (
	ErrNotFound      = errors.New("crop not found")
	ErrFieldNotFound = errors.New("field not found")
	ErrForbidden     = errors.New("only farmers manage crops")
)

const (
	DefaultLimit         = 50
	MaxLimit             = 200
	defaultIrrigationWay = "manual"
)

type Service struct {
	store  Store
	fields Fields
	logger *zap.SugaredLogger
}

func NewService(store Store, fields Fields, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, fields: fields, logger: logger}
}

// CreateInput starts a crop cycle on a field.
type CreateInput struct {
	FieldID             string  `json:"field_id"`
	CropName            string  `json:"crop_name"`
	CropVariety         *string `json:"crop_variety,omitempty"`
	SowingDate          string  `json:"sowing_date"`
	ExpectedHarvestDate *string `json:"expected_harvest_date,omitempty"`
	IrrigationMethod    *string `json:"irrigation_method,omitempty"`

	SowingNitrogen     *float64 `json:"sowing_nitrogen,omitempty"`
	SowingPhosphorus   *float64 `json:"sowing_phosphorus,omitempty"`
	SowingPotassium    *float64 `json:"sowing_potassium,omitempty"`
	SowingPH           *float64 `json:"sowing_ph,omitempty"`
	SowingTemperature  *float64 `json:"sowing_temperature,omitempty"`
	SowingHumidity     *float64 `json:"sowing_humidity,omitempty"`
	SowingRainfall     *float64 `json:"sowing_rainfall,omitempty"`
	SowingSoilMoisture *float64 `json:"sowing_soil_moisture,omitempty"`
}

// Create validates in and starts a crop on one of p's active fields.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*entity.Crop, error) {
	if !p.IsFarmer() {
		return nil, ErrForbidden
	}
	var v utilities.Violations
	v.Required("field_id", in.FieldID)
	v.Required("crop_name", in.CropName)
	sowing := v.Date("sowing_date", in.SowingDate)
	c := &entity.Crop{
		ID:                 utilities.NewSnowflakeID(),
		UserID:             p.ID,
		FieldID:            strings.TrimSpace(in.FieldID),
		CropName:           strings.TrimSpace(in.CropName),
		CropVariety:        utilities.Trimmed(in.CropVariety),
		SowingDate:         sowing,
		SowingNitrogen:     in.SowingNitrogen,
		SowingPhosphorus:   in.SowingPhosphorus,
		SowingPotassium:    in.SowingPotassium,
		SowingPH:           in.SowingPH,
		SowingTemperature:  in.SowingTemperature,
		SowingHumidity:     in.SowingHumidity,
		SowingRainfall:     in.SowingRainfall,
		SowingSoilMoisture: in.SowingSoilMoisture,
		IrrigationMethod:   defaultIrrigationWay,
		CurrentStage:       entity.StageSeeded,
		Status:             entity.StatusActive,
	}
	if m := utilities.Trimmed(in.IrrigationMethod); m != nil {
		c.IrrigationMethod = *m
	}
	if raw := utilities.Trimmed(in.ExpectedHarvestDate); raw != nil {
		harvest := v.Date("expected_harvest_date", *raw)
		if !harvest.IsZero() {
			if !sowing.IsZero() && harvest.Before(sowing) {
				v.Add("expected_harvest_date", "expected_harvest_date cannot be before sowing_date")
			}
			c.ExpectedHarvestDate = &harvest
		}
	}
	if in.SowingPH != nil && (*in.SowingPH < 0 || *in.SowingPH > 14) {
		v.Add("sowing_ph", "sowing_ph must be between 0 and 14")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := s.fields.Owned(ctx, c.FieldID, p.ID); err != nil {
		if errors.Is(err, field.ErrNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create crop: %w", err)
	}
	s.logger.Infow("crop created", "crop_id", c.ID, "field_id", c.FieldID, "user_id", p.ID)
	return c, nil
}

// List returns p's crops newest first.
func (s *Service) List(ctx context.Context, p auth.Principal, limit int) ([]*entity.Crop, error) {
	if !p.IsFarmer() {
		return nil, ErrForbidden
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	crops, err := s.store.ListByUser(ctx, p.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list crops: %w", err)
	}
	return crops, nil
}

// Recent returns userID's n newest crops.
func (s *Service) Recent(ctx context.Context, userID string, n int) ([]*entity.Crop, error) {
	return s.store.ListByUser(ctx, userID, n)
}

func (s *Service) CountActive(ctx context.Context, userID string) (int, error) {
	return s.store.CountActive(ctx, userID)
}

// IrrigationInput is one watering event.
type IrrigationInput struct {
	IrrigationDate   string  `json:"irrigation_date"`
	AmountMM         float64 `json:"amount_mm"`
	IrrigationMethod *string `json:"irrigation_method,omitempty"`
	DurationMinutes  *int    `json:"duration_minutes,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

// AddIrrigation records watering on p's crop and returns the updated totals.
func (s *Service) AddIrrigation(ctx context.Context, p auth.Principal, cropID string, in IrrigationInput) (*entity.Irrigation, *entity.Totals, error) {
	if !p.IsFarmer() {
		return nil, nil, ErrForbidden
	}
	var v utilities.Violations
	rec := &entity.Irrigation{
		ID:               utilities.NewSnowflakeID(),
		CropID:           cropID,
		IrrigationDate:   v.Date("irrigation_date", in.IrrigationDate),
		AmountMM:         in.AmountMM,
		IrrigationMethod: defaultIrrigationWay,
		DurationMinutes:  in.DurationMinutes,
		Notes:            utilities.Trimmed(in.Notes),
	}
	if in.AmountMM <= 0 {
		v.Add("amount_mm", "amount_mm must be greater than 0")
	}
	if in.DurationMinutes != nil && *in.DurationMinutes < 0 {
		v.Add("duration_minutes", "duration_minutes cannot be negative")
	}
	if m := utilities.Trimmed(in.IrrigationMethod); m != nil {
		rec.IrrigationMethod = *m
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}
	totals, err := s.store.AddIrrigation(ctx, p.ID, rec)
	if err != nil {
		return nil, nil, s.recordErr("add irrigation", err)
	}
	s.logger.Infow("irrigation recorded", "crop_id", cropID, "amount_mm", rec.AmountMM)
	return rec, totals, nil
}

// FertilizerInput is one fertilizer application.
type FertilizerInput struct {
	ApplicationDate   string  `json:"application_date"`
	NutrientType      string  `json:"nutrient_type"`
	AmountKgPerHa     float64 `json:"amount_kg_per_ha"`
	ApplicationMethod *string `json:"application_method,omitempty"`
	FertilizerName    *string `json:"fertilizer_name,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// AddFertilizer records an application on p's crop and returns the updated totals.
func (s *Service) AddFertilizer(ctx context.Context, p auth.Principal, cropID string, in FertilizerInput) (*entity.Fertilizer, *entity.Totals, error) {
	if !p.IsFarmer() {
		return nil, nil, ErrForbidden
	}
	var v utilities.Violations
	rec := &entity.Fertilizer{
		ID:                utilities.NewSnowflakeID(),
		CropID:            cropID,
		ApplicationDate:   v.Date("application_date", in.ApplicationDate),
		NutrientType:      entity.Nutrient(strings.ToUpper(strings.TrimSpace(in.NutrientType))),
		AmountKgPerHa:     in.AmountKgPerHa,
		ApplicationMethod: utilities.Trimmed(in.ApplicationMethod),
		FertilizerName:    utilities.Trimmed(in.FertilizerName),
		Notes:             utilities.Trimmed(in.Notes),
	}
	if !rec.NutrientType.Valid() {
		v.Add("nutrient_type", "nutrient_type must be one of N, P, K, NPK")
	}
	if in.AmountKgPerHa <= 0 {
		v.Add("amount_kg_per_ha", "amount_kg_per_ha must be greater than 0")
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}
	totals, err := s.store.AddFertilizer(ctx, p.ID, rec)
	if err != nil {
		return nil, nil, s.recordErr("add fertilizer", err)
	}
	s.logger.Infow("fertilizer recorded", "crop_id", cropID, "nutrient", rec.NutrientType, "amount", rec.AmountKgPerHa)
	return rec, totals, nil
}

func (s *Service) recordErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
