package entity

import "time"

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusHarvested = "harvested"

	StageSeeded = "seeded"
)

// Crop is one sowing-to-harvest cycle on a field. The running totals are
// only changed together with the record that justifies them.
type Crop struct {
	ID                  string     `json:"id" db:"id"`
	UserID              string     `json:"user_id" db:"user_id"`
	FieldID             string     `json:"field_id" db:"field_id"`
	CropName            string     `json:"crop_name" db:"crop_name"`
	CropVariety         *string    `json:"crop_variety,omitempty" db:"crop_variety"`
	SowingDate          time.Time  `json:"sowing_date" db:"sowing_date"`
	ExpectedHarvestDate *time.Time `json:"expected_harvest_date,omitempty" db:"expected_harvest_date"`
	ActualHarvestDate   *time.Time `json:"actual_harvest_date,omitempty" db:"actual_harvest_date"`

	SowingNitrogen     *float64 `json:"sowing_nitrogen,omitempty" db:"sowing_nitrogen"`
	SowingPhosphorus   *float64 `json:"sowing_phosphorus,omitempty" db:"sowing_phosphorus"`
	SowingPotassium    *float64 `json:"sowing_potassium,omitempty" db:"sowing_potassium"`
	SowingPH           *float64 `json:"sowing_ph,omitempty" db:"sowing_ph"`
	SowingTemperature  *float64 `json:"sowing_temperature,omitempty" db:"sowing_temperature"`
	SowingHumidity     *float64 `json:"sowing_humidity,omitempty" db:"sowing_humidity"`
	SowingRainfall     *float64 `json:"sowing_rainfall,omitempty" db:"sowing_rainfall"`
	SowingSoilMoisture *float64 `json:"sowing_soil_moisture,omitempty" db:"sowing_soil_moisture"`

	TotalWaterUsed         float64 `json:"total_water_used" db:"total_water_used"`
	IrrigationMethod       string  `json:"irrigation_method" db:"irrigation_method"`
	TotalNitrogenApplied   float64 `json:"total_nitrogen_applied" db:"total_nitrogen_applied"`
	TotalPhosphorusApplied float64 `json:"total_phosphorus_applied" db:"total_phosphorus_applied"`
	TotalPotassiumApplied  float64 `json:"total_potassium_applied" db:"total_potassium_applied"`

	CurrentStage string    `json:"current_stage" db:"current_stage"`
	Status       string    `json:"crop_status" db:"crop_status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DaysSinceSowing counts whole days from sowing to now.
func (c *Crop) DaysSinceSowing(now time.Time) int {
	d := int(now.Sub(c.SowingDate).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Irrigation is one watering event.
type Irrigation struct {
	ID               string    `json:"id" db:"id"`
	CropID           string    `json:"crop_id" db:"crop_id"`
	IrrigationDate   time.Time `json:"irrigation_date" db:"irrigation_date"`
	AmountMM         float64   `json:"amount_mm" db:"amount_mm"`
	IrrigationMethod string    `json:"irrigation_method" db:"irrigation_method"`
	DurationMinutes  *int      `json:"duration_minutes,omitempty" db:"duration_minutes"`
	Notes            *string   `json:"notes,omitempty" db:"notes"`
	RecordedAt       time.Time `json:"recorded_at" db:"recorded_at"`
}

// Nutrient is the fertilizer nutrient class.
type Nutrient string

const (
	NutrientN   Nutrient = "N"
	NutrientP   Nutrient = "P"
	NutrientK   Nutrient = "K"
	NutrientNPK Nutrient = "NPK"
)

func (n Nutrient) Valid() bool {
	switch n {
	case NutrientN, NutrientP, NutrientK, NutrientNPK:
		return true
	}
	return false
}

// Increments returns the amounts added to the nitrogen, phosphorus and
// potassium totals when amount kg/ha of n is applied.
func (n Nutrient) Increments(amount float64) (nitrogen, phosphorus, potassium float64) {
	switch n {
	case NutrientN:
		return amount, 0, 0
	case NutrientP:
		return 0, amount, 0
	case NutrientK:
		return 0, 0, amount
	case NutrientNPK:
		return amount, amount, amount
	}
	return 0, 0, 0
}

// Fertilizer is one fertilizer application.
type Fertilizer struct {
	ID                string    `json:"id" db:"id"`
	CropID            string    `json:"crop_id" db:"crop_id"`
	ApplicationDate   time.Time `json:"application_date" db:"application_date"`
	NutrientType      Nutrient  `json:"nutrient_type" db:"nutrient_type"`
	AmountKgPerHa     float64   `json:"amount_kg_per_ha" db:"amount_kg_per_ha"`
	ApplicationMethod *string   `json:"application_method,omitempty" db:"application_method"`
	FertilizerName    *string   `json:"fertilizer_name,omitempty" db:"fertilizer_name"`
	Notes             *string   `json:"notes,omitempty" db:"notes"`
	RecordedAt        time.Time `json:"recorded_at" db:"recorded_at"`
}

// Totals are a crop's running totals after a record was added.
type Totals struct {
	TotalWaterUsed         float64 `json:"total_water_used" db:"total_water_used"`
	TotalNitrogenApplied   float64 `json:"total_nitrogen_applied" db:"total_nitrogen_applied"`
	TotalPhosphorusApplied float64 `json:"total_phosphorus_applied" db:"total_phosphorus_applied"`
	TotalPotassiumApplied  float64 `json:"total_potassium_applied" db:"total_potassium_applied"`
}
