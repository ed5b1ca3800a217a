package entity

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDeleted  = "deleted"
)

// Coordinate is one vertex of a field boundary.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Field is a farm plot owned by one farmer.
type Field struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	FieldName    string       `json:"field_name"`
	Coordinates  []Coordinate `json:"coordinates"`
	AreaHectares float64      `json:"area_hectares"`

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

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
