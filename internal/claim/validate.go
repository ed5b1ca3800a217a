package claim

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

const (
	dateLayout        = "2006-01-02"
	minDescriptionLen = 20
	maxAttachments    = 20

	// largest values DECIMAL(12,2) and DECIMAL(10,4) columns hold
	maxMoney = 9_999_999_999.99
	maxArea  = 999_999.9999
)

var phoneRx = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}$`)

type (
	FieldError      = utilities.FieldError
	ValidationError = utilities.ValidationError
)

// CreateInput is the farmer-supplied claim payload.
type CreateInput struct {
	FieldID *string `json:"field_id,omitempty"`
	CropID  *string `json:"crop_id,omitempty"`

	FarmerName    string `json:"farmer_name"`
	FarmerEmail   string `json:"farmer_email"`
	FarmerPhone   string `json:"farmer_phone"`
	FarmLocation  string `json:"farm_location"`
	FarmerAddress string `json:"farmer_address"`

	IncidentDate         string  `json:"incident_date"`
	DamageType           string  `json:"damage_type"`
	CropType             string  `json:"crop_type"`
	AffectedAreaHectares float64 `json:"affected_area_hectares"`
	EstimatedLossAmount  float64 `json:"estimated_loss_amount"`
	SeverityLevel        string  `json:"severity_level"`
	DamageDescription    string  `json:"damage_description"`

	WeatherCondition *string  `json:"weather_condition,omitempty"`
	DamageDuration   *string  `json:"damage_duration,omitempty"`
	SelectedSchemeID *string  `json:"selected_scheme_id,omitempty"`
	SchemeName       *string  `json:"scheme_name,omitempty"`
	ClaimAmount      *float64 `json:"claim_amount,omitempty"`

	UploadedPhotos      []entity.Attachment `json:"uploaded_photos,omitempty"`
	SupportingDocuments []entity.Attachment `json:"supporting_documents,omitempty"`
}

// validate checks every field and returns the normalized claim body.
// Incident dates may run one day past today's UTC date so farmers east of
// UTC can file on their local calendar day.
func (in CreateInput) validate(today time.Time) (*entity.Claim, error) {
	var v utilities.Violations
	c := &entity.Claim{
		FieldID:             utilities.Trimmed(in.FieldID),
		CropID:              utilities.Trimmed(in.CropID),
		FarmerName:          strings.TrimSpace(in.FarmerName),
		FarmerEmail:         strings.ToLower(strings.TrimSpace(in.FarmerEmail)),
		FarmerPhone:         strings.TrimSpace(in.FarmerPhone),
		FarmLocation:        strings.TrimSpace(in.FarmLocation),
		FarmerAddress:       strings.TrimSpace(in.FarmerAddress),
		DamageType:          strings.ToLower(strings.TrimSpace(in.DamageType)),
		CropType:            strings.TrimSpace(in.CropType),
		DamageDescription:   strings.TrimSpace(in.DamageDescription),
		WeatherCondition:    utilities.Trimmed(in.WeatherCondition),
		DamageDuration:      utilities.Trimmed(in.DamageDuration),
		SelectedSchemeID:    utilities.Trimmed(in.SelectedSchemeID),
		SchemeName:          utilities.Trimmed(in.SchemeName),
		ClaimAmount:         in.ClaimAmount,
		UploadedPhotos:      in.UploadedPhotos,
		SupportingDocuments: in.SupportingDocuments,
	}

	v.Required("farmer_name", c.FarmerName)
	v.Required("farmer_email", c.FarmerEmail)
	v.Required("farmer_phone", c.FarmerPhone)
	v.Required("farm_location", c.FarmLocation)
	v.Required("farmer_address", c.FarmerAddress)
	v.Required("damage_type", c.DamageType)
	v.Required("crop_type", c.CropType)

	// column widths of climate_damage_claims
	v.MaxLen("farmer_name", c.FarmerName, 255)
	v.MaxLen("farmer_email", c.FarmerEmail, 255)
	v.MaxLen("damage_type", c.DamageType, 50)
	v.MaxLen("crop_type", c.CropType, 100)
	v.MaxLen("field_id", deref(c.FieldID), 32)
	v.MaxLen("crop_id", deref(c.CropID), 32)
	v.MaxLen("weather_condition", deref(c.WeatherCondition), 100)
	v.MaxLen("damage_duration", deref(c.DamageDuration), 50)
	v.MaxLen("selected_scheme_id", deref(c.SelectedSchemeID), 50)
	v.MaxLen("scheme_name", deref(c.SchemeName), 255)

	if c.FarmerEmail != "" {
		if _, err := mail.ParseAddress(c.FarmerEmail); err != nil {
			v.Add("farmer_email", "farmer_email is not a valid address")
		}
	}
	if c.FarmerPhone != "" && !phoneRx.MatchString(c.FarmerPhone) {
		v.Add("farmer_phone", "farmer_phone is not a valid phone number")
	}

	if t := v.Date("incident_date", in.IncidentDate); !t.IsZero() {
		if t.After(today.AddDate(0, 0, 1)) {
			v.Add("incident_date", "incident_date cannot be in the future")
		} else {
			c.IncidentDate = t
		}
	}

	positiveUpTo(&v, "affected_area_hectares", in.AffectedAreaHectares, maxArea)
	positiveUpTo(&v, "estimated_loss_amount", in.EstimatedLossAmount, maxMoney)
	c.AffectedAreaHectares = in.AffectedAreaHectares
	c.EstimatedLossAmount = in.EstimatedLossAmount

	sev := entity.Severity(strings.ToLower(strings.TrimSpace(in.SeverityLevel)))
	if !sev.Valid() {
		v.Add("severity_level", "severity_level must be one of mild, moderate, severe, complete")
	}
	c.SeverityLevel = sev

	if n := len([]rune(c.DamageDescription)); n < minDescriptionLen {
		v.Add("damage_description", "damage_description must be at least %d characters", minDescriptionLen)
	}
	if in.ClaimAmount != nil {
		positiveUpTo(&v, "claim_amount", *in.ClaimAmount, maxMoney)
	}
	checkAttachments(&v, "uploaded_photos", in.UploadedPhotos)
	checkAttachments(&v, "supporting_documents", in.SupportingDocuments)

	if err := v.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func positiveUpTo(v *utilities.Violations, field string, n, ceiling float64) {
	switch {
	case n <= 0:
		v.Add(field, "%s must be greater than 0", field)
	case n > ceiling:
		v.Add(field, "%s must not exceed %s", field, strconv.FormatFloat(ceiling, 'f', -1, 64))
	}
}

func checkAttachments(v *utilities.Violations, field string, list []entity.Attachment) {
	if len(list) > maxAttachments {
		v.Add(field, "at most %d attachments are allowed", maxAttachments)
		return
	}
	for i, a := range list {
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.URL) == "" {
			v.Add(fmt.Sprintf("%s[%d]", field, i), "attachment name and url are required")
		}
		if a.SizeBytes < 0 {
			v.Add(fmt.Sprintf("%s[%d]", field, i), "attachment size cannot be negative")
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseDate parses an optional YYYY-MM-DD query value.
func parseDate(field, raw string, v *utilities.Violations) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		v.Add(field, "%s must be formatted YYYY-MM-DD", field)
		return nil
	}
	return &t
}
