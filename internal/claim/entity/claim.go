package entity

import (
	"time"
)

// Status is the lifecycle state of a claim.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusCompleted   Status = "completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusCompleted}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// transitions is the legal successor set of each status.
// rejected and completed are terminal.
var transitions = map[Status][]Status{
	StatusSubmitted:   {StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusCompleted},
}

// CanTransition reports whether a claim in status from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

// Severity is the assessed damage level.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityComplete Severity = "complete"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityComplete:
		return true
	}
	return false
}

// ProcessingTime is the expected turnaround communicated at submission.
func (s Severity) ProcessingTime() string {
	switch s {
	case SeveritySevere, SeverityComplete:
		return "5-7 business days"
	case SeverityModerate:
		return "7-10 business days"
	default:
		return "10-15 business days"
	}
}

// Attachment describes an uploaded photo or supporting document.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// Claim is a climate-damage insurance claim.
type Claim struct {
	ID              string  `json:"id"`
	ReferenceNumber string  `json:"claim_reference_number"`
	UserID          string  `json:"user_id"`
	FieldID         *string `json:"field_id,omitempty"`
	CropID          *string `json:"crop_id,omitempty"`

	FarmerName    string `json:"farmer_name"`
	FarmerEmail   string `json:"farmer_email"`
	FarmerPhone   string `json:"farmer_phone"`
	FarmLocation  string `json:"farm_location"`
	FarmerAddress string `json:"farmer_address"`

	IncidentDate         time.Time `json:"incident_date"`
	DamageType           string    `json:"damage_type"`
	CropType             string    `json:"crop_type"`
	AffectedAreaHectares float64   `json:"affected_area_hectares"`
	EstimatedLossAmount  float64   `json:"estimated_loss_amount"`
	SeverityLevel        Severity  `json:"severity_level"`
	DamageDescription    string    `json:"damage_description"`

	WeatherCondition *string `json:"weather_condition,omitempty"`
	DamageDuration   *string `json:"damage_duration,omitempty"`

	SelectedSchemeID *string  `json:"selected_scheme_id,omitempty"`
	SchemeName       *string  `json:"scheme_name,omitempty"`
	ClaimAmount      *float64 `json:"claim_amount,omitempty"`

	UploadedPhotos      []Attachment `json:"uploaded_photos"`
	SupportingDocuments []Attachment `json:"supporting_documents"`

	Status          Status     `json:"claim_status"`
	GovernmentNotes *string    `json:"government_notes"`
	ApprovedAmount  *float64   `json:"approved_amount"`
	ApprovalDate    *time.Time `json:"approval_date"`
	PaymentDate     *time.Time `json:"payment_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusUpdate is a partial update applied on a status transition. Nil
// fields are left untouched.
type StatusUpdate struct {
	Status         Status
	Notes          *string
	ApprovedAmount *float64
	ApprovalDate   *time.Time
	PaymentDate    *time.Time
}

// Filter narrows claim listings. Zero values mean "no restriction".
type Filter struct {
	UserID     string
	Statuses   []Status
	DamageType string
	Severity   Severity
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Statistics is the aggregate view over a set of claims.
type Statistics struct {
	TotalClaims         int     `json:"total_claims" db:"total_claims"`
	Submitted           int     `json:"submitted" db:"submitted"`
	UnderReview         int     `json:"under_review" db:"under_review"`
	Approved            int     `json:"approved" db:"approved"`
	Rejected            int     `json:"rejected" db:"rejected"`
	Completed           int     `json:"completed" db:"completed"`
	TotalEstimatedLoss  float64 `json:"total_estimated_loss" db:"total_estimated_loss"`
	TotalApprovedAmount float64 `json:"total_approved_amount" db:"total_approved_amount"`
	AverageClaimAmount  float64 `json:"average_claim_amount" db:"average_claim_amount"`
}
