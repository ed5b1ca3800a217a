package entity

import "time"

// Scheme is a government crop insurance scheme a claim can be filed under.
type Scheme struct {
	ID                  string     `json:"id" yaml:"-"`
	Code                string     `json:"scheme_code" yaml:"code"`
	Name                string     `json:"scheme_name" yaml:"name"`
	Description         string     `json:"description" yaml:"description"`
	MaxClaimAmount      *float64   `json:"max_claim_amount,omitempty" yaml:"max_claim_amount"`
	EligibilityCriteria string     `json:"eligibility_criteria,omitempty" yaml:"eligibility_criteria"`
	ApplicationProcess  string     `json:"application_process,omitempty" yaml:"application_process"`
	RequiredDocuments   []string   `json:"required_documents" yaml:"required_documents"`
	IsActive            bool       `json:"is_active" yaml:"-"`
	StartDate           *time.Time `json:"start_date,omitempty" yaml:"-"`
	EndDate             *time.Time `json:"end_date,omitempty" yaml:"-"`
	CreatedAt           time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt           time.Time  `json:"updated_at" yaml:"-"`
}
