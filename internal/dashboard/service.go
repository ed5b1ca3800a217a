package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim"
	claimentity "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/entity"
	cropentity "github.com/ovaphlow/pitchfork/service-krishi-connect/internal/crop/entity"
)

type FieldCounter interface {
	CountActive(ctx context.Context, userID string) (int, error)
}

type CropReader interface {
	CountActive(ctx context.Context, userID string) (int, error)
	Recent(ctx context.Context, userID string, n int) ([]*cropentity.Crop, error)
}

type ClaimReader interface {
	Statistics(ctx context.Context, p auth.Principal, ownerID string) (*claimentity.Statistics, error)
	List(ctx context.Context, p auth.Principal, q claim.ListQuery) ([]*claimentity.Claim, error)
}

var ErrForbidden = errors.New("dashboard not available for this role")

const (
	recentCrops  = 5
	recentClaims = 10
)

// Service assembles read-only summaries from the other stores.
type Service struct {
	fields FieldCounter
	crops  CropReader
	claims ClaimReader
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(fields FieldCounter, crops CropReader, claims ClaimReader, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{fields: fields, crops: crops, claims: claims, logger: logger, now: time.Now}
}

type RecentCrop struct {
	ID              string    `json:"id"`
	CropName        string    `json:"crop_name"`
	CurrentStage    string    `json:"current_stage"`
	SowingDate      time.Time `json:"sowing_date"`
	DaysSinceSowing int       `json:"days_since_sowing"`
}

type FarmerSummary struct {
	TotalFields   int                     `json:"total_fields"`
	ActiveCrops   int                     `json:"active_crops"`
	PendingClaims int                     `json:"pending_claims"`
	Claims        *claimentity.Statistics `json:"claim_statistics"`
	RecentCrops   []RecentCrop            `json:"recent_crops"`
}

// Farmer summarizes p's own fields, crops and claims.
func (s *Service) Farmer(ctx context.Context, p auth.Principal) (*FarmerSummary, error) {
	if !p.IsFarmer() {
		return nil, ErrForbidden
	}
	fields, err := s.fields.CountActive(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("count fields: %w", err)
	}
	active, err := s.crops.CountActive(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("count crops: %w", err)
	}
	stats, err := s.claims.Statistics(ctx, p, p.ID)
	if err != nil {
		return nil, err
	}
	crops, err := s.crops.Recent(ctx, p.ID, recentCrops)
	if err != nil {
		return nil, fmt.Errorf("recent crops: %w", err)
	}
	now := s.now()
	recent := make([]RecentCrop, 0, len(crops))
	for _, c := range crops {
		recent = append(recent, RecentCrop{
			ID:              c.ID,
			CropName:        c.CropName,
			CurrentStage:    c.CurrentStage,
			SowingDate:      c.SowingDate,
			DaysSinceSowing: c.DaysSinceSowing(now),
		})
	}
	return &FarmerSummary{
		TotalFields:   fields,
		ActiveCrops:   active,
		PendingClaims: stats.Submitted + stats.UnderReview,
		Claims:        stats,
		RecentCrops:   recent,
	}, nil
}

type GovernmentSummary struct {
	Claims          *claimentity.Statistics `json:"claim_statistics"`
	PendingReview   int                     `json:"pending_review"`
	RecentSubmitted []*claimentity.Claim    `json:"recent_submitted_claims"`
}

// Government summarizes every claim and lists the newest ones awaiting review.
func (s *Service) Government(ctx context.Context, p auth.Principal) (*GovernmentSummary, error) {
	if !p.IsGovernment() {
		return nil, ErrForbidden
	}
	stats, err := s.claims.Statistics(ctx, p, "")
	if err != nil {
		return nil, err
	}
	recent, err := s.claims.List(ctx, p, claim.ListQuery{Status: string(claimentity.StatusSubmitted), Limit: recentClaims})
	if err != nil {
		return nil, err
	}
	return &GovernmentSummary{
		Claims:          stats,
		PendingReview:   stats.Submitted + stats.UnderReview,
		RecentSubmitted: recent,
	}, nil
}
