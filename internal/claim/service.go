package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/repo"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

// Store is the claim record store.
type Store interface {
	Insert(ctx context.Context, c *entity.Claim) error
	FindByID(ctx context.Context, id string) (*entity.Claim, error)
	Transition(ctx context.Context, id string, apply func(current *entity.Claim) (entity.StatusUpdate, error)) (*entity.Claim, error)
	Query(ctx context.Context, f entity.Filter) ([]*entity.Claim, error)
	Aggregate(ctx context.Context, userID string) (*entity.Statistics, error)
}

var (
	ErrNotFound               = errors.New("claim not found")
	ErrForbidden              = errors.New("operation not permitted for this role")
	ErrInvalidStatus          = errors.New("invalid claim status")
	ErrApprovedAmountRequired = errors.New("approved amount is required when approving a claim")
	ErrInvalidTransition      = errors.New("invalid status transition")
)

// TransitionError names the rejected transition.
type TransitionError struct {
	From, To entity.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move claim from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

const (
	DefaultLimit      = 50
	MaxLimit          = 200
	maxReferenceTries = 5
)

// Service is the claim lifecycle manager. Every claim write goes through it.
type Service struct {
	store  Store
	logger *zap.SugaredLogger
	now    func() time.Time
	newRef func(time.Time) string
}

func NewService(store Store, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, logger: logger, now: time.Now, newRef: utilities.NewClaimReference}
}

// Receipt is returned on submission.
type Receipt struct {
	*entity.Claim
	EstimatedProcessingTime string `json:"estimated_processing_time"`
}

// Create validates and stores a new claim owned by the farmer p.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Receipt, error) {
	if !p.IsFarmer() {
		return nil, ErrForbidden
	}
	now := s.now()
	c, err := in.validate(dateOf(now))
	if err != nil {
		return nil, err
	}
	c.ID = utilities.NewSnowflakeID()
	c.UserID = p.ID
	c.Status = entity.StatusSubmitted

	for attempt := 1; ; attempt++ {
		c.ReferenceNumber = s.newRef(now)
		err = s.store.Insert(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, repo.ErrDuplicateReference) || attempt >= maxReferenceTries {
			return nil, fmt.Errorf("insert claim: %w", err)
		}
		s.logger.Warnw("claim reference collision, retrying", "reference", c.ReferenceNumber, "attempt", attempt)
	}
	s.logger.Infow("claim submitted", "claim_id", c.ID, "reference", c.ReferenceNumber, "user_id", p.ID)
	return &Receipt{Claim: c, EstimatedProcessingTime: c.SeverityLevel.ProcessingTime()}, nil
}

// StatusInput is the government decision payload. Absent fields are left untouched.
type StatusInput struct {
	Status         string   `json:"status"`
	Notes          *string  `json:"notes,omitempty"`
	ApprovedAmount *float64 `json:"approved_amount,omitempty"`
}

// UpdateStatus moves a claim along the lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, id string, in StatusInput) (*entity.Claim, error) {
	if !p.IsGovernment() {
		return nil, ErrForbidden
	}
	to := entity.Status(strings.ToLower(strings.TrimSpace(in.Status)))
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}
	if to == entity.StatusApproved && (in.ApprovedAmount == nil || *in.ApprovedAmount <= 0) {
		return nil, ErrApprovedAmountRequired
	}
	var v utilities.Violations
	switch {
	case to != entity.StatusApproved && in.ApprovedAmount != nil:
		v.Add("approved_amount", "approved_amount may only be set when approving a claim")
	case in.ApprovedAmount != nil && *in.ApprovedAmount > maxMoney:
		v.Add("approved_amount", "approved_amount must not exceed %s", strconv.FormatFloat(maxMoney, 'f', -1, 64))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	today := dateOf(s.now())
	c, err := s.store.Transition(ctx, id, func(cur *entity.Claim) (entity.StatusUpdate, error) {
		if !entity.CanTransition(cur.Status, to) {
			return entity.StatusUpdate{}, &TransitionError{From: cur.Status, To: to}
		}
		upd := entity.StatusUpdate{Status: to, Notes: utilities.Trimmed(in.Notes), ApprovedAmount: in.ApprovedAmount}
		switch to {
		case entity.StatusApproved:
			upd.ApprovalDate = &today
		case entity.StatusCompleted:
			upd.PaymentDate = &today
		}
		return upd, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("update claim status: %w", err)
	}
	s.logger.Infow("claim status updated", "claim_id", id, "status", to, "by", p.ID)
	return c, nil
}

// Get returns a claim visible to p. Farmers only see their own claims; any
// other claim is reported as not found.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*entity.Claim, error) {
	if !p.IsFarmer() && !p.IsGovernment() {
		return nil, ErrForbidden
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find claim: %w", err)
	}
	if p.IsFarmer() && c.UserID != p.ID {
		return nil, ErrNotFound
	}
	return c, nil
}

// ListQuery holds raw listing filters, typically taken from a query string.
type ListQuery struct {
	Status     string
	DamageType string
	Severity   string
	From       string
	To         string
	UserID     string
	Limit      int
	Offset     int
}

// List returns claims newest first. Farmers are always scoped to their own claims.
func (s *Service) List(ctx context.Context, p auth.Principal, q ListQuery) ([]*entity.Claim, error) {
	f, err := s.filter(p, q)
	if err != nil {
		return nil, err
	}
	claims, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	return claims, nil
}

func (s *Service) filter(p auth.Principal, q ListQuery) (entity.Filter, error) {
	var f entity.Filter
	switch {
	case p.IsFarmer():
		f.UserID = p.ID
	case p.IsGovernment():
		f.UserID = strings.TrimSpace(q.UserID)
	default:
		return f, ErrForbidden
	}
	if raw := strings.TrimSpace(q.Status); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := entity.Status(strings.ToLower(strings.TrimSpace(part)))
			if !st.Valid() {
				return f, ErrInvalidStatus
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	var v utilities.Violations
	if raw := strings.TrimSpace(q.Severity); raw != "" {
		sev := entity.Severity(strings.ToLower(raw))
		if !sev.Valid() {
			v.Add("severity", "severity must be one of mild, moderate, severe, complete")
		}
		f.Severity = sev
	}
	f.DamageType = strings.ToLower(strings.TrimSpace(q.DamageType))
	f.From = parseDate("from", q.From, &v)
	f.To = parseDate("to", q.To, &v)
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		v.Add("from", "from must not be after to")
	}
	if q.Offset < 0 {
		v.Add("offset", "offset cannot be negative")
	}
	if err := v.Err(); err != nil {
		return f, err
	}
	f.Limit = clampLimit(q.Limit)
	f.Offset = q.Offset
	return f, nil
}

// Statistics aggregates claims. Farmers always get their own figures;
// government principals get ownerID's figures, or global ones when it is empty.
func (s *Service) Statistics(ctx context.Context, p auth.Principal, ownerID string) (*entity.Statistics, error) {
	switch {
	case p.IsFarmer():
		ownerID = p.ID
	case p.IsGovernment():
		ownerID = strings.TrimSpace(ownerID)
	default:
		return nil, ErrForbidden
	}
	st, err := s.store.Aggregate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("aggregate claims: %w", err)
	}
	return st, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
