package claim

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/repo"
)

// memStore is an in-memory Store with the same locking and uniqueness
// behaviour the SQL repo gets from Postgres.
type memStore struct {
	mu      sync.Mutex
	claims  map[string]*entity.Claim
	refs    map[string]bool
	clock   time.Time
	inserts int
}

func newMemStore() *memStore {
	return &memStore{
		claims: map[string]*entity.Claim{},
		refs:   map[string]bool{},
		clock:  time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func clone(c *entity.Claim) *entity.Claim {
	cp := *c
	return &cp
}

func (m *memStore) Insert(_ context.Context, c *entity.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.refs[c.ReferenceNumber] {
		return repo.ErrDuplicateReference
	}
	m.clock = m.clock.Add(time.Second)
	c.CreatedAt, c.UpdatedAt = m.clock, m.clock
	m.refs[c.ReferenceNumber] = true
	m.claims[c.ID] = clone(c)
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*entity.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return clone(c), nil
}

func (m *memStore) Transition(_ context.Context, id string, apply func(*entity.Claim) (entity.StatusUpdate, error)) (*entity.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	upd, err := apply(clone(c))
	if err != nil {
		return nil, err
	}
	c.Status = upd.Status
	if upd.Notes != nil {
		c.GovernmentNotes = upd.Notes
	}
	if upd.ApprovedAmount != nil {
		c.ApprovedAmount = upd.ApprovedAmount
	}
	if upd.ApprovalDate != nil {
		c.ApprovalDate = upd.ApprovalDate
	}
	if upd.PaymentDate != nil {
		c.PaymentDate = upd.PaymentDate
	}
	m.clock = m.clock.Add(time.Second)
	c.UpdatedAt = m.clock
	return clone(c), nil
}

func (m *memStore) Query(_ context.Context, f entity.Filter) ([]*entity.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Claim
	for _, c := range m.claims {
		if f.UserID != "" && c.UserID != f.UserID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, c.Status) {
			continue
		}
		if f.DamageType != "" && c.DamageType != f.DamageType {
			continue
		}
		if f.Severity != "" && c.SeverityLevel != f.Severity {
			continue
		}
		if f.From != nil && c.IncidentDate.Before(*f.From) {
			continue
		}
		if f.To != nil && c.IncidentDate.After(*f.To) {
			continue
		}
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return []*entity.Claim{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) Aggregate(_ context.Context, userID string) (*entity.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st entity.Statistics
	for _, c := range m.claims {
		if userID != "" && c.UserID != userID {
			continue
		}
		st.TotalClaims++
		st.TotalEstimatedLoss += c.EstimatedLossAmount
		switch c.Status {
		case entity.StatusSubmitted:
			st.Submitted++
		case entity.StatusUnderReview:
			st.UnderReview++
		case entity.StatusApproved:
			st.Approved++
		case entity.StatusRejected:
			st.Rejected++
		case entity.StatusCompleted:
			st.Completed++
		}
		if c.ApprovedAmount != nil && (c.Status == entity.StatusApproved || c.Status == entity.StatusCompleted) {
			st.TotalApprovedAmount += *c.ApprovedAmount
		}
	}
	if st.TotalClaims > 0 {
		st.AverageClaimAmount = st.TotalEstimatedLoss / float64(st.TotalClaims)
	}
	return &st, nil
}

func containsStatus(list []entity.Status, s entity.Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
