package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotel_booking/internal/domain"
)

// PolicyService is a read-through cache in front of the policy table. The
// engine only reads policies; writes come from the admin endpoint.
type PolicyService struct {
	store     domain.Store
	cache     domain.Cache
	cacheTTL  time.Duration
	defaultID string
}

func NewPolicyService(s domain.Store, c domain.Cache, ttl time.Duration, defaultID string) *PolicyService {
	if defaultID == "" {
		defaultID = domain.DefaultPolicyID
	}
	return &PolicyService{store: s, cache: c, cacheTTL: ttl, defaultID: defaultID}
}

func policyKey(id string) string { return fmt.Sprintf("policy:%s", strings.ToLower(id)) }

// Get returns the policy for id (the default policy when id is empty). A
// missing row yields the built-in fallback so bookings keep working before an
// admin has saved anything.
func (s *PolicyService) Get(ctx context.Context, id string) (domain.Policy, error) {
	if id == "" {
		id = s.defaultID
	}
	key := policyKey(id)
	var p domain.Policy
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &p); ok {
			return p, nil
		}
	}
	p, err := s.store.GetPolicy(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.FallbackPolicy(id), nil
	}
	if err != nil {
		return domain.Policy{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	}
	return p, nil
}

func (s *PolicyService) Put(ctx context.Context, p domain.Policy) (domain.Policy, error) {
	if p.ID == "" {
		p.ID = s.defaultID
	}
	if err := s.store.UpsertPolicy(ctx, p); err != nil {
		return domain.Policy{}, err
	}
	// evict so the next read sees the new values
	if s.cache != nil {
		_ = s.cache.Del(ctx, policyKey(p.ID))
	}
	return p, nil
}
