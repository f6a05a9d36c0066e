package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
)

func (s *Service) GetSubscription(ctx context.Context, actor Actor, familyID uuid.UUID) (SubscriptionInfo, error) {
	if _, err := s.requireMember(ctx, actor, familyID); err != nil {
		return SubscriptionInfo{}, err
	}
	family, err := s.families.GetByID(ctx, familyID)
	if err != nil {
		return SubscriptionInfo{}, err
	}
	plan := family.EffectivePlan(s.nowFn())
	return SubscriptionInfo{
		Plan:         plan,
		PremiumUntil: family.PremiumUntil,
		Entitlements: domain.EntitlementsForPlan(plan),
	}, nil
}

// ApplyBillingEvent processes a billing provider callback and flips the family's
// plan. Callers authenticate the provider before reaching here; this is not a
// member-facing operation.
func (s *Service) ApplyBillingEvent(ctx context.Context, input BillingEventInput) (SubscriptionInfo, error) {
	if !domain.IsValidBillingEvent(input.Event) {
		return SubscriptionInfo{}, fmt.Errorf("%w: unknown billing event %q", domain.ErrInvalidInput, input.Event)
	}
	family, err := s.families.GetByID(ctx, input.FamilyID)
	if err != nil {
		return SubscriptionInfo{}, err
	}

	now := s.nowFn()
	plan := domain.PlanFree
	premiumUntil := family.PremiumUntil
	if input.Event == domain.BillingEventActivated {
		plan = domain.PlanPremium
		premiumUntil = input.ExpiresAt
	} else {
		premiumUntil = nil
	}
	if err := s.families.UpdatePlan(ctx, family.FamilyID, plan, premiumUntil, now); err != nil {
		return SubscriptionInfo{}, err
	}

	s.enqueueEvent(ctx, domain.EventSubscriptionChanged, family.FamilyID.String(), map[string]any{
		"family_id": family.FamilyID.String(),
		"plan":      plan,
		"event":     input.Event,
	})
	s.appendActivity(ctx, family.FamilyID, family.CreatedBy, "subscription.changed", family.FamilyID.String(), map[string]string{"plan": plan})

	s.logger().InfoContext(ctx, "applied billing event",
		"operation", "apply_billing_event",
		"outcome", "success",
		"family_id", family.FamilyID,
		"plan", plan,
	)
	return SubscriptionInfo{
		Plan:         plan,
		PremiumUntil: premiumUntil,
		Entitlements: domain.EntitlementsForPlan(plan),
	}, nil
}
