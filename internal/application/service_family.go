package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
)

// CreateFamily creates a tenant and makes the creator its first parent.
// The invite code is allocated with an insert-retry loop: collisions surface as
// unique violations and a fresh code is tried, bounded by InviteCodeAttempts.
func (s *Service) CreateFamily(ctx context.Context, actor Actor, input CreateFamilyInput) (domain.Family, error) {
	if actor.UserID == uuid.Nil {
		return domain.Family{}, domain.ErrUnauthorized
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > 80 {
		return domain.Family{}, fmt.Errorf("%w: family name must be 1-80 characters", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return domain.Family{}, domain.ErrUnauthorized
	}
	user, err = s.healFamilyReference(ctx, user)
	if err != nil {
		return domain.Family{}, err
	}
	if user.FamilyID != nil {
		return domain.Family{}, domain.ErrAlreadyInFamily
	}

	if actor.IdempotencyKey != "" {
		requestHash := hashRequest(map[string]any{"op": "create_family", "actor": actor.UserID.String(), "name": name})
		if raw, ok, err := s.getIdempotentBody(ctx, actor.IdempotencyKey, requestHash); err != nil {
			return domain.Family{}, err
		} else if ok {
			var cached domain.Family
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
		if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
			return domain.Family{}, err
		}
	}

	now := s.nowFn()
	family := domain.Family{
		FamilyID:  uuid.New(),
		Name:      name,
		Plan:      domain.PlanFree,
		CreatedBy: user.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created := false
	for attempt := 0; attempt < s.cfg.InviteCodeAttempts; attempt++ {
		family.InviteCode = domain.NewInviteCode()
		err := s.families.Create(ctx, family)
		if err == nil {
			created = true
			break
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domain.Family{}, err
		}
	}
	if !created {
		return domain.Family{}, domain.ErrInviteCodeExhausted
	}

	if err := s.users.SetFamily(ctx, user.UserID, family.FamilyID, domain.RoleParent, now); err != nil {
		return domain.Family{}, err
	}

	s.appendActivity(ctx, family.FamilyID, user.UserID, "family.created", family.FamilyID.String(), map[string]string{"name": name})
	s.enqueueEvent(ctx, domain.EventFamilyCreated, family.FamilyID.String(), map[string]any{
		"family_id":  family.FamilyID.String(),
		"created_by": user.UserID.String(),
	})
	if actor.IdempotencyKey != "" {
		s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, family)
	}
	return family, nil
}

// GetFamily returns the family with its member roster. The invite code is only
// included for parents; children see everything else.
func (s *Service) GetFamily(ctx context.Context, actor Actor, familyID uuid.UUID) (FamilyDetails, error) {
	member, err := s.requireMember(ctx, actor, familyID)
	if err != nil {
		return FamilyDetails{}, err
	}
	family, err := s.families.GetByID(ctx, familyID)
	if err != nil {
		return FamilyDetails{}, err
	}
	members, err := s.users.ListByFamilyID(ctx, familyID)
	if err != nil {
		return FamilyDetails{}, err
	}
	if !member.IsParent() {
		family.InviteCode = ""
	}
	return FamilyDetails{Family: family, Members: members}, nil
}

// JoinFamily adds the caller to the family matching the invite code, enforcing
// the one-family invariant and the plan's member limit.
func (s *Service) JoinFamily(ctx context.Context, actor Actor, inviteCode string) (domain.Family, error) {
	if actor.UserID == uuid.Nil {
		return domain.Family{}, domain.ErrUnauthorized
	}
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if len(code) != domain.InviteCodeLength {
		return domain.Family{}, fmt.Errorf("%w: invite code must be %d characters", domain.ErrInvalidInput, domain.InviteCodeLength)
	}

	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return domain.Family{}, domain.ErrUnauthorized
	}
	user, err = s.healFamilyReference(ctx, user)
	if err != nil {
		return domain.Family{}, err
	}
	if user.FamilyID != nil {
		return domain.Family{}, domain.ErrAlreadyInFamily
	}

	family, err := s.families.GetByInviteCode(ctx, code)
	if err != nil {
		return domain.Family{}, err
	}

	now := s.nowFn()
	count, err := s.users.CountByFamilyID(ctx, family.FamilyID)
	if err != nil {
		return domain.Family{}, err
	}
	ent := domain.EntitlementsForPlan(family.EffectivePlan(now))
	if count >= ent.MaxMembers {
		if family.EffectivePlan(now) == domain.PlanFree {
			return domain.Family{}, domain.ErrPremiumRequired
		}
		return domain.Family{}, domain.ErrFamilyFull
	}

	role := user.Role
	if !domain.IsValidRole(role) {
		role = domain.RoleChild
	}
	if err := s.users.SetFamily(ctx, user.UserID, family.FamilyID, role, now); err != nil {
		return domain.Family{}, err
	}

	s.appendActivity(ctx, family.FamilyID, user.UserID, "family.member.joined", user.UserID.String(), map[string]string{"role": role})
	s.enqueueEvent(ctx, domain.EventFamilyMemberJoined, family.FamilyID.String(), map[string]any{
		"family_id": family.FamilyID.String(),
		"user_id":   user.UserID.String(),
		"role":      role,
	})

	// Let the parents know someone arrived.
	if parents, err := s.users.ListByFamilyID(ctx, family.FamilyID); err == nil {
		for _, p := range parents {
			if !p.IsParent() || p.UserID == user.UserID {
				continue
			}
			_ = s.pushNotification(ctx, domain.Notification{
				UserID:   p.UserID,
				Type:     domain.NotificationTypeFamilyJoined,
				Title:    user.DisplayName + " joined your family",
				Metadata: map[string]string{"user_id": user.UserID.String()},
			})
		}
	}
	return family, nil
}

// LeaveFamily removes the caller from their family. The last parent may only
// leave once no other members remain.
func (s *Service) LeaveFamily(ctx context.Context, actor Actor, familyID uuid.UUID) error {
	user, err := s.requireMember(ctx, actor, familyID)
	if err != nil {
		return err
	}
	if user.IsParent() {
		if err := s.ensureNotLastParent(ctx, familyID, user.UserID); err != nil {
			return err
		}
	}
	now := s.nowFn()
	if err := s.users.ClearFamily(ctx, user.UserID, now); err != nil {
		return err
	}
	s.appendActivity(ctx, familyID, user.UserID, "family.member.left", user.UserID.String(), nil)
	s.enqueueEvent(ctx, domain.EventFamilyMemberLeft, familyID.String(), map[string]any{
		"family_id": familyID.String(),
		"user_id":   user.UserID.String(),
	})
	return nil
}

// RemoveMember lets a parent remove another member from the family.
func (s *Service) RemoveMember(ctx context.Context, actor Actor, familyID, memberID uuid.UUID) error {
	parent, err := s.requireParent(ctx, actor, familyID)
	if err != nil {
		return err
	}
	if memberID == parent.UserID {
		return fmt.Errorf("%w: use leave to remove yourself", domain.ErrInvalidInput)
	}
	member, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if member.FamilyID == nil || *member.FamilyID != familyID {
		return domain.ErrNotFound
	}
	if member.IsParent() {
		if err := s.ensureNotLastParent(ctx, familyID, member.UserID); err != nil {
			return err
		}
	}
	now := s.nowFn()
	if err := s.users.ClearFamily(ctx, member.UserID, now); err != nil {
		return err
	}
	s.appendActivity(ctx, familyID, parent.UserID, "family.member.removed", member.UserID.String(), nil)
	s.enqueueEvent(ctx, domain.EventFamilyMemberRemoved, familyID.String(), map[string]any{
		"family_id":  familyID.String(),
		"user_id":    member.UserID.String(),
		"removed_by": parent.UserID.String(),
	})
	_ = s.pushNotification(ctx, domain.Notification{
		UserID: member.UserID,
		Type:   domain.NotificationTypeFamilyRemoved,
		Title:  "You were removed from the family",
	})
	return nil
}

// ChangeMemberRole promotes or demotes a member. Demoting the last parent is
// rejected to keep the at-least-one-parent invariant.
func (s *Service) ChangeMemberRole(ctx context.Context, actor Actor, familyID, memberID uuid.UUID, role string) error {
	parent, err := s.requireParent(ctx, actor, familyID)
	if err != nil {
		return err
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !domain.IsValidRole(role) {
		return fmt.Errorf("%w: role must be parent or child", domain.ErrInvalidInput)
	}
	member, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if member.FamilyID == nil || *member.FamilyID != familyID {
		return domain.ErrNotFound
	}
	if member.Role == role {
		return nil
	}
	if member.IsParent() && role == domain.RoleChild {
		if err := s.ensureNotLastParent(ctx, familyID, member.UserID); err != nil {
			return err
		}
	}
	now := s.nowFn()
	if err := s.users.SetRole(ctx, member.UserID, role, now); err != nil {
		return err
	}
	s.appendActivity(ctx, familyID, parent.UserID, "family.role.changed", member.UserID.String(), map[string]string{"role": role})
	s.enqueueEvent(ctx, domain.EventFamilyRoleChanged, familyID.String(), map[string]any{
		"family_id": familyID.String(),
		"user_id":   member.UserID.String(),
		"role":      role,
	})
	return nil
}

// RotateInviteCode replaces the family's invite code, invalidating the old one.
func (s *Service) RotateInviteCode(ctx context.Context, actor Actor, familyID uuid.UUID) (string, error) {
	parent, err := s.requireParent(ctx, actor, familyID)
	if err != nil {
		return "", err
	}
	now := s.nowFn()
	for attempt := 0; attempt < s.cfg.InviteCodeAttempts; attempt++ {
		code := domain.NewInviteCode()
		err := s.families.UpdateInviteCode(ctx, familyID, code, now)
		if err == nil {
			s.appendActivity(ctx, familyID, parent.UserID, "family.invite_code.rotated", familyID.String(), nil)
			return code, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return "", err
		}
	}
	return "", domain.ErrInviteCodeExhausted
}

// ListActivity returns the family feed, newest first.
func (s *Service) ListActivity(ctx context.Context, actor Actor, familyID uuid.UUID, page, pageSize int) ([]domain.Activity, error) {
	if _, err := s.requireMember(ctx, actor, familyID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.activities.ListByFamilyID(ctx, familyID, pageSize, (page-1)*pageSize)
}

// CheckMembership reports whether userID belongs to familyID and with what role.
// Internal surface for sibling services; no actor authorization applies.
func (s *Service) CheckMembership(ctx context.Context, familyID, userID uuid.UUID) (bool, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, "", nil
		}
		return false, "", err
	}
	if user.FamilyID == nil || *user.FamilyID != familyID {
		return false, "", nil
	}
	return true, user.Role, nil
}

// ensureNotLastParent rejects the operation when userID is the sole parent and
// other members would remain behind.
func (s *Service) ensureNotLastParent(ctx context.Context, familyID, userID uuid.UUID) error {
	members, err := s.users.ListByFamilyID(ctx, familyID)
	if err != nil {
		return err
	}
	parents := 0
	for _, m := range members {
		if m.IsParent() {
			parents++
		}
	}
	if parents > 1 {
		return nil
	}
	if len(members) == 1 && members[0].UserID == userID {
		// Sole remaining member may leave; the family row stays and any later
		// stale reference is healed on read.
		return nil
	}
	return domain.ErrLastParent
}
