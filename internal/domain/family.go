package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// InviteCodeLength is fixed by the product: members join with a 6-character code.
const InviteCodeLength = 6

// inviteCodeAlphabet omits ambiguous glyphs (0/O, 1/I/L) so codes survive being
// read aloud or typed from a child's screen.
const inviteCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Family is the tenant grouping of users sharing tasks.
// Plan and PremiumUntil carry the subscription entitlement state; the invite code
// is globally unique and rotatable by a parent.
type Family struct {
	FamilyID     uuid.UUID
	Name         string
	InviteCode   string
	Plan         string
	PremiumUntil *time.Time
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EffectivePlan collapses an expired premium window back to the free tier.
func (f Family) EffectivePlan(now time.Time) string {
	if f.Plan == PlanPremium && (f.PremiumUntil == nil || f.PremiumUntil.After(now)) {
		return PlanPremium
	}
	return PlanFree
}

// NewInviteCode returns a random 6-character code from the unambiguous alphabet.
// Uniqueness is not guaranteed here; callers insert and retry on conflict.
func NewInviteCode() string {
	raw := make([]byte, InviteCodeLength)
	_, _ = rand.Read(raw)
	code := make([]byte, InviteCodeLength)
	for i, b := range raw {
		code[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(code)
}
