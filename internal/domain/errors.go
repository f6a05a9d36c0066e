package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	// This supports brute-force mitigation and a predictable user-facing response.
	ErrAccountLocked       = errors.New("account locked")
	ErrSessionRevoked      = errors.New("session revoked")
	ErrSessionExpired      = errors.New("session expired")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrTokenExpired        = errors.New("token expired")
	ErrRateLimited         = errors.New("rate limited")

	// ErrAlreadyInFamily enforces the one-family-per-user invariant on join.
	ErrAlreadyInFamily = errors.New("user already belongs to a family")
	// ErrLastParent blocks leave/demote operations that would strand members without a parent.
	ErrLastParent = errors.New("family must keep at least one parent")
	ErrFamilyFull = errors.New("family member limit reached")
	// ErrInviteCodeExhausted is returned when unique code generation ran out of retries.
	ErrInviteCodeExhausted = errors.New("could not allocate a unique invite code")

	ErrPhotoRequired     = errors.New("task requires a validation photo")
	ErrNotAwaitingReview = errors.New("task is not awaiting approval")
	ErrTaskClosed        = errors.New("task is already completed")

	// ErrPremiumRequired gates paid entitlements (extra members, custom categories, pushes).
	ErrPremiumRequired = errors.New("premium subscription required")
)
