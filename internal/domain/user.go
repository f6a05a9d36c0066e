package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// User is the canonical account aggregate. Family membership lives directly on the
// user because the product allows at most one family per account; a nil FamilyID
// means the user has not joined (or was healed out of) a family.
type User struct {
	UserID       uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  string
	Role         string
	FamilyID     *uuid.UUID
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) IsParent() bool { return u.Role == RoleParent }

func IsValidRole(v string) bool {
	switch v {
	case RoleParent, RoleChild:
		return true
	default:
		return false
	}
}

// Session models an issued login session.
// We persist this separately to support per-device revocation and session history.
type Session struct {
	SessionID      uuid.UUID
	UserID         uuid.UUID
	DeviceName     string
	DeviceOS       string
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
}

// LoginAttempt records authentication outcomes for audit and lockout controls.
type LoginAttempt struct {
	ID            int64
	UserID        *uuid.UUID
	AttemptAt     time.Time
	IPAddress     string
	Status        string
	FailureReason string
	DeviceName    string
	DeviceOS      string
	UserAgent     string
}
