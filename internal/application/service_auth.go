package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"github.com/typeb/familyhub/internal/ports"
)

// Register creates a local account. The role defaults to parent because the
// first account in a household is the one setting it up; children join later
// through an invite code.
func (s *Service) Register(ctx context.Context, req RegisterRequest, idempotencyKey string) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return RegisterResponse{}, fmt.Errorf("%w: display_name is required", domain.ErrInvalidInput)
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleParent
	}
	if !domain.IsValidRole(role) {
		return RegisterResponse{}, fmt.Errorf("%w: role must be parent or child", domain.ErrInvalidInput)
	}

	if ip := strings.TrimSpace(req.IPAddress); ip != "" {
		if err := s.enforceRateLimit(ctx, "register:ip:"+ip); err != nil {
			return RegisterResponse{}, err
		}
	}

	if idempotencyKey != "" {
		requestHash := hashRequest(map[string]any{"op": "register", "email": email})
		if raw, ok, err := s.getIdempotentBody(ctx, idempotencyKey, requestHash); err != nil {
			return RegisterResponse{}, err
		} else if ok {
			var cached RegisterResponse
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
		if err := s.reserveIdempotency(ctx, idempotencyKey, requestHash); err != nil {
			return RegisterResponse{}, err
		}
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	user := domain.User{
		UserID:       uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return RegisterResponse{}, err
	}

	s.enqueueEvent(ctx, domain.EventUserRegistered, user.UserID.String(), map[string]any{
		"user_id": user.UserID.String(),
		"email":   email,
		"role":    role,
	})

	res := RegisterResponse{UserID: user.UserID}
	if idempotencyKey != "" {
		s.completeIdempotencyJSON(ctx, idempotencyKey, 201, res)
	}
	return res, nil
}

// Login validates credentials, enforces the failed-attempt lockout, and issues a
// session-backed token. Five failures inside the counting window lock the account
// for the configured duration; every credential failure also pays a randomized
// delay so response timing reveals nothing.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, err
	}

	lockKey := "login:" + email
	if s.lockouts != nil {
		state, lockErr := s.lockouts.Get(ctx, lockKey)
		if lockErr == nil && state.LockedUntil != nil && state.LockedUntil.After(s.nowFn()) {
			s.logger().WarnContext(ctx, "account lockout active",
				"operation", "login",
				"outcome", "blocked",
				"email", email,
				"locked_until", state.LockedUntil,
			)
			return LoginResponse{}, domain.ErrAccountLocked
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.recordFailure(ctx, nil, req, "USER_NOT_FOUND")
		return LoginResponse{}, s.credentialFailure(ctx, lockKey)
	}
	if !user.IsActive {
		s.recordFailure(ctx, &user.UserID, req, "ACCOUNT_INACTIVE")
		return LoginResponse{}, s.credentialFailure(ctx, lockKey)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordFailure(ctx, &user.UserID, req, "INVALID_PASSWORD")
		return LoginResponse{}, s.credentialFailure(ctx, lockKey)
	}

	if s.lockouts != nil {
		_ = s.lockouts.Clear(ctx, lockKey)
	}

	now := s.nowFn()
	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		UserID:         user.UserID,
		DeviceName:     strings.TrimSpace(req.DeviceName),
		DeviceOS:       strings.TrimSpace(req.DeviceOS),
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		ExpiresAt:      now.Add(s.cfg.SessionTTL),
		LastActivityAt: now,
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("create session: %w", err)
	}

	expiresAt := now.Add(s.cfg.TokenTTL)
	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: session.SessionID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	if err := s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:     &user.UserID,
		AttemptAt:  now,
		IPAddress:  req.IPAddress,
		Status:     "SUCCESS",
		DeviceName: req.DeviceName,
		DeviceOS:   req.DeviceOS,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger().WarnContext(ctx, "failed to persist login attempt",
			"operation", "login",
			"outcome", "warning",
			"error", err,
		)
	}

	return LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// credentialFailure updates lockout state and returns the user-facing error.
// The randomized delay applies to every failure path uniformly.
func (s *Service) credentialFailure(ctx context.Context, lockKey string) error {
	defer s.failureDelay()
	if s.lockouts == nil {
		return domain.ErrInvalidCredentials
	}
	now := s.nowFn()
	state, err := s.lockouts.RecordFailure(ctx, lockKey, now, s.cfg.FailedLoginThreshold, s.cfg.FailedLoginWindow, s.cfg.LockoutDuration)
	if err != nil {
		s.logger().ErrorContext(ctx, "failed to update lockout state",
			"operation", "login",
			"outcome", "failure",
			"error_code", "LOCKOUT_STATE_UNAVAILABLE",
			"error", err,
		)
		// Fail closed: without lockout state, repeated guessing must not proceed.
		return domain.ErrAccountLocked
	}
	if state.LockedUntil != nil && state.LockedUntil.After(now) {
		s.logger().WarnContext(ctx, "account lockout triggered",
			"operation", "login",
			"outcome", "blocked",
			"failed_count", state.FailedCount,
			"locked_until", state.LockedUntil,
		)
		return domain.ErrAccountLocked
	}
	return domain.ErrInvalidCredentials
}

func (s *Service) recordFailure(ctx context.Context, userID *uuid.UUID, req LoginRequest, reason string) {
	if err := s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		UserID:        userID,
		AttemptAt:     s.nowFn(),
		IPAddress:     req.IPAddress,
		Status:        "FAILED",
		FailureReason: reason,
		DeviceName:    req.DeviceName,
		DeviceOS:      req.DeviceOS,
		UserAgent:     req.UserAgent,
	}); err != nil {
		s.logger().WarnContext(ctx, "failed to persist login attempt",
			"operation", "record_login_failure",
			"outcome", "failure",
			"reason", reason,
			"error", err,
		)
	}
}

// ValidateToken verifies signature, expiry, and session revocation state.
func (s *Service) ValidateToken(ctx context.Context, raw string) (ports.AuthClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(raw)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if claims.ExpiresAt.Before(s.nowFn()) {
		return ports.AuthClaims{}, domain.ErrTokenExpired
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.SessionID)
		if err == nil && revoked {
			return ports.AuthClaims{}, domain.ErrSessionRevoked
		}
	}
	return claims, nil
}

// PublicJWKs exposes the signer's verification keys for sibling services.
func (s *Service) PublicJWKs() ([]map[string]any, error) {
	return s.tokenSigner.PublicJWKs()
}

// Refresh issues a fresh token for a still-valid session and touches its activity.
func (s *Service) Refresh(ctx context.Context, raw string) (LoginResponse, error) {
	claims, err := s.ValidateToken(ctx, raw)
	if err != nil {
		return LoginResponse{}, err
	}
	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return LoginResponse{}, domain.ErrUnauthorized
	}
	now := s.nowFn()
	if session.RevokedAt != nil {
		return LoginResponse{}, domain.ErrSessionRevoked
	}
	if session.ExpiresAt.Before(now) {
		return LoginResponse{}, domain.ErrSessionExpired
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return LoginResponse{}, domain.ErrUnauthorized
	}
	if !user.IsActive {
		// Deactivation must cut short still-live sessions, not just new logins.
		return LoginResponse{}, domain.ErrUnauthorized
	}

	expiresAt := now.Add(s.cfg.TokenTTL)
	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: session.SessionID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}
	_ = s.sessions.TouchActivity(ctx, session.SessionID, now)
	return LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the current session immediately.
func (s *Service) Logout(ctx context.Context, actor Actor) error {
	if actor.SessionID == uuid.Nil {
		return domain.ErrUnauthorized
	}
	now := s.nowFn()
	if err := s.sessions.RevokeByID(ctx, actor.SessionID, now); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if s.revocations != nil {
		_ = s.revocations.MarkRevoked(ctx, actor.SessionID, now.Add(s.cfg.TokenTTL))
	}
	return nil
}

// ListSessions returns current and historical sessions for the authenticated user.
func (s *Service) ListSessions(ctx context.Context, actor Actor) ([]SessionItem, error) {
	if actor.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	sessions, err := s.sessions.ListByUser(ctx, actor.UserID, 100, 0)
	if err != nil {
		return nil, err
	}
	result := make([]SessionItem, 0, len(sessions))
	for _, it := range sessions {
		result = append(result, SessionItem{
			SessionID:      it.SessionID,
			DeviceName:     it.DeviceName,
			DeviceOS:       it.DeviceOS,
			CreatedAt:      it.CreatedAt,
			LastActivityAt: it.LastActivityAt,
			Current:        it.SessionID == actor.SessionID,
			Revoked:        it.RevokedAt != nil,
		})
	}
	return result, nil
}

// RevokeSession revokes one of the caller's own sessions.
func (s *Service) RevokeSession(ctx context.Context, actor Actor, sessionID uuid.UUID) error {
	if actor.UserID == uuid.Nil {
		return domain.ErrUnauthorized
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != actor.UserID {
		return domain.ErrForbidden
	}
	now := s.nowFn()
	if err := s.sessions.RevokeByID(ctx, sessionID, now); err != nil {
		return err
	}
	if s.revocations != nil {
		_ = s.revocations.MarkRevoked(ctx, sessionID, now.Add(s.cfg.TokenTTL))
	}
	return nil
}

// ListLoginHistory returns login attempts with pagination and optional time/status filters.
func (s *Service) ListLoginHistory(ctx context.Context, actor Actor, q LoginHistoryQuery) ([]domain.LoginAttempt, error) {
	if actor.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	offset := (q.Page - 1) * q.Limit

	var since *time.Time
	if q.Days > 0 {
		t := s.nowFn().Add(-time.Duration(q.Days) * 24 * time.Hour)
		since = &t
	}
	return s.loginAttempts.ListByUser(ctx, actor.UserID, q.Limit, offset, since, strings.ToUpper(strings.TrimSpace(q.Status)))
}

// Me returns the caller's profile with the family reference healed if stale.
func (s *Service) Me(ctx context.Context, actor Actor) (domain.User, error) {
	if actor.UserID == uuid.Nil {
		return domain.User{}, domain.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return domain.User{}, err
	}
	return s.healFamilyReference(ctx, user)
}

// enforceRateLimit applies a counting-window limit keyed on an arbitrary string.
// Unavailable limiter state only logs; registration should not hard-fail on a
// cache outage.
func (s *Service) enforceRateLimit(ctx context.Context, key string) error {
	if s.lockouts == nil {
		return nil
	}
	state, err := s.lockouts.Get(ctx, key)
	if err == nil && state.LockedUntil != nil && state.LockedUntil.After(s.nowFn()) {
		return domain.ErrRateLimited
	}
	now := s.nowFn()
	updated, err := s.lockouts.RecordFailure(ctx, key, now, s.cfg.FailedLoginThreshold, s.cfg.FailedLoginWindow, s.cfg.LockoutDuration)
	if err != nil {
		s.logger().WarnContext(ctx, "rate-limit state unavailable",
			"operation", "rate_limit",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
		return nil
	}
	if updated.LockedUntil != nil && updated.LockedUntil.After(now) {
		return domain.ErrRateLimited
	}
	return nil
}
