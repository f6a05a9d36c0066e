package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/domain"
)

func TestRegisterLoginRefreshLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Register(ctx, application.RegisterRequest{
		Email:       "Parent@Example.com",
		Password:    "CorrectHorse1",
		DisplayName: "Pat",
	}, "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if res.UserID == uuid.Nil {
		t.Fatalf("register returned empty user id")
	}

	// Role defaults to parent and the email is normalized on the way in.
	login, err := f.service.Login(ctx, application.LoginRequest{
		Email:    "parent@example.com",
		Password: "CorrectHorse1",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if login.Token == "" {
		t.Fatalf("login token should not be empty")
	}
	if login.User.Role != domain.RoleParent {
		t.Fatalf("expected default parent role, got %q", login.User.Role)
	}

	claims, err := f.service.ValidateToken(ctx, login.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != res.UserID {
		t.Fatalf("claims user mismatch: got %s want %s", claims.UserID, res.UserID)
	}

	refreshed, err := f.service.Refresh(ctx, login.Token)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.Token == "" {
		t.Fatalf("refresh token should not be empty")
	}

	actor := application.Actor{UserID: claims.UserID, SessionID: claims.SessionID}
	if err := f.service.Logout(ctx, actor); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.service.Refresh(ctx, login.Token); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("expected revoked session after logout, got %v", err)
	}
}

func TestRefreshRejectsDeactivatedAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t, "inactive@example.com", domain.RoleParent)

	login, err := f.service.Login(ctx, application.LoginRequest{Email: "inactive@example.com", Password: "CorrectHorse1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Deactivation must also cut off live sessions, not just future logins.
	f.repos.Users.SetActive(userID, false)
	if _, err := f.service.Refresh(ctx, login.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("refresh for deactivated account should be unauthorized, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  application.RegisterRequest
	}{
		{"bad email", application.RegisterRequest{Email: "nope", Password: "CorrectHorse1", DisplayName: "X"}},
		{"short password", application.RegisterRequest{Email: "a@b.com", Password: "ab1", DisplayName: "X"}},
		{"no digit", application.RegisterRequest{Email: "a@b.com", Password: "allletters", DisplayName: "X"}},
		{"weak pattern", application.RegisterRequest{Email: "a@b.com", Password: "password123", DisplayName: "X"}},
		{"missing display name", application.RegisterRequest{Email: "a@b.com", Password: "CorrectHorse1"}},
		{"bad role", application.RegisterRequest{Email: "a@b.com", Password: "CorrectHorse1", DisplayName: "X", Role: "admin"}},
	}
	for _, tc := range cases {
		if _, err := f.service.Register(ctx, tc.req, ""); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestRegisterIdempotentReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	req := application.RegisterRequest{
		Email:       "idem@example.com",
		Password:    "CorrectHorse1",
		DisplayName: "Idem",
	}
	first, err := f.service.Register(ctx, req, "register-key-1")
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	second, err := f.service.Register(ctx, req, "register-key-1")
	if err != nil {
		t.Fatalf("replayed register: %v", err)
	}
	if first.UserID != second.UserID {
		t.Fatalf("replay returned a different user: %s vs %s", first.UserID, second.UserID)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "lock@example.com", domain.RoleParent)

	bad := application.LoginRequest{Email: "lock@example.com", Password: "WrongPass99"}
	for i := 0; i < 4; i++ {
		if _, err := f.service.Login(ctx, bad); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := f.service.Login(ctx, bad); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("fifth failure should lock the account, got %v", err)
	}

	// Correct credentials are rejected while the lockout holds.
	good := application.LoginRequest{Email: "lock@example.com", Password: "CorrectHorse1"}
	if _, err := f.service.Login(ctx, good); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected lockout to block valid credentials, got %v", err)
	}

	// After the lockout duration the account opens again.
	f.clock.Advance(31 * time.Minute)
	if _, err := f.service.Login(ctx, good); err != nil {
		t.Fatalf("login after lockout expiry: %v", err)
	}
}

func TestFailureWindowResetsCounter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "window@example.com", domain.RoleParent)

	bad := application.LoginRequest{Email: "window@example.com", Password: "WrongPass99"}
	for i := 0; i < 4; i++ {
		if _, err := f.service.Login(ctx, bad); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The counting window closes; the next failure starts a fresh count.
	f.clock.Advance(16 * time.Minute)
	if _, err := f.service.Login(ctx, bad); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("failure after expired window should not lock, got %v", err)
	}
}

func TestCredentialFailureDelayBounds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "delay@example.com", domain.RoleParent)

	for i := 0; i < 3; i++ {
		_, _ = f.service.Login(ctx, application.LoginRequest{Email: "delay@example.com", Password: "WrongPass99"})
	}
	// An unknown email pays the same delay as a wrong password.
	_, _ = f.service.Login(ctx, application.LoginRequest{Email: "ghost@example.com", Password: "WrongPass99"})

	slept := f.clock.Slept()
	if len(slept) != 4 {
		t.Fatalf("expected 4 randomized delays, got %d", len(slept))
	}
	for i, d := range slept {
		if d < 50*time.Millisecond || d > 250*time.Millisecond {
			t.Fatalf("delay %d out of bounds: %v", i, d)
		}
	}
}

func TestValidateTokenExpiry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "expiry@example.com", domain.RoleParent)

	login, err := f.service.Login(ctx, application.LoginRequest{Email: "expiry@example.com", Password: "CorrectHorse1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	f.clock.Advance(25 * time.Hour)
	if _, err := f.service.ValidateToken(ctx, login.Token); !errors.Is(err, domain.ErrTokenExpired) && !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired token rejection, got %v", err)
	}
}

func TestSessionListingAndRevocation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t, "sessions@example.com", domain.RoleParent)

	first, err := f.service.Login(ctx, application.LoginRequest{Email: "sessions@example.com", Password: "CorrectHorse1", DeviceName: "phone"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := f.service.Login(ctx, application.LoginRequest{Email: "sessions@example.com", Password: "CorrectHorse1", DeviceName: "tablet"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	firstClaims, err := f.service.ValidateToken(ctx, first.Token)
	if err != nil {
		t.Fatalf("validate first token: %v", err)
	}
	secondClaims, err := f.service.ValidateToken(ctx, second.Token)
	if err != nil {
		t.Fatalf("validate second token: %v", err)
	}

	actor := application.Actor{UserID: userID, SessionID: secondClaims.SessionID}
	sessions, err := f.service.ListSessions(ctx, actor)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	current := 0
	for _, s := range sessions {
		if s.Current {
			current++
		}
	}
	if current != 1 {
		t.Fatalf("expected exactly one current session, got %d", current)
	}

	if err := f.service.RevokeSession(ctx, actor, firstClaims.SessionID); err != nil {
		t.Fatalf("revoke session: %v", err)
	}
	if _, err := f.service.ValidateToken(ctx, first.Token); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("expected revoked session token rejection, got %v", err)
	}

	// A user cannot revoke someone else's session.
	otherID := f.register(t, "other@example.com", domain.RoleParent)
	otherActor := application.Actor{UserID: otherID, SessionID: uuid.New()}
	if err := f.service.RevokeSession(ctx, otherActor, secondClaims.SessionID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestLoginHistoryRecordsOutcomes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t, "history@example.com", domain.RoleParent)

	_, _ = f.service.Login(ctx, application.LoginRequest{Email: "history@example.com", Password: "WrongPass99"})
	if _, err := f.service.Login(ctx, application.LoginRequest{Email: "history@example.com", Password: "CorrectHorse1"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	attempts, err := f.service.ListLoginHistory(ctx, application.Actor{UserID: userID}, application.LoginHistoryQuery{})
	if err != nil {
		t.Fatalf("list login history: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}

	failed, err := f.service.ListLoginHistory(ctx, application.Actor{UserID: userID}, application.LoginHistoryQuery{Status: "failed"})
	if err != nil {
		t.Fatalf("list failed attempts: %v", err)
	}
	if len(failed) != 1 || failed[0].FailureReason != "INVALID_PASSWORD" {
		t.Fatalf("unexpected failed attempts: %+v", failed)
	}
}
