package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/typeb/familyhub/internal/adapters/memory"
	"github.com/typeb/familyhub/internal/adapters/security"
	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/domain"
)

var (
	signerOnce   sync.Once
	sharedSigner *security.JWTSigner
)

// testSigner reuses one RSA keypair across tests; keygen per fixture would
// dominate the suite's runtime.
func testSigner(t *testing.T) *security.JWTSigner {
	t.Helper()
	signerOnce.Do(func() {
		s, err := security.NewEphemeralJWTSigner("test-key-1")
		if err != nil {
			t.Fatalf("init test signer: %v", err)
		}
		sharedSigner = s
	})
	return sharedSigner
}

type testClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.slept))
	copy(out, c.slept)
	return out
}

type fixture struct {
	service     *application.Service
	repos       *memory.Repositories
	lockouts    *memory.LockoutStore
	revocations *memory.SessionRevocationStore
	clock       *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewRepositories()
	lockouts := memory.NewLockoutStore()
	revocations := memory.NewSessionRevocationStore()
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:             24 * time.Hour,
			SessionTTL:           30 * 24 * time.Hour,
			FailedLoginThreshold: 5,
			FailedLoginWindow:    15 * time.Minute,
			LockoutDuration:      30 * time.Minute,
			InviteCodeAttempts:   5,
			ReminderOffsets:      []time.Duration{30 * time.Minute, 15 * time.Minute, 5 * time.Minute},
		},
		Users:         repos.Users,
		Families:      repos.Families,
		Tasks:         repos.Tasks,
		Categories:    repos.Categories,
		Notifications: repos.Notifications,
		Preferences:   repos.Preferences,
		Activities:    repos.Activities,
		Sessions:      repos.Sessions,
		LoginAttempts: repos.LoginAttempts,
		Outbox:        repos.Outbox,
		Idempotency:   repos.Idempotency,
		Lockouts:      lockouts,
		Revocations:   revocations,
		Hasher:        security.NewBcryptHasher(4),
		TokenSigner:   testSigner(t),
	}).WithClock(clock.Now, clock.Sleep)

	return &fixture{
		service:     svc,
		repos:       repos,
		lockouts:    lockouts,
		revocations: revocations,
		clock:       clock,
	}
}

func (f *fixture) register(t *testing.T, email, role string) uuid.UUID {
	t.Helper()
	res, err := f.service.Register(context.Background(), application.RegisterRequest{
		Email:       email,
		Password:    "CorrectHorse1",
		DisplayName: "Member " + email,
		Role:        role,
	}, "")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.UserID
}

func (f *fixture) actor(userID uuid.UUID) application.Actor {
	return application.Actor{UserID: userID, SessionID: uuid.New()}
}

func (f *fixture) createFamily(t *testing.T, userID uuid.UUID, name string) domain.Family {
	t.Helper()
	family, err := f.service.CreateFamily(context.Background(), f.actor(userID), application.CreateFamilyInput{Name: name})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	return family
}

func (f *fixture) joinFamily(t *testing.T, userID uuid.UUID, code string) domain.Family {
	t.Helper()
	family, err := f.service.JoinFamily(context.Background(), f.actor(userID), code)
	if err != nil {
		t.Fatalf("join family: %v", err)
	}
	return family
}

// seedCategory inserts a built-in category shared across families.
func (f *fixture) seedCategory(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := f.repos.Categories.Create(context.Background(), domain.TaskCategory{
		CategoryID: id,
		Name:       name,
		CreatedAt:  f.clock.Now(),
	})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return id
}

func (f *fixture) outboxEventTypes() []string {
	types := make([]string, 0)
	for _, rec := range f.repos.Outbox.Pending() {
		types = append(types, rec.EventType)
	}
	return types
}

func (f *fixture) notificationsFor(userID uuid.UUID) []domain.Notification {
	out := make([]domain.Notification, 0)
	for _, n := range f.repos.Notifications.All() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func hasEventType(types []string, want string) bool {
	for _, tp := range types {
		if tp == want {
			return true
		}
	}
	return false
}
