package application

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"github.com/typeb/familyhub/internal/ports"
)

type Config struct {
	ServiceName string

	TokenTTL   time.Duration
	SessionTTL time.Duration

	FailedLoginThreshold int
	FailedLoginWindow    time.Duration
	LockoutDuration      time.Duration
	FailureDelayMin      time.Duration
	FailureDelayMax      time.Duration

	InviteCodeAttempts int
	IdempotencyTTL     time.Duration

	ReminderOffsets   []time.Duration
	ReminderScanBatch int
}

// Actor is the authenticated principal attached to every family/task operation.
// Role is resolved from claims; authorization guards re-read the user row so a
// mid-session role change or healed family reference takes effect immediately.
type Actor struct {
	UserID         uuid.UUID
	Role           string
	SessionID      uuid.UUID
	RequestID      string
	IdempotencyKey string
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	IPAddress   string `json:"-"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"user_id"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name"`
	DeviceOS   string `json:"device_os"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"-"`
}

type SessionItem struct {
	SessionID      uuid.UUID
	DeviceName     string
	DeviceOS       string
	CreatedAt      time.Time
	LastActivityAt time.Time
	Current        bool
	Revoked        bool
}

type LoginHistoryQuery struct {
	Page   int
	Limit  int
	Days   int
	Status string
}

type CreateFamilyInput struct {
	Name string
}

type FamilyDetails struct {
	Family  domain.Family
	Members []domain.User
}

type CreateTaskInput struct {
	Title           string
	Notes           string
	CategoryID      uuid.UUID
	AssignedTo      uuid.UUID
	DueAt           time.Time
	Recurrence      string
	RequiresPhoto   bool
	ReminderEnabled bool
}

type UpdateTaskInput struct {
	Title           *string
	Notes           *string
	CategoryID      *uuid.UUID
	AssignedTo      *uuid.UUID
	DueAt           *time.Time
	Recurrence      *string
	RequiresPhoto   *bool
	ReminderEnabled *bool
}

type ListTasksInput struct {
	Status     string
	AssignedTo *uuid.UUID
	Page       int
	PageSize   int
}

type ListNotificationsInput struct {
	Type     string
	Status   string
	Page     int
	PageSize int
}

type UpdatePreferencesInput struct {
	PushEnabled       bool
	InAppEnabled      bool
	QuietHoursEnabled bool
	QuietHoursStart   string
	QuietHoursEnd     string
	QuietHoursTZ      string
}

type BillingEventInput struct {
	FamilyID  uuid.UUID
	Event     string
	ExpiresAt *time.Time
}

type SubscriptionInfo struct {
	Plan         string
	PremiumUntil *time.Time
	Entitlements domain.Entitlements
}

type Service struct {
	cfg Config

	users         ports.UserRepository
	families      ports.FamilyRepository
	tasks         ports.TaskRepository
	categories    ports.CategoryRepository
	notifications ports.NotificationRepository
	prefs         ports.PreferenceRepository
	activities    ports.ActivityRepository
	sessions      ports.SessionRepository
	loginAttempts ports.LoginAttemptRepository
	outbox        ports.OutboxRepository
	idempotency   ports.IdempotencyRepository

	lockouts    ports.LockoutStore
	revocations ports.SessionRevocationStore

	hasher      ports.PasswordHasher
	tokenSigner ports.TokenSigner

	nowFn   func() time.Time
	sleepFn func(time.Duration)
}

type Dependencies struct {
	Config Config

	Users         ports.UserRepository
	Families      ports.FamilyRepository
	Tasks         ports.TaskRepository
	Categories    ports.CategoryRepository
	Notifications ports.NotificationRepository
	Preferences   ports.PreferenceRepository
	Activities    ports.ActivityRepository
	Sessions      ports.SessionRepository
	LoginAttempts ports.LoginAttemptRepository
	Outbox        ports.OutboxRepository
	Idempotency   ports.IdempotencyRepository

	Lockouts    ports.LockoutStore
	Revocations ports.SessionRevocationStore

	Hasher      ports.PasswordHasher
	TokenSigner ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "TypeB-Family-Service"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.FailedLoginWindow <= 0 {
		cfg.FailedLoginWindow = 15 * time.Minute
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	if cfg.FailureDelayMin <= 0 {
		cfg.FailureDelayMin = 50 * time.Millisecond
	}
	if cfg.FailureDelayMax <= cfg.FailureDelayMin {
		cfg.FailureDelayMax = cfg.FailureDelayMin + 200*time.Millisecond
	}
	if cfg.InviteCodeAttempts <= 0 {
		cfg.InviteCodeAttempts = 5
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if len(cfg.ReminderOffsets) == 0 {
		cfg.ReminderOffsets = []time.Duration{30 * time.Minute, 15 * time.Minute, 5 * time.Minute}
	}
	// The scan horizon is offsets[0]; normalize so any configured order works.
	cfg.ReminderOffsets = append([]time.Duration(nil), cfg.ReminderOffsets...)
	sort.Slice(cfg.ReminderOffsets, func(i, j int) bool {
		return cfg.ReminderOffsets[i] > cfg.ReminderOffsets[j]
	})
	if cfg.ReminderScanBatch <= 0 {
		cfg.ReminderScanBatch = 200
	}
	return &Service{
		cfg:           cfg,
		users:         deps.Users,
		families:      deps.Families,
		tasks:         deps.Tasks,
		categories:    deps.Categories,
		notifications: deps.Notifications,
		prefs:         deps.Preferences,
		activities:    deps.Activities,
		sessions:      deps.Sessions,
		loginAttempts: deps.LoginAttempts,
		outbox:        deps.Outbox,
		idempotency:   deps.Idempotency,
		lockouts:      deps.Lockouts,
		revocations:   deps.Revocations,
		hasher:        deps.Hasher,
		tokenSigner:   deps.TokenSigner,
		nowFn:         func() time.Time { return time.Now().UTC() },
		sleepFn:       time.Sleep,
	}
}

// WithClock overrides time and sleep sources. Tests use this to drive the
// reminder ladder deterministically.
func (s *Service) WithClock(now func() time.Time, sleep func(time.Duration)) *Service {
	if now != nil {
		s.nowFn = now
	}
	if sleep != nil {
		s.sleepFn = sleep
	}
	return s
}
