package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
)

// UserRepository defines persistence operations for accounts and family membership.
// Membership mutation methods are explicit so the one-family-per-user invariant is
// enforced in one place rather than through generic updates.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	SetFamily(ctx context.Context, userID, familyID uuid.UUID, role string, at time.Time) error
	ClearFamily(ctx context.Context, userID uuid.UUID, at time.Time) error
	SetRole(ctx context.Context, userID uuid.UUID, role string, at time.Time) error
	ListByFamilyID(ctx context.Context, familyID uuid.UUID) ([]domain.User, error)
	CountByFamilyID(ctx context.Context, familyID uuid.UUID) (int, error)
}

// FamilyRepository manages tenant rows. Create must surface a unique-violation on
// the invite code as domain.ErrConflict so the caller can run its retry loop.
type FamilyRepository interface {
	Create(ctx context.Context, family domain.Family) error
	GetByID(ctx context.Context, familyID uuid.UUID) (domain.Family, error)
	GetByInviteCode(ctx context.Context, code string) (domain.Family, error)
	UpdateInviteCode(ctx context.Context, familyID uuid.UUID, code string, at time.Time) error
	UpdatePlan(ctx context.Context, familyID uuid.UUID, plan string, premiumUntil *time.Time, at time.Time) error
}

// TaskRepository persists tasks. AdvanceReminderLevel is a guarded compare-and-set:
// it must return false when the stored level no longer equals fromLevel, which is
// what keeps escalation exactly-once across concurrent worker replicas.
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) error
	GetByID(ctx context.Context, taskID uuid.UUID) (domain.Task, error)
	ListByFamilyID(ctx context.Context, familyID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, int, error)
	Update(ctx context.Context, task domain.Task) error
	Delete(ctx context.Context, taskID uuid.UUID) error
	ListDueForReminder(ctx context.Context, now time.Time, horizon time.Duration, limit int) ([]domain.Task, error)
	AdvanceReminderLevel(ctx context.Context, taskID uuid.UUID, fromLevel, toLevel int, at time.Time) (bool, error)
}

// CategoryRepository lists built-in defaults (nil family) together with a family's
// own categories.
type CategoryRepository interface {
	Create(ctx context.Context, category domain.TaskCategory) error
	GetByID(ctx context.Context, categoryID uuid.UUID) (domain.TaskCategory, error)
	ListForFamily(ctx context.Context, familyID uuid.UUID) ([]domain.TaskCategory, error)
}

// NotificationRepository stores the in-app feed. Create must treat a duplicate
// non-empty DedupKey as domain.ErrConflict; reminder writes rely on this.
type NotificationRepository interface {
	Create(ctx context.Context, row domain.Notification) error
	GetByID(ctx context.Context, notificationID uuid.UUID) (domain.Notification, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	Update(ctx context.Context, row domain.Notification) error
}

// PreferenceRepository returns nil (not an error) when a user never saved
// preferences; callers fall back to domain defaults.
type PreferenceRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error)
	Upsert(ctx context.Context, prefs domain.Preferences) error
}

type ActivityRepository interface {
	Create(ctx context.Context, row domain.Activity) error
	ListByFamilyID(ctx context.Context, familyID uuid.UUID, limit, offset int) ([]domain.Activity, error)
}

// SessionCreateParams captures metadata required to create a session record.
// Device and network fields are stored for auditability.
type SessionCreateParams struct {
	UserID         uuid.UUID
	DeviceName     string
	DeviceOS       string
	IPAddress      string
	UserAgent      string
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// SessionRepository manages persistent session lifecycle.
// It is separate from token parsing so revocation and activity tracking remain
// source-of-truth driven.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	GetByID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error)
	TouchActivity(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) error
	RevokeByID(ctx context.Context, sessionID uuid.UUID, revokedAt time.Time) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time) error
}

// LoginAttemptRepository stores login outcomes used by lockout and history endpoints.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error)
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for domain events.
// This explicit contract enables transactional outbox patterns without leaking DB details.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// IdempotencyRecord tracks a previously accepted mutating request.
// Storing response metadata lets handlers return stable replay responses.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}
