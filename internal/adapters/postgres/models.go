package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email"`
	PasswordHash string     `gorm:"column:password_hash"`
	DisplayName  string     `gorm:"column:display_name"`
	Role         string     `gorm:"column:role"`
	FamilyID     *uuid.UUID `gorm:"column:family_id"`
	IsActive     bool       `gorm:"column:is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type familyModel struct {
	FamilyID     uuid.UUID  `gorm:"column:family_id;type:uuid;primaryKey"`
	Name         string     `gorm:"column:name"`
	InviteCode   string     `gorm:"column:invite_code"`
	Plan         string     `gorm:"column:plan"`
	PremiumUntil *time.Time `gorm:"column:premium_until"`
	CreatedBy    uuid.UUID  `gorm:"column:created_by"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (familyModel) TableName() string { return "families" }

type taskModel struct {
	TaskID          uuid.UUID  `gorm:"column:task_id;type:uuid;primaryKey"`
	FamilyID        uuid.UUID  `gorm:"column:family_id"`
	Title           string     `gorm:"column:title"`
	Notes           string     `gorm:"column:notes"`
	CategoryID      *uuid.UUID `gorm:"column:category_id"`
	AssignedTo      uuid.UUID  `gorm:"column:assigned_to"`
	CreatedBy       uuid.UUID  `gorm:"column:created_by"`
	DueAt           time.Time  `gorm:"column:due_at"`
	Status          string     `gorm:"column:status"`
	Recurrence      string     `gorm:"column:recurrence"`
	RequiresPhoto   bool       `gorm:"column:requires_photo"`
	PhotoURL        *string    `gorm:"column:photo_url"`
	ReminderEnabled bool       `gorm:"column:reminder_enabled"`
	ReminderLevel   int        `gorm:"column:reminder_level"`
	LastReminderAt  *time.Time `gorm:"column:last_reminder_at"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
	ReviewedBy      *uuid.UUID `gorm:"column:reviewed_by"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (taskModel) TableName() string { return "tasks" }

type categoryModel struct {
	CategoryID uuid.UUID  `gorm:"column:category_id;type:uuid;primaryKey"`
	FamilyID   *uuid.UUID `gorm:"column:family_id"`
	Name       string     `gorm:"column:name"`
	Color      string     `gorm:"column:color"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

func (categoryModel) TableName() string { return "task_categories" }

type notificationModel struct {
	NotificationID uuid.UUID  `gorm:"column:notification_id;type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id"`
	Type           string     `gorm:"column:type"`
	Title          string     `gorm:"column:title"`
	Body           string     `gorm:"column:body"`
	Metadata       string     `gorm:"column:metadata;type:jsonb"`
	DedupKey       *string    `gorm:"column:dedup_key"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	ArchivedAt     *time.Time `gorm:"column:archived_at"`
}

func (notificationModel) TableName() string { return "notifications" }

type preferenceModel struct {
	UserID            uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	PushEnabled       bool      `gorm:"column:push_enabled"`
	InAppEnabled      bool      `gorm:"column:in_app_enabled"`
	QuietHoursEnabled bool      `gorm:"column:quiet_hours_enabled"`
	QuietHoursStart   string    `gorm:"column:quiet_hours_start"`
	QuietHoursEnd     string    `gorm:"column:quiet_hours_end"`
	QuietHoursTZ      string    `gorm:"column:quiet_hours_tz"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (preferenceModel) TableName() string { return "notification_preferences" }

type activityModel struct {
	ActivityID uuid.UUID `gorm:"column:activity_id;type:uuid;primaryKey"`
	FamilyID   uuid.UUID `gorm:"column:family_id"`
	ActorID    uuid.UUID `gorm:"column:actor_id"`
	Action     string    `gorm:"column:action"`
	TargetID   string    `gorm:"column:target_id"`
	Metadata   string    `gorm:"column:metadata;type:jsonb"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (activityModel) TableName() string { return "family_activity" }

type sessionModel struct {
	SessionID      uuid.UUID  `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id"`
	DeviceName     string     `gorm:"column:device_name"`
	DeviceOS       string     `gorm:"column:device_os"`
	IPAddress      *string    `gorm:"column:ip_address"`
	UserAgent      string     `gorm:"column:user_agent"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	LastActivityAt time.Time  `gorm:"column:last_activity_at"`
	ExpiresAt      time.Time  `gorm:"column:expires_at"`
	RevokedAt      *time.Time `gorm:"column:revoked_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type loginAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	UserID        *uuid.UUID `gorm:"column:user_id"`
	AttemptAt     time.Time  `gorm:"column:attempt_at"`
	IPAddress     *string    `gorm:"column:ip_address"`
	Status        string     `gorm:"column:status"`
	FailureReason string     `gorm:"column:failure_reason"`
	DeviceName    string     `gorm:"column:device_name"`
	DeviceOS      string     `gorm:"column:device_os"`
	UserAgent     string     `gorm:"column:user_agent"`
}

func (loginAttemptModel) TableName() string { return "login_attempts" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "family_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "family_idempotency" }
