package contracts

// SuccessResponse is the uniform success envelope for every HTTP endpoint.
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name,omitempty"`
	DeviceOS   string `json:"device_os,omitempty"`
}

type LoginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      UserDTO `json:"user"`
}

type UserDTO struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	FamilyID    string `json:"family_id,omitempty"`
}

type SessionDTO struct {
	SessionID      string `json:"session_id"`
	DeviceName     string `json:"device_name,omitempty"`
	DeviceOS       string `json:"device_os,omitempty"`
	CreatedAt      string `json:"created_at"`
	LastActivityAt string `json:"last_activity_at"`
	Current        bool   `json:"current"`
	Revoked        bool   `json:"revoked"`
}

type LoginHistoryItemDTO struct {
	Timestamp     string `json:"timestamp"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	IPAddress     string `json:"ip_address,omitempty"`
	DeviceName    string `json:"device_name,omitempty"`
}

type CreateFamilyRequest struct {
	Name string `json:"name"`
}

type FamilyResponse struct {
	FamilyID   string            `json:"family_id"`
	Name       string            `json:"name"`
	InviteCode string            `json:"invite_code,omitempty"`
	Plan       string            `json:"plan"`
	Members    []FamilyMemberDTO `json:"members,omitempty"`
}

type FamilyMemberDTO struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type JoinFamilyRequest struct {
	InviteCode string `json:"invite_code"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type CreateTaskRequest struct {
	Title           string `json:"title"`
	Notes           string `json:"notes,omitempty"`
	CategoryID      string `json:"category_id"`
	AssignedTo      string `json:"assigned_to"`
	DueAt           string `json:"due_at"`
	Recurrence      string `json:"recurrence,omitempty"`
	RequiresPhoto   bool   `json:"requires_photo,omitempty"`
	ReminderEnabled bool   `json:"reminder_enabled,omitempty"`
}

type UpdateTaskRequest struct {
	Title           *string `json:"title,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	CategoryID      *string `json:"category_id,omitempty"`
	AssignedTo      *string `json:"assigned_to,omitempty"`
	DueAt           *string `json:"due_at,omitempty"`
	Recurrence      *string `json:"recurrence,omitempty"`
	RequiresPhoto   *bool   `json:"requires_photo,omitempty"`
	ReminderEnabled *bool   `json:"reminder_enabled,omitempty"`
}

type CompleteTaskRequest struct {
	PhotoURL string `json:"photo_url,omitempty"`
}

type TaskDTO struct {
	TaskID          string `json:"task_id"`
	FamilyID        string `json:"family_id"`
	Title           string `json:"title"`
	Notes           string `json:"notes,omitempty"`
	CategoryID      string `json:"category_id,omitempty"`
	AssignedTo      string `json:"assigned_to"`
	CreatedBy       string `json:"created_by"`
	DueAt           string `json:"due_at"`
	Status          string `json:"status"`
	Recurrence      string `json:"recurrence"`
	RequiresPhoto   bool   `json:"requires_photo"`
	PhotoURL        string `json:"photo_url,omitempty"`
	ReminderEnabled bool   `json:"reminder_enabled"`
	ReminderLevel   int    `json:"reminder_level"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

type TaskListResponse struct {
	Tasks []TaskDTO `json:"tasks"`
	Total int       `json:"total"`
}

type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type CategoryDTO struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Default    bool   `json:"default"`
}

type NotificationDTO struct {
	NotificationID string            `json:"notification_id"`
	Type           string            `json:"type"`
	Title          string            `json:"title"`
	Body           string            `json:"body,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      string            `json:"created_at"`
	Read           bool              `json:"read"`
	Archived       bool              `json:"archived"`
}

type NotificationListResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Total         int               `json:"total"`
}

type PreferencesDTO struct {
	PushEnabled       bool   `json:"push_enabled"`
	InAppEnabled      bool   `json:"in_app_enabled"`
	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     string `json:"quiet_hours_end,omitempty"`
	QuietHoursTZ      string `json:"quiet_hours_timezone,omitempty"`
}

type ActivityDTO struct {
	ActivityID string            `json:"activity_id"`
	ActorID    string            `json:"actor_id"`
	Action     string            `json:"action"`
	TargetID   string            `json:"target_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt string            `json:"occurred_at"`
}

type SubscriptionResponse struct {
	Plan         string `json:"plan"`
	PremiumUntil string `json:"premium_until,omitempty"`
	MaxMembers   int    `json:"max_members"`
}

type BillingEventRequest struct {
	FamilyID  string `json:"family_id"`
	Event     string `json:"event"`
	ExpiresAt string `json:"expires_at,omitempty"`
}
