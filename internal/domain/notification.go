package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTypeTaskAssigned  = "task.assigned"
	NotificationTypeTaskReminder  = "task.reminder"
	NotificationTypeParentAlert   = "task.parent_alert"
	NotificationTypeTaskReviewed  = "task.reviewed"
	NotificationTypeFamilyJoined  = "family.joined"
	NotificationTypeFamilyRemoved = "family.removed"
)

// Notification is an in-app feed entry. DedupKey makes writes idempotent for
// machine-generated notifications (one row per task and escalation level).
type Notification struct {
	NotificationID uuid.UUID
	UserID         uuid.UUID
	Type           string
	Title          string
	Body           string
	Metadata       map[string]string
	DedupKey       string
	CreatedAt      time.Time
	ReadAt         *time.Time
	ArchivedAt     *time.Time
}

func (n Notification) IsUnread() bool { return n.ReadAt == nil && n.ArchivedAt == nil }

func (n *Notification) MarkRead(at time.Time) {
	if n.ReadAt == nil {
		t := at.UTC()
		n.ReadAt = &t
	}
}

func (n *Notification) Archive(at time.Time) {
	if n.ArchivedAt == nil {
		t := at.UTC()
		n.ArchivedAt = &t
	}
}

type NotificationFilter struct {
	Type     string
	Status   string
	Page     int
	PageSize int
}

// Preferences controls delivery per user. Quiet hours are wall-clock "HH:MM" bounds
// in the user's timezone; a window spanning midnight (start > end) is supported.
type Preferences struct {
	UserID            uuid.UUID
	PushEnabled       bool
	InAppEnabled      bool
	QuietHoursEnabled bool
	QuietHoursStart   string
	QuietHoursEnd     string
	QuietHoursTZ      string
	UpdatedAt         time.Time
}

func DefaultPreferences(userID uuid.UUID, now time.Time) Preferences {
	return Preferences{
		UserID:            userID,
		PushEnabled:       true,
		InAppEnabled:      true,
		QuietHoursEnabled: false,
		QuietHoursTZ:      "UTC",
		UpdatedAt:         now.UTC(),
	}
}

// InQuietHours reports whether the given instant falls inside the user's quiet
// window. Reminders due inside the window are deferred, never dropped: escalation
// level math is monotonic, so the pending level fires on the first scan after the
// window opens.
func (p Preferences) InQuietHours(at time.Time) bool {
	if !p.QuietHoursEnabled || p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false
	}
	loc, err := time.LoadLocation(p.QuietHoursTZ)
	if err != nil {
		loc = time.UTC
	}
	local := at.In(loc)
	start, okStart := parseClock(p.QuietHoursStart)
	end, okEnd := parseClock(p.QuietHoursEnd)
	if !okStart || !okEnd {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	if start <= end {
		return minutes >= start && minutes < end
	}
	// window crosses midnight
	return minutes >= start || minutes < end
}

func parseClock(v string) (int, bool) {
	var h, m int
	if len(v) != 5 || v[2] != ':' {
		return 0, false
	}
	for _, c := range []byte{v[0], v[1], v[3], v[4]} {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	h = int(v[0]-'0')*10 + int(v[1]-'0')
	m = int(v[3]-'0')*10 + int(v[4]-'0')
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// ReminderDedupKey returns the stable identity of a single escalation step.
func ReminderDedupKey(taskID uuid.UUID, level int) string {
	return fmt.Sprintf("reminder:%s:%d", taskID, level)
}
