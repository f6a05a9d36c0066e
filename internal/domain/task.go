package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusPending         = "pending"
	TaskStatusPendingApproval = "pending_approval"
	TaskStatusCompleted       = "completed"
)

const (
	RecurrenceNone   = "none"
	RecurrenceDaily  = "daily"
	RecurrenceWeekly = "weekly"
)

// ReminderMaxLevel is the final escalation step. Levels 1..3 fire at fixed offsets
// before the due time; reaching the final level additionally alerts the parents.
const ReminderMaxLevel = 3

// Task is a unit of work assigned to a family member. Completion of a task with
// RequiresPhoto moves it to pending_approval until a parent approves or rejects the
// attached photo. ReminderLevel is the persisted escalation state; the reminder
// worker only ever advances it, which makes escalation restart-safe and duplicate-free.
type Task struct {
	TaskID          uuid.UUID
	FamilyID        uuid.UUID
	Title           string
	Notes           string
	CategoryID      uuid.UUID
	AssignedTo      uuid.UUID
	CreatedBy       uuid.UUID
	DueAt           time.Time
	Status          string
	Recurrence      string
	RequiresPhoto   bool
	PhotoURL        string
	ReminderEnabled bool
	ReminderLevel   int
	LastReminderAt  *time.Time
	CompletedAt     *time.Time
	ReviewedBy      *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (t Task) IsOpen() bool {
	return t.Status == TaskStatusPending
}

// NextOccurrence advances the due time by one recurrence period.
// Each occurrence is a distinct row, so overlapping instances cannot share
// reminder state.
func (t Task) NextOccurrence() (time.Time, bool) {
	switch t.Recurrence {
	case RecurrenceDaily:
		return t.DueAt.Add(24 * time.Hour), true
	case RecurrenceWeekly:
		return t.DueAt.Add(7 * 24 * time.Hour), true
	default:
		return time.Time{}, false
	}
}

func IsValidRecurrence(v string) bool {
	switch v {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly:
		return true
	default:
		return false
	}
}

func IsValidTaskStatus(v string) bool {
	switch v {
	case TaskStatusPending, TaskStatusPendingApproval, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// TaskCategory labels tasks. Rows with a nil FamilyID are the built-in defaults
// visible to every family; family-owned rows are a premium entitlement.
type TaskCategory struct {
	CategoryID uuid.UUID
	FamilyID   *uuid.UUID
	Name       string
	Color      string
	CreatedAt  time.Time
}

// TaskFilter narrows family task listings.
type TaskFilter struct {
	Status     string
	AssignedTo *uuid.UUID
	Page       int
	PageSize   int
}
