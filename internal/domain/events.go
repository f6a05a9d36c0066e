package domain

const (
	EventUserRegistered      = "user.registered"
	EventFamilyCreated       = "family.created"
	EventFamilyMemberJoined  = "family.member.joined"
	EventFamilyMemberLeft    = "family.member.left"
	EventFamilyMemberRemoved = "family.member.removed"
	EventFamilyRoleChanged   = "family.role.changed"
	EventFamilyHealed        = "family.reference.healed"
	EventTaskCreated         = "task.created"
	EventTaskCompleted       = "task.completed"
	EventTaskApproved        = "task.approved"
	EventTaskRejected        = "task.rejected"
	EventReminderEscalated   = "task.reminder.escalated"
	EventReminderPush        = "notification.push.requested"
	EventSubscriptionChanged = "subscription.changed"
)

func IsEmittedEvent(eventType string) bool {
	switch eventType {
	case EventUserRegistered, EventFamilyCreated, EventFamilyMemberJoined,
		EventFamilyMemberLeft, EventFamilyMemberRemoved, EventFamilyRoleChanged,
		EventFamilyHealed, EventTaskCreated, EventTaskCompleted, EventTaskApproved,
		EventTaskRejected, EventReminderEscalated, EventReminderPush,
		EventSubscriptionChanged:
		return true
	default:
		return false
	}
}
