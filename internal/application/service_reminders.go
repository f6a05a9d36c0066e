package application

import (
	"context"
	"fmt"
	"time"

	"github.com/typeb/familyhub/internal/domain"
)

// EscalateDueReminders runs one reminder scan. Escalation is a pure function of
// persisted state: the target level is derived from the distance to DueAt and
// the configured offsets, and the transition is applied with a guarded
// compare-and-set on the stored level. A crashed or duplicated worker replica
// re-derives the same target and loses the CAS race, so each (task, level) step
// fires at most once and a missed scan window only collapses skipped steps into
// the current one.
func (s *Service) EscalateDueReminders(ctx context.Context) (int, error) {
	now := s.nowFn()
	horizon := s.cfg.ReminderOffsets[0]
	tasks, err := s.tasks.ListDueForReminder(ctx, now, horizon, s.cfg.ReminderScanBatch)
	if err != nil {
		return 0, fmt.Errorf("scan due reminders: %w", err)
	}

	escalated := 0
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return escalated, ctx.Err()
		default:
		}
		ok, err := s.escalateTask(ctx, task, now)
		if err != nil {
			s.logger().WarnContext(ctx, "reminder escalation failed",
				"operation", "escalate_due_reminders",
				"outcome", "failure",
				"task_id", task.TaskID,
				"error", err,
			)
			continue
		}
		if ok {
			escalated++
		}
	}
	return escalated, nil
}

func (s *Service) escalateTask(ctx context.Context, task domain.Task, now time.Time) (bool, error) {
	if !task.ReminderEnabled || !task.IsOpen() {
		return false, nil
	}
	target := s.reminderTargetLevel(task.DueAt, now)
	if target <= task.ReminderLevel {
		return false, nil
	}

	prefs := s.preferencesFor(ctx, task.AssignedTo)
	if prefs.InQuietHours(now) {
		// Deferred, not dropped: the stored level is untouched, so the next
		// scan after the window opens lands on the same target.
		return false, nil
	}

	advanced, err := s.tasks.AdvanceReminderLevel(ctx, task.TaskID, task.ReminderLevel, target, now)
	if err != nil {
		return false, err
	}
	if !advanced {
		// Another replica advanced this task first.
		return false, nil
	}

	_ = s.pushNotification(ctx, domain.Notification{
		UserID:   task.AssignedTo,
		Type:     domain.NotificationTypeTaskReminder,
		Title:    reminderTitle(task.Title, target),
		Metadata: map[string]string{"task_id": task.TaskID.String(), "level": fmt.Sprintf("%d", target)},
		DedupKey: domain.ReminderDedupKey(task.TaskID, target),
	})

	s.enqueueEvent(ctx, domain.EventReminderEscalated, task.FamilyID.String(), map[string]any{
		"task_id":    task.TaskID.String(),
		"family_id":  task.FamilyID.String(),
		"from_level": task.ReminderLevel,
		"to_level":   target,
	})

	if target == domain.ReminderMaxLevel {
		s.notifyParents(ctx, task.FamilyID, task.AssignedTo, domain.Notification{
			Type:     domain.NotificationTypeParentAlert,
			Title:    task.Title + " is still not done",
			Metadata: map[string]string{"task_id": task.TaskID.String()},
			DedupKey: domain.ReminderDedupKey(task.TaskID, target) + ":parent",
		})
	}

	// Push delivery is a premium entitlement; the in-app row above is free tier.
	if family, err := s.families.GetByID(ctx, task.FamilyID); err == nil {
		ent := domain.EntitlementsForPlan(family.EffectivePlan(now))
		if ent.ReminderPush && prefs.PushEnabled {
			s.enqueueEvent(ctx, domain.EventReminderPush, task.AssignedTo.String(), map[string]any{
				"user_id":   task.AssignedTo.String(),
				"task_id":   task.TaskID.String(),
				"level":     target,
				"dedup_key": domain.ReminderDedupKey(task.TaskID, target),
			})
		}
	}
	return true, nil
}

// reminderTargetLevel maps the distance to the due time onto an escalation level.
// Offsets are ordered farthest-first; the level is the count of offsets already
// crossed, capped at ReminderMaxLevel.
func (s *Service) reminderTargetLevel(dueAt, now time.Time) int {
	remaining := dueAt.Sub(now)
	level := 0
	for _, offset := range s.cfg.ReminderOffsets {
		if remaining <= offset {
			level++
		}
	}
	if level > domain.ReminderMaxLevel {
		level = domain.ReminderMaxLevel
	}
	return level
}

func reminderTitle(taskTitle string, level int) string {
	switch level {
	case 1:
		return "Reminder: " + taskTitle
	case 2:
		return "Heads up: " + taskTitle + " is due soon"
	default:
		return "Last call: " + taskTitle
	}
}
