package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/typeb/familyhub/internal/adapters/memory"
	"github.com/typeb/familyhub/internal/adapters/security"
	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/domain"
)

func (tf *taskFixture) reminderLevel(t *testing.T, taskID uuid.UUID) int {
	t.Helper()
	task, err := tf.service.GetTask(context.Background(), tf.actor(tf.parentID), tf.family.FamilyID, taskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	return task.ReminderLevel
}

func (tf *taskFixture) dedupKeys(userID uuid.UUID) map[string]int {
	keys := make(map[string]int)
	for _, n := range tf.notificationsFor(userID) {
		if n.DedupKey != "" {
			keys[n.DedupKey]++
		}
	}
	return keys
}

func TestReminderEscalationLadder(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:           "Pack schoolbag",
		AssignedTo:      tf.childID,
		DueAt:           tf.clock.Now().Add(40 * time.Minute),
		ReminderEnabled: true,
	})

	// T-40: outside all offsets, nothing fires.
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 0 {
		t.Fatalf("scan at T-40: n=%d err=%v", n, err)
	}

	// T-29: inside the 30-minute offset.
	tf.clock.Advance(11 * time.Minute)
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 1 {
		t.Fatalf("scan at T-29: n=%d err=%v", n, err)
	}
	if lvl := tf.reminderLevel(t, task.TaskID); lvl != 1 {
		t.Fatalf("level after T-29 scan: %d", lvl)
	}

	// T-14: inside the 15-minute offset.
	tf.clock.Advance(15 * time.Minute)
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 1 {
		t.Fatalf("scan at T-14: n=%d err=%v", n, err)
	}
	if lvl := tf.reminderLevel(t, task.TaskID); lvl != 2 {
		t.Fatalf("level after T-14 scan: %d", lvl)
	}

	// T-4: final step, parents get alerted.
	tf.clock.Advance(10 * time.Minute)
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 1 {
		t.Fatalf("scan at T-4: n=%d err=%v", n, err)
	}
	if lvl := tf.reminderLevel(t, task.TaskID); lvl != domain.ReminderMaxLevel {
		t.Fatalf("level after T-4 scan: %d", lvl)
	}

	keys := tf.dedupKeys(tf.childID)
	for lvl := 1; lvl <= 3; lvl++ {
		k := domain.ReminderDedupKey(task.TaskID, lvl)
		if keys[k] != 1 {
			t.Fatalf("expected exactly one notification for %s, got %d", k, keys[k])
		}
	}
	parentKeys := tf.dedupKeys(tf.parentID)
	alertKey := domain.ReminderDedupKey(task.TaskID, domain.ReminderMaxLevel) + ":parent:" + tf.parentID.String()
	if parentKeys[alertKey] != 1 {
		t.Fatalf("expected one parent alert under %s, got %d", alertKey, parentKeys[alertKey])
	}

	// Rescanning at the same level neither escalates nor duplicates rows.
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 0 {
		t.Fatalf("idle rescan: n=%d err=%v", n, err)
	}
	if again := tf.dedupKeys(tf.childID); len(again) != len(keys) {
		t.Fatalf("rescan created notifications: %v", again)
	}
}

func TestSkippedScansCollapseIntoOneStep(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:           "Water plants",
		AssignedTo:      tf.childID,
		DueAt:           tf.clock.Now().Add(4 * time.Minute),
		ReminderEnabled: true,
	})

	// The worker was down through T-30 and T-15; the first scan at T-4 lands
	// directly on the final level with a single notification.
	n, err := tf.service.EscalateDueReminders(ctx)
	if err != nil || n != 1 {
		t.Fatalf("collapsed scan: n=%d err=%v", n, err)
	}
	if lvl := tf.reminderLevel(t, task.TaskID); lvl != domain.ReminderMaxLevel {
		t.Fatalf("collapsed level: %d", lvl)
	}

	notes := tf.notificationsFor(tf.childID)
	reminders := 0
	for _, row := range notes {
		if row.Type == domain.NotificationTypeTaskReminder {
			reminders++
		}
	}
	if reminders != 1 {
		t.Fatalf("expected a single collapsed reminder, got %d", reminders)
	}
}

func TestQuietHoursDeferEscalation(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	// Fixture clock starts at 12:00 UTC; quiet window covers 12:00-12:20.
	if _, err := tf.service.UpdatePreferences(ctx, tf.actor(tf.childID), application.UpdatePreferencesInput{
		PushEnabled:       true,
		InAppEnabled:      true,
		QuietHoursEnabled: true,
		QuietHoursStart:   "12:00",
		QuietHoursEnd:     "12:20",
		QuietHoursTZ:      "UTC",
	}); err != nil {
		t.Fatalf("set quiet hours: %v", err)
	}

	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:           "Read a chapter",
		AssignedTo:      tf.childID,
		DueAt:           tf.clock.Now().Add(40 * time.Minute),
		ReminderEnabled: true,
	})

	// 12:11, T-29: due for level 1 but inside quiet hours.
	tf.clock.Advance(11 * time.Minute)
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 0 {
		t.Fatalf("quiet-hours scan: n=%d err=%v", n, err)
	}
	if lvl := tf.reminderLevel(t, task.TaskID); lvl != 0 {
		t.Fatalf("quiet hours must not advance the level, got %d", lvl)
	}

	// 12:25, T-15: window closed, the deferred reminder fires at the level the
	// clock now calls for.
	tf.clock.Advance(14 * time.Minute)
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 1 {
		t.Fatalf("post-quiet scan: n=%d err=%v", n, err)
	}
	if lvl := tf.reminderLevel(t, task.TaskID); lvl != 2 {
		t.Fatalf("deferred escalation should land on level 2, got %d", lvl)
	}
}

func TestEscalationLosesRaceToAnotherReplica(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:           "Set the table",
		AssignedTo:      tf.childID,
		DueAt:           tf.clock.Now().Add(29 * time.Minute),
		ReminderEnabled: true,
	})

	// Another replica advances the stored level between scan and apply.
	advanced, err := tf.repos.Tasks.AdvanceReminderLevel(ctx, task.TaskID, 0, 1, tf.clock.Now())
	if err != nil || !advanced {
		t.Fatalf("pre-advance: advanced=%v err=%v", advanced, err)
	}

	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 0 {
		t.Fatalf("lost race should escalate nothing, n=%d err=%v", n, err)
	}
	if len(tf.notificationsFor(tf.childID)) != 0 {
		t.Fatalf("lost race should not notify")
	}
}

func TestReminderPushIsPremiumGated(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:           "Free tier task",
		AssignedTo:      tf.childID,
		DueAt:           tf.clock.Now().Add(25 * time.Minute),
		ReminderEnabled: true,
	})
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 1 {
		t.Fatalf("free-tier scan: n=%d err=%v", n, err)
	}
	types := tf.outboxEventTypes()
	if !hasEventType(types, domain.EventReminderEscalated) {
		t.Fatalf("escalation event missing on free tier")
	}
	if hasEventType(types, domain.EventReminderPush) {
		t.Fatalf("push event should be premium only")
	}

	until := tf.clock.Now().Add(30 * 24 * time.Hour)
	if _, err := tf.service.ApplyBillingEvent(ctx, application.BillingEventInput{
		FamilyID:  tf.family.FamilyID,
		Event:     domain.BillingEventActivated,
		ExpiresAt: &until,
	}); err != nil {
		t.Fatalf("activate premium: %v", err)
	}

	tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:           "Premium task",
		AssignedTo:      tf.childID,
		DueAt:           tf.clock.Now().Add(25 * time.Minute),
		ReminderEnabled: true,
	})
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 1 {
		t.Fatalf("premium scan: n=%d err=%v", n, err)
	}
	if !hasEventType(tf.outboxEventTypes(), domain.EventReminderPush) {
		t.Fatalf("premium plan should enqueue push events")
	}
}

func TestDisabledRemindersNeverEscalate(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:      "Quiet task",
		AssignedTo: tf.childID,
		DueAt:      tf.clock.Now().Add(4 * time.Minute),
	})
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 0 {
		t.Fatalf("disabled reminder escalated: n=%d err=%v", n, err)
	}
	if lvl := tf.reminderLevel(t, task.TaskID); lvl != 0 {
		t.Fatalf("disabled reminder advanced to %d", lvl)
	}
}

func TestAscendingOffsetConfigScansFullHorizon(t *testing.T) {
	t.Parallel()

	repos := memory.NewRepositories()
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:             24 * time.Hour,
			SessionTTL:           30 * 24 * time.Hour,
			FailedLoginThreshold: 5,
			FailedLoginWindow:    15 * time.Minute,
			LockoutDuration:      30 * time.Minute,
			InviteCodeAttempts:   5,
			ReminderOffsets:      []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute},
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
		Lockouts:      memory.NewLockoutStore(),
		Revocations:   memory.NewSessionRevocationStore(),
		Hasher:        security.NewBcryptHasher(4),
		TokenSigner:   testSigner(t),
	}).WithClock(clock.Now, clock.Sleep)
	f := &fixture{service: svc, repos: repos, clock: clock}

	parentID := f.register(t, "ascending@example.com", domain.RoleParent)
	childID := f.register(t, "ascendingkid@example.com", domain.RoleChild)
	family := f.createFamily(t, parentID, "Unsorted Config")
	f.joinFamily(t, childID, family.InviteCode)

	ctx := context.Background()
	task, err := svc.CreateTask(ctx, f.actor(parentID), family.FamilyID, application.CreateTaskInput{
		Title:           "Order-insensitive",
		AssignedTo:      childID,
		DueAt:           clock.Now().Add(25 * time.Minute),
		ReminderEnabled: true,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	// A task 25 minutes out sits inside the 30-minute offset. A scan horizon
	// taken from the raw first element (5 minutes) would skip it entirely.
	if n, err := svc.EscalateDueReminders(ctx); err != nil || n != 1 {
		t.Fatalf("scan with ascending offsets: n=%d err=%v", n, err)
	}
	got, err := svc.GetTask(ctx, f.actor(parentID), family.FamilyID, task.TaskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.ReminderLevel != 1 {
		t.Fatalf("expected level 1, got %d", got.ReminderLevel)
	}
}
