package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/domain"
)

func TestNotificationLifecycle(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	// Assigning a task to the child produces their first notification.
	tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:      "Sweep porch",
		AssignedTo: tf.childID,
	})

	actor := tf.actor(tf.childID)
	unread, _, err := tf.service.ListNotifications(ctx, actor, application.ListNotificationsInput{Status: "unread"})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread notification, got %d", len(unread))
	}
	count, err := tf.service.UnreadCount(ctx, actor)
	if err != nil || count != 1 {
		t.Fatalf("unread count: %d err=%v", count, err)
	}

	read, err := tf.service.MarkNotificationRead(ctx, actor, unread[0].NotificationID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if read.ReadAt == nil {
		t.Fatalf("read timestamp missing")
	}
	count, err = tf.service.UnreadCount(ctx, actor)
	if err != nil || count != 0 {
		t.Fatalf("unread count after read: %d err=%v", count, err)
	}

	archived, err := tf.service.ArchiveNotification(ctx, actor, unread[0].NotificationID)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.ArchivedAt == nil {
		t.Fatalf("archive timestamp missing")
	}

	rows, _, err := tf.service.ListNotifications(ctx, actor, application.ListNotificationsInput{Status: "archived"})
	if err != nil || len(rows) != 1 {
		t.Fatalf("archived listing: %d err=%v", len(rows), err)
	}

	if _, _, err := tf.service.ListNotifications(ctx, actor, application.ListNotificationsInput{Status: "starred"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad status filter should be invalid, got %v", err)
	}
}

func TestNotificationsAreOwnerScoped(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:      "Fold laundry",
		AssignedTo: tf.childID,
	})
	rows := tf.notificationsFor(tf.childID)
	if len(rows) == 0 {
		t.Fatalf("expected a notification to scope against")
	}

	// Another member sees someone else's row as missing, not forbidden.
	if _, err := tf.service.MarkNotificationRead(ctx, tf.actor(tf.parentID), rows[0].NotificationID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign mark-read should 404, got %v", err)
	}
	if _, err := tf.service.ArchiveNotification(ctx, tf.actor(tf.parentID), rows[0].NotificationID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign archive should 404, got %v", err)
	}
}

func TestPreferencesValidationAndPersistence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t, "prefs@example.com", domain.RoleParent)
	actor := f.actor(userID)

	// Defaults apply before any row exists.
	prefs, err := f.service.GetPreferences(ctx, actor)
	if err != nil {
		t.Fatalf("get default preferences: %v", err)
	}
	if !prefs.PushEnabled || !prefs.InAppEnabled || prefs.QuietHoursEnabled {
		t.Fatalf("unexpected defaults: %+v", prefs)
	}

	bad := []application.UpdatePreferencesInput{
		{QuietHoursEnabled: true, QuietHoursStart: "25:00", QuietHoursEnd: "07:00", QuietHoursTZ: "UTC"},
		{QuietHoursEnabled: true, QuietHoursStart: "9pm", QuietHoursEnd: "07:00", QuietHoursTZ: "UTC"},
		{QuietHoursEnabled: true, QuietHoursStart: "21:00", QuietHoursEnd: "07:00", QuietHoursTZ: "Mars/Olympus"},
	}
	for i, input := range bad {
		if _, err := f.service.UpdatePreferences(ctx, actor, input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("bad input %d should be rejected, got %v", i, err)
		}
	}

	saved, err := f.service.UpdatePreferences(ctx, actor, application.UpdatePreferencesInput{
		PushEnabled:       false,
		InAppEnabled:      true,
		QuietHoursEnabled: true,
		QuietHoursStart:   "21:00",
		QuietHoursEnd:     "07:00",
		QuietHoursTZ:      "Europe/Berlin",
	})
	if err != nil {
		t.Fatalf("update preferences: %v", err)
	}
	if saved.PushEnabled || !saved.QuietHoursEnabled || saved.QuietHoursTZ != "Europe/Berlin" {
		t.Fatalf("preferences not persisted: %+v", saved)
	}

	roundTrip, err := f.service.GetPreferences(ctx, actor)
	if err != nil {
		t.Fatalf("reload preferences: %v", err)
	}
	if roundTrip.QuietHoursStart != "21:00" || roundTrip.QuietHoursEnd != "07:00" {
		t.Fatalf("reloaded window mismatch: %+v", roundTrip)
	}
}
