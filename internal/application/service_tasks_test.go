package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/domain"
)

type taskFixture struct {
	*fixture
	parentID uuid.UUID
	childID  uuid.UUID
	family   domain.Family
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	f := newFixture(t)
	parentID := f.register(t, "taskparent@example.com", domain.RoleParent)
	childID := f.register(t, "taskkid@example.com", domain.RoleChild)
	family := f.createFamily(t, parentID, "Tasky")
	f.joinFamily(t, childID, family.InviteCode)
	return &taskFixture{fixture: f, parentID: parentID, childID: childID, family: family}
}

func (tf *taskFixture) createTask(t *testing.T, actorID uuid.UUID, input application.CreateTaskInput) domain.Task {
	t.Helper()
	if input.DueAt.IsZero() {
		input.DueAt = tf.clock.Now().Add(2 * time.Hour)
	}
	task, err := tf.service.CreateTask(context.Background(), tf.actor(actorID), tf.family.FamilyID, input)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestCreateTaskAssignsAndNotifies(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:      "Take out trash",
		AssignedTo: tf.childID,
	})
	if task.Status != domain.TaskStatusPending {
		t.Fatalf("new task status %q", task.Status)
	}
	if task.AssignedTo != tf.childID {
		t.Fatalf("assignee not honored")
	}

	assigned := false
	for _, n := range tf.notificationsFor(tf.childID) {
		if n.Type == domain.NotificationTypeTaskAssigned {
			assigned = true
		}
	}
	if !assigned {
		t.Fatalf("assignee missing task.assigned notification")
	}

	// A child may only create tasks for themselves.
	if _, err := tf.service.CreateTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, application.CreateTaskInput{
		Title:      "Mow lawn",
		AssignedTo: tf.parentID,
		DueAt:      tf.clock.Now().Add(time.Hour),
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("child cross-assign should be forbidden, got %v", err)
	}

	// Self-assignment defaults when no assignee is given.
	own := tf.createTask(t, tf.childID, application.CreateTaskInput{Title: "Homework"})
	if own.AssignedTo != tf.childID {
		t.Fatalf("expected self-assignment, got %s", own.AssignedTo)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input application.CreateTaskInput
	}{
		{"empty title", application.CreateTaskInput{DueAt: tf.clock.Now().Add(time.Hour)}},
		{"missing due date", application.CreateTaskInput{Title: "No deadline"}},
		{"bad recurrence", application.CreateTaskInput{Title: "X", DueAt: tf.clock.Now().Add(time.Hour), Recurrence: "hourly"}},
	}
	for _, tc := range cases {
		if _, err := tf.service.CreateTask(ctx, tf.actor(tf.parentID), tf.family.FamilyID, tc.input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestPhotoApprovalFlow(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:         "Clean room",
		AssignedTo:    tf.childID,
		RequiresPhoto: true,
	})

	if _, err := tf.service.CompleteTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, task.TaskID, ""); !errors.Is(err, domain.ErrPhotoRequired) {
		t.Fatalf("completion without photo should fail, got %v", err)
	}

	pending, err := tf.service.CompleteTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, task.TaskID, "https://cdn.example.com/p/1.jpg")
	if err != nil {
		t.Fatalf("complete with photo: %v", err)
	}
	if pending.Status != domain.TaskStatusPendingApproval {
		t.Fatalf("photo completion should await approval, got %q", pending.Status)
	}

	review := false
	for _, n := range tf.notificationsFor(tf.parentID) {
		if n.Type == domain.NotificationTypeParentAlert {
			review = true
		}
	}
	if !review {
		t.Fatalf("parent missing review notification")
	}

	if _, err := tf.service.ApproveTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, task.TaskID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("child approval should be forbidden, got %v", err)
	}

	approved, err := tf.service.ApproveTask(ctx, tf.actor(tf.parentID), tf.family.FamilyID, task.TaskID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.TaskStatusCompleted {
		t.Fatalf("approved task should be completed, got %q", approved.Status)
	}
	if approved.ReviewedBy == nil || *approved.ReviewedBy != tf.parentID {
		t.Fatalf("reviewer not recorded")
	}

	if _, err := tf.service.ApproveTask(ctx, tf.actor(tf.parentID), tf.family.FamilyID, task.TaskID); !errors.Is(err, domain.ErrNotAwaitingReview) {
		t.Fatalf("double approval should fail, got %v", err)
	}
}

func TestRejectReopensTask(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:           "Wash dishes",
		AssignedTo:      tf.childID,
		DueAt:           tf.clock.Now().Add(25 * time.Minute),
		RequiresPhoto:   true,
		ReminderEnabled: true,
	})
	if n, err := tf.service.EscalateDueReminders(ctx); err != nil || n != 1 {
		t.Fatalf("escalate before submission: n=%d err=%v", n, err)
	}
	if _, err := tf.service.CompleteTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, task.TaskID, "https://cdn.example.com/p/2.jpg"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	rejected, err := tf.service.RejectTask(ctx, tf.actor(tf.parentID), tf.family.FamilyID, task.TaskID, "blurry photo")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.TaskStatusPending {
		t.Fatalf("rejected task should reopen, got %q", rejected.Status)
	}
	if rejected.PhotoURL != "" {
		t.Fatalf("rejection should clear the photo")
	}
	if rejected.ReminderLevel != 1 {
		t.Fatalf("reject should keep the reminder level, got %d", rejected.ReminderLevel)
	}

	// The assignee can resubmit.
	again, err := tf.service.CompleteTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, task.TaskID, "https://cdn.example.com/p/3.jpg")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if again.Status != domain.TaskStatusPendingApproval {
		t.Fatalf("resubmission should await approval, got %q", again.Status)
	}
}

func TestRecurringTaskSpawnsNextOccurrence(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	due := tf.clock.Now().Add(3 * time.Hour)
	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:      "Feed the cat",
		AssignedTo: tf.childID,
		DueAt:      due,
		Recurrence: domain.RecurrenceDaily,
	})

	if _, err := tf.service.CompleteTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, task.TaskID, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	list, _, err := tf.service.ListTasks(ctx, tf.actor(tf.parentID), tf.family.FamilyID, application.ListTasksInput{Status: domain.TaskStatusPending})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	var spawned *domain.Task
	for i := range list {
		if list[i].Title == "Feed the cat" {
			spawned = &list[i]
		}
	}
	if spawned == nil {
		t.Fatalf("expected a spawned occurrence")
	}
	if spawned.TaskID == task.TaskID {
		t.Fatalf("spawned occurrence should be a new row")
	}
	if !spawned.DueAt.Equal(due.Add(24 * time.Hour)) {
		t.Fatalf("spawned due at %v, want %v", spawned.DueAt, due.Add(24*time.Hour))
	}
	if spawned.ReminderLevel != 0 || spawned.LastReminderAt != nil {
		t.Fatalf("spawned occurrence should reset reminder state")
	}

	if _, err := tf.service.CompleteTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, task.TaskID, ""); !errors.Is(err, domain.ErrTaskClosed) {
		t.Fatalf("double complete should fail, got %v", err)
	}
}

func TestUpdateTaskDueDateResetsReminders(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	due := tf.clock.Now().Add(20 * time.Minute)
	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:           "Practice piano",
		AssignedTo:      tf.childID,
		DueAt:           due,
		ReminderEnabled: true,
	})

	// Drive an escalation so there is reminder state to reset.
	if _, err := tf.service.EscalateDueReminders(ctx); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	current, err := tf.service.GetTask(ctx, tf.actor(tf.parentID), tf.family.FamilyID, task.TaskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if current.ReminderLevel == 0 {
		t.Fatalf("expected escalated reminder level")
	}

	newDue := tf.clock.Now().Add(6 * time.Hour)
	updated, err := tf.service.UpdateTask(ctx, tf.actor(tf.parentID), tf.family.FamilyID, task.TaskID, application.UpdateTaskInput{DueAt: &newDue})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.ReminderLevel != 0 || updated.LastReminderAt != nil {
		t.Fatalf("due date change should reset reminder state")
	}

	// Only parents can reassign.
	if _, err := tf.service.UpdateTask(ctx, tf.actor(tf.childID), tf.family.FamilyID, task.TaskID, application.UpdateTaskInput{AssignedTo: &tf.parentID}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("child reassignment should be forbidden, got %v", err)
	}
}

func TestCustomCategoriesArePremium(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	if _, err := tf.service.CreateCategory(ctx, tf.actor(tf.parentID), tf.family.FamilyID, "Chores Plus", "#aabbcc"); !errors.Is(err, domain.ErrPremiumRequired) {
		t.Fatalf("free plan custom category should need premium, got %v", err)
	}

	until := tf.clock.Now().Add(30 * 24 * time.Hour)
	if _, err := tf.service.ApplyBillingEvent(ctx, application.BillingEventInput{
		FamilyID:  tf.family.FamilyID,
		Event:     domain.BillingEventActivated,
		ExpiresAt: &until,
	}); err != nil {
		t.Fatalf("activate premium: %v", err)
	}

	cat, err := tf.service.CreateCategory(ctx, tf.actor(tf.parentID), tf.family.FamilyID, "Chores Plus", "#aabbcc")
	if err != nil {
		t.Fatalf("create category on premium: %v", err)
	}
	if cat.FamilyID == nil || *cat.FamilyID != tf.family.FamilyID {
		t.Fatalf("custom category should belong to the family")
	}

	if _, err := tf.service.CreateCategory(ctx, tf.actor(tf.childID), tf.family.FamilyID, "Kid Stuff", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("child category creation should be forbidden, got %v", err)
	}

	// Built-in defaults and the family's own rows are listed together.
	builtin := tf.seedCategory(t, "School")
	cats, err := tf.service.ListCategories(ctx, tf.actor(tf.childID), tf.family.FamilyID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	seenBuiltin, seenCustom := false, false
	for _, c := range cats {
		if c.CategoryID == builtin {
			seenBuiltin = true
		}
		if c.CategoryID == cat.CategoryID {
			seenCustom = true
		}
	}
	if !seenBuiltin || !seenCustom {
		t.Fatalf("category listing incomplete: builtin=%v custom=%v", seenBuiltin, seenCustom)
	}
}

func TestTaskCategoryVisibility(t *testing.T) {
	t.Parallel()

	tf := newTaskFixture(t)
	ctx := context.Background()

	// A category owned by another family is not usable here.
	otherParent := tf.register(t, "othercat@example.com", domain.RoleParent)
	otherFamily := tf.createFamily(t, otherParent, "Elsewhere")
	otherID := otherFamily.FamilyID
	foreign := domain.TaskCategory{
		CategoryID: uuid.New(),
		FamilyID:   &otherID,
		Name:       "Private",
		CreatedAt:  tf.clock.Now(),
	}
	if err := tf.repos.Categories.Create(ctx, foreign); err != nil {
		t.Fatalf("seed foreign category: %v", err)
	}

	if _, err := tf.service.CreateTask(ctx, tf.actor(tf.parentID), tf.family.FamilyID, application.CreateTaskInput{
		Title:      "Uses foreign category",
		CategoryID: foreign.CategoryID,
		DueAt:      tf.clock.Now().Add(time.Hour),
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("foreign category should be rejected, got %v", err)
	}

	builtin := tf.seedCategory(t, "Everyone")
	task := tf.createTask(t, tf.parentID, application.CreateTaskInput{
		Title:      "Uses builtin",
		CategoryID: builtin,
	})
	if task.CategoryID != builtin {
		t.Fatalf("builtin category not applied")
	}
}
