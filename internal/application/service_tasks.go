package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
)

// CreateTask creates a task in the actor's family. Parents can assign anyone;
// children can only create tasks assigned to themselves.
func (s *Service) CreateTask(ctx context.Context, actor Actor, familyID uuid.UUID, input CreateTaskInput) (domain.Task, error) {
	user, err := s.requireMember(ctx, actor, familyID)
	if err != nil {
		return domain.Task{}, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > 120 {
		return domain.Task{}, fmt.Errorf("%w: title must be 1-120 characters", domain.ErrInvalidInput)
	}
	if len(input.Notes) > 2000 {
		return domain.Task{}, fmt.Errorf("%w: notes must be at most 2000 characters", domain.ErrInvalidInput)
	}
	recurrence := input.Recurrence
	if recurrence == "" {
		recurrence = domain.RecurrenceNone
	}
	if !domain.IsValidRecurrence(recurrence) {
		return domain.Task{}, fmt.Errorf("%w: recurrence must be none, daily or weekly", domain.ErrInvalidInput)
	}
	if input.DueAt.IsZero() {
		return domain.Task{}, fmt.Errorf("%w: due_at is required", domain.ErrInvalidInput)
	}

	assignee := input.AssignedTo
	if assignee == uuid.Nil {
		assignee = user.UserID
	}
	if !user.IsParent() && assignee != user.UserID {
		return domain.Task{}, domain.ErrForbidden
	}
	if assignee != user.UserID {
		target, err := s.users.GetByID(ctx, assignee)
		if err != nil {
			return domain.Task{}, fmt.Errorf("%w: assignee not found", domain.ErrInvalidInput)
		}
		if target.FamilyID == nil || *target.FamilyID != familyID {
			return domain.Task{}, fmt.Errorf("%w: assignee is not a family member", domain.ErrInvalidInput)
		}
	}
	if input.CategoryID != uuid.Nil {
		if err := s.checkCategoryVisible(ctx, familyID, input.CategoryID); err != nil {
			return domain.Task{}, err
		}
	}

	if actor.IdempotencyKey != "" {
		requestHash := hashRequest(map[string]any{
			"op": "create_task", "actor": user.UserID.String(), "family": familyID.String(),
			"title": title, "due_at": input.DueAt.UTC(), "assigned_to": assignee.String(),
		})
		if raw, ok, err := s.getIdempotentBody(ctx, actor.IdempotencyKey, requestHash); err != nil {
			return domain.Task{}, err
		} else if ok {
			var cached domain.Task
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
		if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
			return domain.Task{}, err
		}
	}

	now := s.nowFn()
	task := domain.Task{
		TaskID:          uuid.New(),
		FamilyID:        familyID,
		Title:           title,
		Notes:           strings.TrimSpace(input.Notes),
		CategoryID:      input.CategoryID,
		AssignedTo:      assignee,
		CreatedBy:       user.UserID,
		DueAt:           input.DueAt.UTC(),
		Status:          domain.TaskStatusPending,
		Recurrence:      recurrence,
		RequiresPhoto:   input.RequiresPhoto,
		ReminderEnabled: input.ReminderEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return domain.Task{}, err
	}

	s.appendActivity(ctx, familyID, user.UserID, "task.created", task.TaskID.String(), map[string]string{"title": title})
	s.enqueueEvent(ctx, domain.EventTaskCreated, familyID.String(), map[string]any{
		"task_id":     task.TaskID.String(),
		"family_id":   familyID.String(),
		"assigned_to": assignee.String(),
	})
	if assignee != user.UserID {
		_ = s.pushNotification(ctx, domain.Notification{
			UserID:   assignee,
			Type:     domain.NotificationTypeTaskAssigned,
			Title:    "New task: " + title,
			Metadata: map[string]string{"task_id": task.TaskID.String()},
		})
	}
	if actor.IdempotencyKey != "" {
		s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, task)
	}
	return task, nil
}

func (s *Service) GetTask(ctx context.Context, actor Actor, familyID, taskID uuid.UUID) (domain.Task, error) {
	if _, err := s.requireMember(ctx, actor, familyID); err != nil {
		return domain.Task{}, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.FamilyID != familyID {
		return domain.Task{}, domain.ErrNotFound
	}
	return task, nil
}

func (s *Service) ListTasks(ctx context.Context, actor Actor, familyID uuid.UUID, input ListTasksInput) ([]domain.Task, int, error) {
	if _, err := s.requireMember(ctx, actor, familyID); err != nil {
		return nil, 0, err
	}
	if input.Status != "" && !domain.IsValidTaskStatus(input.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status filter", domain.ErrInvalidInput)
	}
	filter := domain.TaskFilter{
		Status:     input.Status,
		AssignedTo: input.AssignedTo,
		Page:       input.Page,
		PageSize:   input.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.tasks.ListByFamilyID(ctx, familyID, filter)
}

// UpdateTask applies partial edits. Only parents and the task's creator may edit,
// and closed tasks are immutable.
func (s *Service) UpdateTask(ctx context.Context, actor Actor, familyID, taskID uuid.UUID, input UpdateTaskInput) (domain.Task, error) {
	user, err := s.requireMember(ctx, actor, familyID)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.FamilyID != familyID {
		return domain.Task{}, domain.ErrNotFound
	}
	if !user.IsParent() && task.CreatedBy != user.UserID {
		return domain.Task{}, domain.ErrForbidden
	}
	if task.Status == domain.TaskStatusCompleted {
		return domain.Task{}, domain.ErrTaskClosed
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > 120 {
			return domain.Task{}, fmt.Errorf("%w: title must be 1-120 characters", domain.ErrInvalidInput)
		}
		task.Title = title
	}
	if input.Notes != nil {
		if len(*input.Notes) > 2000 {
			return domain.Task{}, fmt.Errorf("%w: notes must be at most 2000 characters", domain.ErrInvalidInput)
		}
		task.Notes = strings.TrimSpace(*input.Notes)
	}
	if input.CategoryID != nil {
		if *input.CategoryID != uuid.Nil {
			if err := s.checkCategoryVisible(ctx, familyID, *input.CategoryID); err != nil {
				return domain.Task{}, err
			}
		}
		task.CategoryID = *input.CategoryID
	}
	if input.AssignedTo != nil {
		if !user.IsParent() {
			return domain.Task{}, domain.ErrForbidden
		}
		target, err := s.users.GetByID(ctx, *input.AssignedTo)
		if err != nil {
			return domain.Task{}, fmt.Errorf("%w: assignee not found", domain.ErrInvalidInput)
		}
		if target.FamilyID == nil || *target.FamilyID != familyID {
			return domain.Task{}, fmt.Errorf("%w: assignee is not a family member", domain.ErrInvalidInput)
		}
		task.AssignedTo = *input.AssignedTo
	}
	if input.DueAt != nil {
		if input.DueAt.IsZero() {
			return domain.Task{}, fmt.Errorf("%w: due_at must be a valid time", domain.ErrInvalidInput)
		}
		task.DueAt = input.DueAt.UTC()
		// A new due time resets the escalation ladder.
		task.ReminderLevel = 0
		task.LastReminderAt = nil
	}
	if input.Recurrence != nil {
		if !domain.IsValidRecurrence(*input.Recurrence) {
			return domain.Task{}, fmt.Errorf("%w: recurrence must be none, daily or weekly", domain.ErrInvalidInput)
		}
		task.Recurrence = *input.Recurrence
	}
	if input.RequiresPhoto != nil {
		task.RequiresPhoto = *input.RequiresPhoto
	}
	if input.ReminderEnabled != nil {
		task.ReminderEnabled = *input.ReminderEnabled
	}

	task.UpdatedAt = s.nowFn()
	if err := s.tasks.Update(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.appendActivity(ctx, familyID, user.UserID, "task.updated", task.TaskID.String(), nil)
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, actor Actor, familyID, taskID uuid.UUID) error {
	user, err := s.requireMember(ctx, actor, familyID)
	if err != nil {
		return err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.FamilyID != familyID {
		return domain.ErrNotFound
	}
	if !user.IsParent() && task.CreatedBy != user.UserID {
		return domain.ErrForbidden
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	s.appendActivity(ctx, familyID, user.UserID, "task.deleted", taskID.String(), map[string]string{"title": task.Title})
	return nil
}

// CompleteTask is the assignee-side completion. A photo-validated task moves to
// pending_approval and waits for a parent; anything else completes immediately
// and spawns the next occurrence when recurring.
func (s *Service) CompleteTask(ctx context.Context, actor Actor, familyID, taskID uuid.UUID, photoURL string) (domain.Task, error) {
	user, err := s.requireMember(ctx, actor, familyID)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.FamilyID != familyID {
		return domain.Task{}, domain.ErrNotFound
	}
	if task.AssignedTo != user.UserID && !user.IsParent() {
		return domain.Task{}, domain.ErrForbidden
	}
	if !task.IsOpen() {
		return domain.Task{}, domain.ErrTaskClosed
	}

	photoURL = strings.TrimSpace(photoURL)
	now := s.nowFn()
	if task.RequiresPhoto {
		if photoURL == "" {
			return domain.Task{}, domain.ErrPhotoRequired
		}
		task.Status = domain.TaskStatusPendingApproval
		task.PhotoURL = photoURL
		task.UpdatedAt = now
		if err := s.tasks.Update(ctx, task); err != nil {
			return domain.Task{}, err
		}
		s.appendActivity(ctx, familyID, user.UserID, "task.submitted", task.TaskID.String(), map[string]string{"title": task.Title})
		s.notifyParents(ctx, familyID, user.UserID, domain.Notification{
			Type:     domain.NotificationTypeParentAlert,
			Title:    task.Title + " is waiting for your review",
			Metadata: map[string]string{"task_id": task.TaskID.String()},
		})
		return task, nil
	}

	task.Status = domain.TaskStatusCompleted
	task.PhotoURL = photoURL
	task.CompletedAt = &now
	task.UpdatedAt = now
	if err := s.tasks.Update(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.appendActivity(ctx, familyID, user.UserID, "task.completed", task.TaskID.String(), map[string]string{"title": task.Title})
	s.enqueueEvent(ctx, domain.EventTaskCompleted, familyID.String(), map[string]any{
		"task_id":      task.TaskID.String(),
		"family_id":    familyID.String(),
		"completed_by": user.UserID.String(),
	})
	s.spawnNextOccurrence(ctx, task)
	return task, nil
}

// ApproveTask confirms a photo submission. Parent-only, and valid only from
// pending_approval.
func (s *Service) ApproveTask(ctx context.Context, actor Actor, familyID, taskID uuid.UUID) (domain.Task, error) {
	parent, err := s.requireParent(ctx, actor, familyID)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.FamilyID != familyID {
		return domain.Task{}, domain.ErrNotFound
	}
	if task.Status != domain.TaskStatusPendingApproval {
		return domain.Task{}, domain.ErrNotAwaitingReview
	}

	now := s.nowFn()
	task.Status = domain.TaskStatusCompleted
	task.CompletedAt = &now
	task.ReviewedBy = &parent.UserID
	task.UpdatedAt = now
	if err := s.tasks.Update(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.appendActivity(ctx, familyID, parent.UserID, "task.approved", task.TaskID.String(), map[string]string{"title": task.Title})
	s.enqueueEvent(ctx, domain.EventTaskApproved, familyID.String(), map[string]any{
		"task_id":     task.TaskID.String(),
		"family_id":   familyID.String(),
		"reviewed_by": parent.UserID.String(),
	})
	_ = s.pushNotification(ctx, domain.Notification{
		UserID:   task.AssignedTo,
		Type:     domain.NotificationTypeTaskReviewed,
		Title:    task.Title + " was approved",
		Metadata: map[string]string{"task_id": task.TaskID.String(), "decision": "approved"},
	})
	s.spawnNextOccurrence(ctx, task)
	return task, nil
}

// RejectTask sends a photo submission back. The task reopens with the photo
// cleared so the assignee can retry. The reminder level stays put: the due
// date is unchanged, so the steps already fired remain fired.
func (s *Service) RejectTask(ctx context.Context, actor Actor, familyID, taskID uuid.UUID, reason string) (domain.Task, error) {
	parent, err := s.requireParent(ctx, actor, familyID)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.FamilyID != familyID {
		return domain.Task{}, domain.ErrNotFound
	}
	if task.Status != domain.TaskStatusPendingApproval {
		return domain.Task{}, domain.ErrNotAwaitingReview
	}

	now := s.nowFn()
	task.Status = domain.TaskStatusPending
	task.PhotoURL = ""
	task.ReviewedBy = &parent.UserID
	task.UpdatedAt = now
	if err := s.tasks.Update(ctx, task); err != nil {
		return domain.Task{}, err
	}
	meta := map[string]string{"title": task.Title}
	if r := strings.TrimSpace(reason); r != "" {
		meta["reason"] = r
	}
	s.appendActivity(ctx, familyID, parent.UserID, "task.rejected", task.TaskID.String(), meta)
	s.enqueueEvent(ctx, domain.EventTaskRejected, familyID.String(), map[string]any{
		"task_id":     task.TaskID.String(),
		"family_id":   familyID.String(),
		"reviewed_by": parent.UserID.String(),
	})
	_ = s.pushNotification(ctx, domain.Notification{
		UserID:   task.AssignedTo,
		Type:     domain.NotificationTypeTaskReviewed,
		Title:    task.Title + " needs another try",
		Body:     strings.TrimSpace(reason),
		Metadata: map[string]string{"task_id": task.TaskID.String(), "decision": "rejected"},
	})
	return task, nil
}

// ListCategories returns built-in defaults plus the family's own categories.
func (s *Service) ListCategories(ctx context.Context, actor Actor, familyID uuid.UUID) ([]domain.TaskCategory, error) {
	if _, err := s.requireMember(ctx, actor, familyID); err != nil {
		return nil, err
	}
	return s.categories.ListForFamily(ctx, familyID)
}

// CreateCategory adds a family-owned category. Custom categories are a premium
// entitlement.
func (s *Service) CreateCategory(ctx context.Context, actor Actor, familyID uuid.UUID, name, color string) (domain.TaskCategory, error) {
	parent, err := s.requireParent(ctx, actor, familyID)
	if err != nil {
		return domain.TaskCategory{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 40 {
		return domain.TaskCategory{}, fmt.Errorf("%w: category name must be 1-40 characters", domain.ErrInvalidInput)
	}
	family, err := s.families.GetByID(ctx, familyID)
	if err != nil {
		return domain.TaskCategory{}, err
	}
	ent := domain.EntitlementsForPlan(family.EffectivePlan(s.nowFn()))
	if !ent.CustomCategories {
		return domain.TaskCategory{}, domain.ErrPremiumRequired
	}

	fid := familyID
	category := domain.TaskCategory{
		CategoryID: uuid.New(),
		FamilyID:   &fid,
		Name:       name,
		Color:      strings.TrimSpace(color),
		CreatedAt:  s.nowFn(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return domain.TaskCategory{}, err
	}
	s.appendActivity(ctx, familyID, parent.UserID, "category.created", category.CategoryID.String(), map[string]string{"name": name})
	return category, nil
}

// checkCategoryVisible verifies the category is a built-in default or owned by
// the family.
func (s *Service) checkCategoryVisible(ctx context.Context, familyID, categoryID uuid.UUID) error {
	cat, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: category not found", domain.ErrInvalidInput)
		}
		return err
	}
	if cat.FamilyID != nil && *cat.FamilyID != familyID {
		return fmt.Errorf("%w: category not found", domain.ErrInvalidInput)
	}
	return nil
}

// spawnNextOccurrence creates the follow-up row for a recurring task. Reminder
// state starts fresh on the new row.
func (s *Service) spawnNextOccurrence(ctx context.Context, task domain.Task) {
	nextDue, ok := task.NextOccurrence()
	if !ok {
		return
	}
	now := s.nowFn()
	next := domain.Task{
		TaskID:          uuid.New(),
		FamilyID:        task.FamilyID,
		Title:           task.Title,
		Notes:           task.Notes,
		CategoryID:      task.CategoryID,
		AssignedTo:      task.AssignedTo,
		CreatedBy:       task.CreatedBy,
		DueAt:           nextDue,
		Status:          domain.TaskStatusPending,
		Recurrence:      task.Recurrence,
		RequiresPhoto:   task.RequiresPhoto,
		ReminderEnabled: task.ReminderEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.tasks.Create(ctx, next); err != nil {
		s.logger().WarnContext(ctx, "failed to spawn recurring task",
			"operation", "spawn_next_occurrence",
			"outcome", "failure",
			"task_id", task.TaskID,
			"error", err,
		)
	}
}

// notifyParents fans a notification out to every parent except the excluded user.
func (s *Service) notifyParents(ctx context.Context, familyID, exclude uuid.UUID, template domain.Notification) {
	members, err := s.users.ListByFamilyID(ctx, familyID)
	if err != nil {
		return
	}
	for _, m := range members {
		if !m.IsParent() || m.UserID == exclude {
			continue
		}
		row := template
		row.NotificationID = uuid.New()
		row.UserID = m.UserID
		if template.DedupKey != "" {
			row.DedupKey = template.DedupKey + ":" + m.UserID.String()
		}
		_ = s.pushNotification(ctx, row)
	}
}
