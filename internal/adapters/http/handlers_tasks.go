package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/contracts"
)

func parseTaskTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid due_at, expected RFC3339")
	}
	return t.UTC(), nil
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "create_task")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "create_task", err)
		return
	}
	var body contracts.CreateTaskRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "create_task", err)
		return
	}

	input := application.CreateTaskInput{
		Title:           body.Title,
		Notes:           body.Notes,
		Recurrence:      body.Recurrence,
		RequiresPhoto:   body.RequiresPhoto,
		ReminderEnabled: body.ReminderEnabled,
	}
	if body.CategoryID != "" {
		if input.CategoryID, err = uuid.Parse(body.CategoryID); err != nil {
			writeValidationError(r.Context(), w, "create_task", errors.New("invalid category_id"))
			return
		}
	}
	if body.AssignedTo != "" {
		if input.AssignedTo, err = uuid.Parse(body.AssignedTo); err != nil {
			writeValidationError(r.Context(), w, "create_task", errors.New("invalid assigned_to"))
			return
		}
	}
	if input.DueAt, err = parseTaskTime(body.DueAt); err != nil {
		writeValidationError(r.Context(), w, "create_task", err)
		return
	}

	task, err := h.service.CreateTask(r.Context(), actor, familyID, input)
	if err != nil {
		writeMappedError(r.Context(), w, "create_task", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toTaskDTO(task))
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "get_task")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_task", err)
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_task", err)
		return
	}

	task, err := h.service.GetTask(r.Context(), actor, familyID, taskID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_task", err)
		return
	}
	writeSuccess(w, http.StatusOK, toTaskDTO(task))
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "list_tasks")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "list_tasks", err)
		return
	}

	input := application.ListTasksInput{
		Status:   r.URL.Query().Get("status"),
		Page:     parseIntDefault(r.URL.Query().Get("page"), 1),
		PageSize: parseIntDefault(r.URL.Query().Get("page_size"), 20),
	}
	if raw := r.URL.Query().Get("assigned_to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeValidationError(r.Context(), w, "list_tasks", errors.New("invalid assigned_to"))
			return
		}
		input.AssignedTo = &id
	}

	items, total, err := h.service.ListTasks(r.Context(), actor, familyID, input)
	if err != nil {
		writeMappedError(r.Context(), w, "list_tasks", err)
		return
	}
	tasks := make([]contracts.TaskDTO, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, toTaskDTO(item))
	}
	writeSuccess(w, http.StatusOK, contracts.TaskListResponse{Tasks: tasks, Total: total})
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "update_task")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "update_task", err)
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "update_task", err)
		return
	}
	var body contracts.UpdateTaskRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "update_task", err)
		return
	}

	input := application.UpdateTaskInput{
		Title:           body.Title,
		Notes:           body.Notes,
		Recurrence:      body.Recurrence,
		RequiresPhoto:   body.RequiresPhoto,
		ReminderEnabled: body.ReminderEnabled,
	}
	if body.CategoryID != nil {
		id, err := uuid.Parse(*body.CategoryID)
		if err != nil {
			writeValidationError(r.Context(), w, "update_task", errors.New("invalid category_id"))
			return
		}
		input.CategoryID = &id
	}
	if body.AssignedTo != nil {
		id, err := uuid.Parse(*body.AssignedTo)
		if err != nil {
			writeValidationError(r.Context(), w, "update_task", errors.New("invalid assigned_to"))
			return
		}
		input.AssignedTo = &id
	}
	if body.DueAt != nil {
		t, err := parseTaskTime(*body.DueAt)
		if err != nil {
			writeValidationError(r.Context(), w, "update_task", err)
			return
		}
		input.DueAt = &t
	}

	task, err := h.service.UpdateTask(r.Context(), actor, familyID, taskID, input)
	if err != nil {
		writeMappedError(r.Context(), w, "update_task", err)
		return
	}
	writeSuccess(w, http.StatusOK, toTaskDTO(task))
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "delete_task")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "delete_task", err)
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "delete_task", err)
		return
	}

	if err := h.service.DeleteTask(r.Context(), actor, familyID, taskID); err != nil {
		writeMappedError(r.Context(), w, "delete_task", err)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted successfully")
}

func (h *Handler) completeTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "complete_task")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "complete_task", err)
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "complete_task", err)
		return
	}
	var body contracts.CompleteTaskRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeValidationError(r.Context(), w, "complete_task", err)
			return
		}
	}

	task, err := h.service.CompleteTask(r.Context(), actor, familyID, taskID, body.PhotoURL)
	if err != nil {
		writeMappedError(r.Context(), w, "complete_task", err)
		return
	}
	writeSuccess(w, http.StatusOK, toTaskDTO(task))
}

func (h *Handler) approveTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "approve_task")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "approve_task", err)
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "approve_task", err)
		return
	}

	task, err := h.service.ApproveTask(r.Context(), actor, familyID, taskID)
	if err != nil {
		writeMappedError(r.Context(), w, "approve_task", err)
		return
	}
	writeSuccess(w, http.StatusOK, toTaskDTO(task))
}

func (h *Handler) rejectTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "reject_task")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "reject_task", err)
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "reject_task", err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeValidationError(r.Context(), w, "reject_task", err)
			return
		}
	}

	task, err := h.service.RejectTask(r.Context(), actor, familyID, taskID, body.Reason)
	if err != nil {
		writeMappedError(r.Context(), w, "reject_task", err)
		return
	}
	writeSuccess(w, http.StatusOK, toTaskDTO(task))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "list_categories")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "list_categories", err)
		return
	}

	items, err := h.service.ListCategories(r.Context(), actor, familyID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_categories", err)
		return
	}
	categories := make([]contracts.CategoryDTO, 0, len(items))
	for _, item := range items {
		categories = append(categories, toCategoryDTO(item))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "create_category")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "create_category", err)
		return
	}
	var body contracts.CreateCategoryRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "create_category", err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), actor, familyID, body.Name, body.Color)
	if err != nil {
		writeMappedError(r.Context(), w, "create_category", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toCategoryDTO(category))
}
