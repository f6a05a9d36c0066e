package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

func (r *taskRepository) Create(ctx context.Context, task domain.Task) error {
	rec := toTaskModel(task)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *taskRepository) GetByID(ctx context.Context, taskID uuid.UUID) (domain.Task, error) {
	var rec taskModel
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Task{}, domain.ErrNotFound
		}
		return domain.Task{}, err
	}
	return toDomainTask(rec), nil
}

func (r *taskRepository) ListByFamilyID(ctx context.Context, familyID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, int, error) {
	query := r.db.WithContext(ctx).Model(&taskModel{}).Where("family_id = ?", familyID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var rows []taskModel
	if err := query.
		Order("due_at ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	result := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTask(row))
	}
	return result, int(total), nil
}

func (r *taskRepository) Update(ctx context.Context, task domain.Task) error {
	rec := toTaskModel(task)
	res := r.db.WithContext(ctx).
		Model(&taskModel{}).
		Where("task_id = ?", task.TaskID).
		Select("*").
		Omit("task_id", "created_at").
		Updates(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, taskID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&taskModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *taskRepository) ListDueForReminder(ctx context.Context, now time.Time, horizon time.Duration, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []taskModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.TaskStatusPending).
		Where("reminder_enabled = TRUE").
		Where("reminder_level < ?", domain.ReminderMaxLevel).
		Where("due_at <= ?", now.Add(horizon)).
		Order("due_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainTask(row))
	}
	return result, nil
}

// AdvanceReminderLevel is a guarded compare-and-set on the stored level.
// Zero rows affected means another writer escalated first or the task closed.
func (r *taskRepository) AdvanceReminderLevel(ctx context.Context, taskID uuid.UUID, fromLevel, toLevel int, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&taskModel{}).
		Where("task_id = ?", taskID).
		Where("reminder_level = ?", fromLevel).
		Where("status = ?", domain.TaskStatusPending).
		Updates(map[string]any{
			"reminder_level":   toLevel,
			"last_reminder_at": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
