package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

func (r *notificationRepository) Create(ctx context.Context, row domain.Notification) error {
	rec := notificationModel{
		NotificationID: row.NotificationID,
		UserID:         row.UserID,
		Type:           row.Type,
		Title:          row.Title,
		Body:           row.Body,
		Metadata:       encodeMetadata(row.Metadata),
		DedupKey:       nullableString(row.DedupKey),
		CreatedAt:      row.CreatedAt,
		ReadAt:         row.ReadAt,
		ArchivedAt:     row.ArchivedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (domain.Notification, error) {
	var rec notificationModel
	if err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Notification{}, domain.ErrNotFound
		}
		return domain.Notification{}, err
	}
	return toDomainNotification(rec), nil
}

func (r *notificationRepository) ListByUserID(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter) ([]domain.Notification, int, error) {
	query := r.db.WithContext(ctx).Model(&notificationModel{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	switch filter.Status {
	case "unread":
		query = query.Where("read_at IS NULL").Where("archived_at IS NULL")
	case "read":
		query = query.Where("read_at IS NOT NULL").Where("archived_at IS NULL")
	case "archived":
		query = query.Where("archived_at IS NOT NULL")
	default:
		query = query.Where("archived_at IS NULL")
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

	var rows []notificationModel
	if err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	result := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainNotification(row))
	}
	return result, int(total), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("user_id = ?", userID).
		Where("read_at IS NULL").
		Where("archived_at IS NULL").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *notificationRepository) Update(ctx context.Context, row domain.Notification) error {
	res := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("notification_id = ?", row.NotificationID).
		Updates(map[string]any{
			"read_at":     row.ReadAt,
			"archived_at": row.ArchivedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
