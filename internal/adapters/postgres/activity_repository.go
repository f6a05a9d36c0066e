package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"gorm.io/gorm"
)

type activityRepository struct {
	db *gorm.DB
}

func (r *activityRepository) Create(ctx context.Context, row domain.Activity) error {
	rec := activityModel{
		ActivityID: row.ActivityID,
		FamilyID:   row.FamilyID,
		ActorID:    row.ActorID,
		Action:     row.Action,
		TargetID:   row.TargetID,
		Metadata:   encodeMetadata(row.Metadata),
		OccurredAt: row.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *activityRepository) ListByFamilyID(ctx context.Context, familyID uuid.UUID, limit, offset int) ([]domain.Activity, error) {
	var rows []activityModel
	if err := r.db.WithContext(ctx).
		Where("family_id = ?", familyID).
		Order("occurred_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainActivity(row))
	}
	return result, nil
}
