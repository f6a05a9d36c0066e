package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type preferenceRepository struct {
	db *gorm.DB
}

func (r *preferenceRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	var rec preferenceModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	prefs := toDomainPreferences(rec)
	return &prefs, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, prefs domain.Preferences) error {
	rec := preferenceModel{
		UserID:            prefs.UserID,
		PushEnabled:       prefs.PushEnabled,
		InAppEnabled:      prefs.InAppEnabled,
		QuietHoursEnabled: prefs.QuietHoursEnabled,
		QuietHoursStart:   prefs.QuietHoursStart,
		QuietHoursEnd:     prefs.QuietHoursEnd,
		QuietHoursTZ:      prefs.QuietHoursTZ,
		UpdatedAt:         prefs.UpdatedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
}
