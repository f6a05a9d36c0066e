package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"gorm.io/gorm"
)

type familyRepository struct {
	db *gorm.DB
}

func (r *familyRepository) Create(ctx context.Context, family domain.Family) error {
	rec := familyModel{
		FamilyID:     family.FamilyID,
		Name:         family.Name,
		InviteCode:   family.InviteCode,
		Plan:         family.Plan,
		PremiumUntil: family.PremiumUntil,
		CreatedBy:    family.CreatedBy,
		CreatedAt:    family.CreatedAt,
		UpdatedAt:    family.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *familyRepository) GetByID(ctx context.Context, familyID uuid.UUID) (domain.Family, error) {
	var rec familyModel
	if err := r.db.WithContext(ctx).Where("family_id = ?", familyID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Family{}, domain.ErrNotFound
		}
		return domain.Family{}, err
	}
	return toDomainFamily(rec), nil
}

func (r *familyRepository) GetByInviteCode(ctx context.Context, code string) (domain.Family, error) {
	var rec familyModel
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Family{}, domain.ErrNotFound
		}
		return domain.Family{}, err
	}
	return toDomainFamily(rec), nil
}

func (r *familyRepository) UpdateInviteCode(ctx context.Context, familyID uuid.UUID, code string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&familyModel{}).
		Where("family_id = ?", familyID).
		Updates(map[string]any{
			"invite_code": code,
			"updated_at":  at,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.ErrConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *familyRepository) UpdatePlan(ctx context.Context, familyID uuid.UUID, plan string, premiumUntil *time.Time, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&familyModel{}).
		Where("family_id = ?", familyID).
		Updates(map[string]any{
			"plan":          plan,
			"premium_until": premiumUntil,
			"updated_at":    at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
