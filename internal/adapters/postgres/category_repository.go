package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"gorm.io/gorm"
)

type categoryRepository struct {
	db *gorm.DB
}

func (r *categoryRepository) Create(ctx context.Context, category domain.TaskCategory) error {
	rec := categoryModel{
		CategoryID: category.CategoryID,
		FamilyID:   category.FamilyID,
		Name:       category.Name,
		Color:      category.Color,
		CreatedAt:  category.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, categoryID uuid.UUID) (domain.TaskCategory, error) {
	var rec categoryModel
	if err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TaskCategory{}, domain.ErrNotFound
		}
		return domain.TaskCategory{}, err
	}
	return toDomainCategory(rec), nil
}

func (r *categoryRepository) ListForFamily(ctx context.Context, familyID uuid.UUID) ([]domain.TaskCategory, error) {
	var rows []categoryModel
	if err := r.db.WithContext(ctx).
		Where("family_id IS NULL OR family_id = ?", familyID).
		Order("family_id NULLS FIRST, name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.TaskCategory, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainCategory(row))
	}
	return result, nil
}
