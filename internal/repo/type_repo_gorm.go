package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"complaint-desk/internal/domain"
)

type TypeRepo struct{ db *gorm.DB }

var _ domain.ComplaintTypeRepository = (*TypeRepo)(nil)

func NewTypeRepo(db *gorm.DB) *TypeRepo { return &TypeRepo{db: db} }

func (r *TypeRepo) All(ctx context.Context) ([]domain.ComplaintType, error) {
	var out []domain.ComplaintType
	err := r.db.WithContext(ctx).Order("sort_order asc, name asc").Find(&out).Error
	return out, err
}

func (r *TypeRepo) Create(ctx context.Context, t *domain.ComplaintType) error {
	if t.SortOrder == 0 {
		var maxOrder int
		if err := r.db.WithContext(ctx).Model(&domain.ComplaintType{}).
			Select("COALESCE(MAX(sort_order), 0)").Scan(&maxOrder).Error; err != nil {
			return err
		}
		t.SortOrder = maxOrder + 10
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TypeRepo) SetActive(ctx context.Context, name string, active bool) (bool, error) {
	q := r.db.WithContext(ctx).Model(&domain.ComplaintType{}).Where("LOWER(name) = ?", strings.ToLower(name))
	var n int64
	if err := q.Count(&n).Error; err != nil || n == 0 {
		return false, err
	}
	// mysql 对未变化的行 RowsAffected 为 0，所以先 Count
	return true, r.db.WithContext(ctx).Model(&domain.ComplaintType{}).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Update("active", active).Error
}
