package repo

import (
	"context"

	"gorm.io/gorm"

	"complaint-desk/internal/domain"
)

type RecordLogRepo struct{ db *gorm.DB }

var _ domain.RecordLogRepository = (*RecordLogRepo)(nil)

func NewRecordLogRepo(db *gorm.DB) *RecordLogRepo { return &RecordLogRepo{db: db} }

func (r *RecordLogRepo) Append(ctx context.Context, l *domain.RecordLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// List 按时间升序；limit <= 0 取全部
func (r *RecordLogRepo) List(ctx context.Context, complaintID string, offset, limit int) ([]domain.RecordLog, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.RecordLog{}).Where("complaint_id = ?", complaintID)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := tx.Order("logged_at asc, id asc").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.RecordLog
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteFor 只给保留期清理用，跟随投诉一起物理删除
func (r *RecordLogRepo) DeleteFor(ctx context.Context, complaintIDs []string) (int64, error) {
	if len(complaintIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("complaint_id IN ?", complaintIDs).Delete(&domain.RecordLog{})
	return res.RowsAffected, res.Error
}
