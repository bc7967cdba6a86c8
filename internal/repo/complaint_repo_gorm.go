package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"complaint-desk/internal/domain"
)

// 轮询游标单次最多返回条数
const ChangesLimit = 500

type ComplaintRepo struct{ db *gorm.DB }

var _ domain.ComplaintRepository = (*ComplaintRepo)(nil)

func NewComplaintRepo(db *gorm.DB) *ComplaintRepo { return &ComplaintRepo{db: db} }

// NextCode 递增编号序列，需在事务内调用
func (r *ComplaintRepo) NextCode(ctx context.Context, prefix string) (string, error) {
	db := r.db.WithContext(ctx)
	seed := domain.ComplaintCounter{Name: prefix, Value: 0}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return "", err
	}
	if err := db.Model(&domain.ComplaintCounter{}).
		Where("name = ?", prefix).
		UpdateColumn("value", gorm.Expr("value + ?", 1)).Error; err != nil {
		return "", err
	}
	var c domain.ComplaintCounter
	if err := db.Where("name = ?", prefix).First(&c).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%05d", prefix, c.Value), nil
}

func (r *ComplaintRepo) Create(ctx context.Context, c *domain.Complaint) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ComplaintRepo) FindActive(ctx context.Context, id string) (*domain.Complaint, error) {
	var c domain.Complaint
	err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus 以 from 作为比较条件写入新状态；false 表示状态已被他人改动
func (r *ComplaintRepo) UpdateStatus(ctx context.Context, c *domain.Complaint, from domain.Status) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Complaint{}).
		Where("id = ? AND status = ? AND is_deleted = ?", c.ID, from, false).
		Updates(map[string]any{
			"status":           c.Status,
			"updated_at":       c.UpdatedAt,
			"resolved_at":      c.ResolvedAt,
			"admin_notes":      c.AdminNotes,
			"resolution_notes": c.ResolutionNotes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ComplaintRepo) MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Complaint{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ComplaintRepo) Search(ctx context.Context, f domain.ComplaintFilter) ([]domain.Complaint, error) {
	q := r.db.WithContext(ctx).Model(&domain.Complaint{}).Where("is_deleted = ?", false)
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	var out []domain.Complaint
	if err := q.Order("created_at desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ChangedSince 含已软删的行，供轮询方剔除；按 (updated_at, id) 递增翻页
func (r *ComplaintRepo) ChangedSince(ctx context.Context, ownerID string, after domain.ChangeCursor, limit int) ([]domain.Complaint, error) {
	q := r.db.WithContext(ctx).Model(&domain.Complaint{})
	if after.ID == "" {
		q = q.Where("updated_at > ?", after.UpdatedAt)
	} else {
		q = q.Where("(updated_at > ? OR (updated_at = ? AND id > ?))", after.UpdatedAt, after.UpdatedAt, after.ID)
	}
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	if limit <= 0 {
		limit = ChangesLimit
	}
	var out []domain.Complaint
	if err := q.Order("updated_at asc, id asc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ComplaintRepo) CountByStatus(ctx context.Context, ownerID string) (map[domain.Status]int64, error) {
	type row struct {
		Status domain.Status
		N      int64
	}
	q := r.db.WithContext(ctx).Model(&domain.Complaint{}).
		Select("status, COUNT(*) AS n").
		Where("is_deleted = ?", false)
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var rows []row
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[domain.Status]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// ExpiredDeleted 软删早于 before 的投诉 id，供保留期清理
func (r *ComplaintRepo) ExpiredDeleted(ctx context.Context, before time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Complaint{}).
		Where("is_deleted = ? AND deleted_at IS NOT NULL AND deleted_at < ?", true, before).
		Order("deleted_at asc").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// Purge 物理删除，只作用于已软删的行
func (r *ComplaintRepo) Purge(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id IN ? AND is_deleted = ?", ids, true).
		Delete(&domain.Complaint{})
	return res.RowsAffected, res.Error
}
