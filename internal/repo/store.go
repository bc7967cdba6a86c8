package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"complaint-desk/internal/domain"
)

// Store 聚合各仓储；Tx 内拿到的是绑定同一事务的 Store
type Store struct {
	db         *gorm.DB
	Users      *UserRepo
	Complaints *ComplaintRepo
	Logs       *RecordLogRepo
	Types      *TypeRepo
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Users:      NewUserRepo(db),
		Complaints: NewComplaintRepo(db),
		Logs:       NewRecordLogRepo(db),
		Types:      NewTypeRepo(db),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Models 需要迁移的表
func Models() []any {
	return []any{
		&domain.User{},
		&domain.ComplaintType{},
		&domain.ComplaintCounter{},
		&domain.Complaint{},
		&domain.RecordLog{},
	}
}

// Migrate 建表并写入默认投诉类别（已存在则跳过）
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	for i, name := range domain.DefaultComplaintTypes {
		t := domain.ComplaintType{Name: name, Active: true, SortOrder: (i + 1) * 10}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&t).Error; err != nil {
			return err
		}
	}
	return nil
}
