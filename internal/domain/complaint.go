package domain

import (
	"context"
	"time"
)

const (
	DescriptionMin = 10
	DescriptionMax = 1000

	MsgComplaintReceived = "Complaint received from tenant"
)

type Complaint struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	Code            string     `gorm:"uniqueIndex;size:32;not null" json:"code"`
	OwnerID         string     `gorm:"index;size:36;not null" json:"ownerId"`
	Type            string     `gorm:"index;size:64;not null" json:"type"`
	Description     string     `gorm:"type:text;not null" json:"description"`
	Status          Status     `gorm:"index;size:16;not null" json:"status"`
	AdminNotes      string     `gorm:"type:text" json:"adminNotes"`
	ResolutionNotes string     `gorm:"type:text" json:"resolutionNotes"`
	CreatedAt       time.Time  `gorm:"index;not null" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"index;not null" json:"updatedAt"`
	ResolvedAt      *time.Time `json:"resolvedAt"`
	IsDeleted       bool       `gorm:"index;not null" json:"isDeleted"`
	DeletedAt       *time.Time `gorm:"index" json:"-"`
}

// ActivityAt 排序时间：resolvedAt ?? updatedAt ?? createdAt
func (c *Complaint) ActivityAt() time.Time {
	if c.ResolvedAt != nil {
		return *c.ResolvedAt
	}
	if !c.UpdatedAt.IsZero() {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// ComplaintView 带住户信息的展示行
type ComplaintView struct {
	Complaint
	StatusLabel  string `json:"statusLabel"`
	ResidentName string `json:"residentName"`
	RoomNumber   string `json:"roomNumber"`
}

func NewComplaintView(c Complaint, owner *User) ComplaintView {
	v := ComplaintView{Complaint: c, StatusLabel: c.Status.Label()}
	if owner != nil {
		v.ResidentName = owner.FullName
		if owner.RoomNumber != nil {
			v.RoomNumber = *owner.RoomNumber
		}
	}
	return v
}

// RecordLog 追加式处理记录，无更新/删除入口
type RecordLog struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ComplaintID string    `gorm:"index;size:36;not null" json:"complaintId"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	CreatedBy   string    `gorm:"size:128;not null" json:"createdBy"`
	Timestamp   time.Time `gorm:"column:logged_at;index;not null" json:"timestamp"`
}

// ComplaintType 投诉类别
type ComplaintType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Active    bool      `gorm:"not null" json:"active"`
	SortOrder int       `gorm:"not null" json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

var DefaultComplaintTypes = []string{"Maintenance", "Noise", "Billing", "Facility", "Neighbor", "Other"}

// ComplaintCounter 投诉编号序列
type ComplaintCounter struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value int64  `gorm:"not null"`
}

func (ComplaintCounter) TableName() string { return "complaint_counters" }

// ComplaintFilter 存储层可下推的过滤条件
type ComplaintFilter struct {
	OwnerID string // 空 = 全部
	Status  Status
	Type    string
	From    *time.Time // createdAt >= From
	To      *time.Time // createdAt < To
}

// ChangeCursor 轮询位置：(UpdatedAt, ID) 之后的行；ID 为空时只比较时间
type ChangeCursor struct {
	UpdatedAt time.Time
	ID        string
}

type ComplaintRepository interface {
	NextCode(ctx context.Context, prefix string) (string, error)
	Create(ctx context.Context, c *Complaint) error
	FindActive(ctx context.Context, id string) (*Complaint, error)
	UpdateStatus(ctx context.Context, c *Complaint, from Status) (bool, error)
	MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error)
	Search(ctx context.Context, f ComplaintFilter) ([]Complaint, error)
	ChangedSince(ctx context.Context, ownerID string, after ChangeCursor, limit int) ([]Complaint, error)
	CountByStatus(ctx context.Context, ownerID string) (map[Status]int64, error)
	ExpiredDeleted(ctx context.Context, before time.Time, limit int) ([]string, error)
	Purge(ctx context.Context, ids []string) (int64, error)
}

type RecordLogRepository interface {
	Append(ctx context.Context, l *RecordLog) error
	List(ctx context.Context, complaintID string, offset, limit int) ([]RecordLog, int64, error)
	DeleteFor(ctx context.Context, complaintIDs []string) (int64, error)
}

type ComplaintTypeRepository interface {
	All(ctx context.Context) ([]ComplaintType, error)
	Create(ctx context.Context, t *ComplaintType) error
	SetActive(ctx context.Context, name string, active bool) (bool, error)
}
