package service

import (
	"context"
	"strings"

	"complaint-desk/internal/core/validate"
	"complaint-desk/internal/domain"
	"complaint-desk/internal/repo"
)

// RecordLogService 处理记录：只追加，按时间升序读取
type RecordLogService struct {
	complaints *ComplaintService
	store      *repo.Store
	pageSize   int
}

func NewRecordLogService(store *repo.Store, complaints *ComplaintService, defaultPageSize int) *RecordLogService {
	if defaultPageSize <= 0 {
		defaultPageSize = 3
	}
	return &RecordLogService{complaints: complaints, store: store, pageSize: defaultPageSize}
}

type LogPageInput struct {
	Offset int  `form:"offset" validate:"min=0"`
	Limit  int  `form:"limit" validate:"min=0,max=200"`
	All    bool `form:"all"`
}

type LogPage struct {
	Items  []domain.RecordLog `json:"items"`
	Total  int64              `json:"total"`
	Offset int                `json:"offset"`
	More   bool               `json:"more"`
}

func (s *RecordLogService) List(ctx context.Context, actor domain.Actor, complaintID string, in LogPageInput) (*LogPage, error) {
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	if _, err := s.complaints.visible(ctx, actor, complaintID); err != nil {
		return nil, err
	}
	limit := in.Limit
	switch {
	case in.All:
		limit = 0
	case limit == 0:
		limit = s.pageSize
	}
	items, total, err := s.store.Logs.List(ctx, complaintID, in.Offset, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.RecordLog{}
	}
	return &LogPage{
		Items:  items,
		Total:  total,
		Offset: in.Offset,
		More:   int64(in.Offset+len(items)) < total,
	}, nil
}

type AppendNoteInput struct {
	Message string `json:"message" validate:"required,max=1000"`
}

// Append 追加一条不改变状态的备注
func (s *RecordLogService) Append(ctx context.Context, actor domain.Actor, complaintID string, in AppendNoteInput) (*domain.RecordLog, error) {
	if !actor.IsAdmin() {
		return nil, domain.Errorf(domain.ErrPermissionDenied, "only administrators can add notes")
	}
	in.Message = strings.TrimSpace(in.Message)
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	c, err := s.store.Complaints.FindActive(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "complaint not found")
	}
	entry := &domain.RecordLog{
		ComplaintID: c.ID,
		Message:     in.Message,
		CreatedBy:   actor.Name,
		Timestamp:   s.complaints.now(),
	}
	if err := s.store.Logs.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
