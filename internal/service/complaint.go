package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"complaint-desk/internal/core/validate"
	"complaint-desk/internal/domain"
	"complaint-desk/internal/events"
	"complaint-desk/internal/export"
	"complaint-desk/internal/repo"
	"complaint-desk/pkg/utils"
)

type ComplaintOptions struct {
	CodePrefix          string
	AllowSkipInProgress bool // 是否允许 Pending 直接 Resolved
	Location            *time.Location
}

// ComplaintService 投诉生命周期：提交、状态流转、软删除
type ComplaintService struct {
	store *repo.Store
	types *TypeRegistry
	pub   events.Publisher
	log   *zap.Logger
	opts  ComplaintOptions
	now   func() time.Time

	// 读到状态之后、写入之前调用，测试用来模拟并发
	testHookBeforeWrite func(*domain.Complaint)
}

func NewComplaintService(store *repo.Store, types *TypeRegistry, pub events.Publisher, l *zap.Logger, opts ComplaintOptions) *ComplaintService {
	if pub == nil {
		pub = events.Nop{}
	}
	if opts.CodePrefix == "" {
		opts.CodePrefix = "CD"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &ComplaintService{
		store: store, types: types, pub: pub, log: l, opts: opts,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock 测试用
func (s *ComplaintService) SetClock(now func() time.Time) { s.now = now }

type CreateInput struct {
	Type        string `json:"type" validate:"required"`
	Description string `json:"description" validate:"required,min=10,max=1000"`
}

func (s *ComplaintService) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.ComplaintView, error) {
	in.Type = strings.TrimSpace(in.Type)
	in.Description = strings.TrimSpace(in.Description)
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	typeName, err := s.types.Resolve(ctx, in.Type)
	if err != nil {
		return nil, err
	}

	var (
		c     *domain.Complaint
		owner *domain.User
	)
	err = s.store.Tx(ctx, func(tx *repo.Store) error {
		u, err := tx.Users.FindByID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.Errorf(domain.ErrNotFound, "user not found")
		}
		owner = u

		code, err := tx.Complaints.NextCode(ctx, s.opts.CodePrefix)
		if err != nil {
			return err
		}
		now := s.now()
		c = &domain.Complaint{
			ID:          utils.NewID(),
			Code:        code,
			OwnerID:     u.ID,
			Type:        typeName,
			Description: in.Description,
			Status:      domain.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Complaints.Create(ctx, c); err != nil {
			return err
		}
		return tx.Logs.Append(ctx, &domain.RecordLog{
			ComplaintID: c.ID,
			Message:     domain.MsgComplaintReceived,
			CreatedBy:   u.FullName,
			Timestamp:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	complaintsCreated.WithLabelValues(c.Type).Inc()
	s.log.Info("complaint created",
		zap.String("id", c.ID), zap.String("code", c.Code),
		zap.String("owner", c.OwnerID), zap.String("type", c.Type))
	s.pub.Publish(ctx, events.Event{
		Name: events.ComplaintCreated, ComplaintID: c.ID, Code: c.Code, OwnerID: c.OwnerID,
		Type: c.Type, Status: string(c.Status), Actor: owner.FullName, At: c.CreatedAt,
	})
	v := domain.NewComplaintView(*c, owner)
	return &v, nil
}

type TransitionInput struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=1000"`
}

func (s *ComplaintService) Transition(ctx context.Context, actor domain.Actor, id string, in TransitionInput) (*domain.Complaint, error) {
	if !actor.IsAdmin() {
		return nil, domain.Errorf(domain.ErrPermissionDenied, "only administrators can change complaint status")
	}
	in.Note = strings.TrimSpace(in.Note)
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	to, ok := domain.ParseStatus(in.Status)
	if !ok {
		return nil, domain.NewValidationError("status must be one of [Pending InProgress Resolved]")
	}

	var (
		c    *domain.Complaint
		from domain.Status
		err  error
	)
	// 并发流转：状态被别人先改时按新状态重新判定，两条日志都保留
	for attempt := 0; attempt < transitionAttempts; attempt++ {
		c, from, err = s.transitionOnce(ctx, actor, id, to, in.Note)
		if !errors.Is(err, errStaleStatus) {
			break
		}
	}
	if errors.Is(err, errStaleStatus) {
		return nil, domain.Errorf(domain.ErrInvalidTransition, "complaint status changed concurrently, reload and retry")
	}
	if err != nil {
		return nil, err
	}

	complaintTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.log.Info("complaint transitioned",
		zap.String("id", c.ID), zap.String("from", string(from)),
		zap.String("to", string(to)), zap.String("admin", actor.UserID))
	s.pub.Publish(ctx, events.Event{
		Name: events.ComplaintTransitioned, ComplaintID: c.ID, Code: c.Code, OwnerID: c.OwnerID,
		From: string(from), Status: string(to), Actor: actor.Name, Note: in.Note, At: c.UpdatedAt,
	})
	return c, nil
}

const transitionAttempts = 3

var errStaleStatus = errors.New("stale status")

func (s *ComplaintService) transitionOnce(ctx context.Context, actor domain.Actor, id string, to domain.Status, note string) (*domain.Complaint, domain.Status, error) {
	cur, err := s.store.Complaints.FindActive(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if cur == nil {
		return nil, "", domain.Errorf(domain.ErrNotFound, "complaint not found")
	}
	from := cur.Status
	if !domain.CanTransition(from, to, s.opts.AllowSkipInProgress) {
		return nil, "", domain.Errorf(domain.ErrInvalidTransition, "cannot move complaint from %s to %s", from.Label(), to.Label())
	}
	if s.testHookBeforeWrite != nil {
		s.testHookBeforeWrite(cur)
	}

	err = s.store.Tx(ctx, func(tx *repo.Store) error {
		// 日志署名取库里的当前姓名，令牌里的可能已过时
		by := actor.Name
		u, err := tx.Users.FindByID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if u != nil {
			by = u.FullName
		}

		now := s.now()
		cur.Status = to
		cur.UpdatedAt = now
		if note != "" {
			cur.AdminNotes = appendNote(cur.AdminNotes, note)
		}
		if to == domain.StatusResolved {
			cur.ResolvedAt = &now
			if note != "" {
				cur.ResolutionNotes = appendNote(cur.ResolutionNotes, note)
			}
		}
		ok, err := tx.Complaints.UpdateStatus(ctx, cur, from)
		if err != nil {
			return err
		}
		if !ok {
			return errStaleStatus
		}

		msg := note
		if msg == "" {
			msg = "Status changed to " + to.Label()
		}
		return tx.Logs.Append(ctx, &domain.RecordLog{
			ComplaintID: cur.ID,
			Message:     msg,
			CreatedBy:   by,
			Timestamp:   now,
		})
	})
	if err != nil {
		return nil, from, err
	}
	return cur, from, nil
}

func (s *ComplaintService) SoftDelete(ctx context.Context, actor domain.Actor, id string) error {
	c, err := s.store.Complaints.FindActive(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.Errorf(domain.ErrNotFound, "complaint not found")
	}
	if c.OwnerID != actor.UserID {
		return domain.Errorf(domain.ErrPermissionDenied, "only the owner can delete this complaint")
	}
	if c.Status != domain.StatusResolved {
		return domain.Errorf(domain.ErrInvalidState, "only resolved complaints can be deleted")
	}
	now := s.now()
	ok, err := s.store.Complaints.MarkDeleted(ctx, c.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.ErrNotFound, "complaint not found")
	}

	complaintsDeleted.Inc()
	s.log.Info("complaint deleted", zap.String("id", c.ID), zap.String("owner", c.OwnerID))
	s.pub.Publish(ctx, events.Event{
		Name: events.ComplaintDeleted, ComplaintID: c.ID, Code: c.Code, OwnerID: c.OwnerID,
		Status: string(c.Status), At: now,
	})
	return nil
}

// Get 住户只能看自己的；别人的按不存在处理
func (s *ComplaintService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.ComplaintView, error) {
	c, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.Users.FindByID(ctx, c.OwnerID)
	if err != nil {
		return nil, err
	}
	v := domain.NewComplaintView(*c, owner)
	return &v, nil
}

func (s *ComplaintService) visible(ctx context.Context, actor domain.Actor, id string) (*domain.Complaint, error) {
	c, err := s.store.Complaints.FindActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || (!actor.IsAdmin() && c.OwnerID != actor.UserID) {
		return nil, domain.Errorf(domain.ErrNotFound, "complaint not found")
	}
	return c, nil
}

// Receipt 导出 PDF 回执所需数据（含全部处理记录）
func (s *ComplaintService) Receipt(ctx context.Context, actor domain.Actor, id string) (*export.Receipt, error) {
	v, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	logs, _, err := s.store.Logs.List(ctx, v.ID, 0, 0)
	if err != nil {
		return nil, err
	}
	return &export.Receipt{Complaint: *v, Logs: logs, GeneratedAt: s.now(), Location: s.opts.Location}, nil
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
