package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"complaint-desk/internal/core/validate"
	"complaint-desk/internal/domain"
	"complaint-desk/internal/repo"
)

type SortKey string

const (
	SortNewest SortKey = "newest"
	SortOldest SortKey = "oldest"
	SortRoom   SortKey = "room"
	SortName   SortKey = "name"
)

func ParseSort(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortOldest, SortRoom, SortName:
		return k
	}
	return SortNewest
}

// Scope 查询边界：OwnerID 为空表示全部（管理员）
type Scope struct {
	OwnerID string
}

func ScopeOf(a domain.Actor) Scope {
	if a.IsAdmin() {
		return Scope{}
	}
	return Scope{OwnerID: a.UserID}
}

type QueryInput struct {
	Status string `form:"status" validate:"max=32"`
	Type   string `form:"type" validate:"max=64"`
	Date   string `form:"date" validate:"max=32"`
	Month  string `form:"month" validate:"max=32"`
	Search string `form:"search" validate:"max=100"`
	Sort   string `form:"sort" validate:"omitempty,oneof=newest oldest room name"`
}

type Buckets struct {
	Pending    []domain.ComplaintView `json:"Pending"`
	InProgress []domain.ComplaintView `json:"InProgress"`
	Resolved   []domain.ComplaintView `json:"Resolved"`
}

type Counts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Total      int `json:"total"`
}

type QueryResult struct {
	All     []domain.ComplaintView `json:"all"`
	Grouped Buckets                `json:"grouped"`
	Counts  Counts                 `json:"counts"`
}

// QueryService 过滤 / 排序 / 按状态分组
type QueryService struct {
	store *repo.Store
	types *TypeRegistry
	loc   *time.Location

	changesLimit int
}

func NewQueryService(store *repo.Store, types *TypeRegistry, loc *time.Location) *QueryService {
	if loc == nil {
		loc = time.UTC
	}
	return &QueryService{store: store, types: types, loc: loc, changesLimit: repo.ChangesLimit}
}

// Query 无法识别的类别 / 日期 / 月份按“无匹配”处理，返回空结果而非错误
func (s *QueryService) Query(ctx context.Context, scope Scope, in QueryInput) (*QueryResult, error) {
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	f := domain.ComplaintFilter{OwnerID: scope.OwnerID}

	if !isAll(in.Status) {
		st, ok := domain.ParseStatus(in.Status)
		if !ok {
			return Group(nil), nil
		}
		f.Status = st
	}
	if !isAll(in.Type) {
		name, ok, err := s.types.Canonical(ctx, in.Type)
		if err != nil {
			return nil, err
		}
		if !ok {
			return Group(nil), nil
		}
		f.Type = name
	}
	if d := strings.TrimSpace(in.Date); d != "" {
		day, err := time.ParseInLocation("2006-01-02", d, s.loc)
		if err != nil {
			return Group(nil), nil
		}
		narrow(&f, day, day.AddDate(0, 0, 1))
	}
	if !isAll(in.Month) {
		m, ok := ParseMonth(in.Month, s.loc)
		if !ok {
			return Group(nil), nil
		}
		narrow(&f, m, m.AddDate(0, 1, 0))
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return Group(nil), nil
	}

	rows, err := s.store.Complaints.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	views, err := s.withOwners(ctx, rows)
	if err != nil {
		return nil, err
	}
	views = MatchText(views, in.Search)
	SortViews(views, ParseSort(in.Sort))
	return Group(views), nil
}

func (s *QueryService) withOwners(ctx context.Context, rows []domain.Complaint) ([]domain.ComplaintView, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	seen := map[string]struct{}{}
	var ids []string
	for _, c := range rows {
		if _, ok := seen[c.OwnerID]; !ok {
			seen[c.OwnerID] = struct{}{}
			ids = append(ids, c.OwnerID)
		}
	}
	owners, err := s.store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ComplaintView, 0, len(rows))
	for _, c := range rows {
		out = append(out, domain.NewComplaintView(c, owners[c.OwnerID]))
	}
	return out, nil
}

type ChangesInput struct {
	Since string `form:"since" validate:"omitempty,max=64"`
	After string `form:"after" validate:"omitempty,max=64"` // 上次返回的 cursorId
}

type ChangeSet struct {
	Items    []domain.ComplaintView `json:"items"`
	Removed  []string               `json:"removed"`
	Cursor   time.Time              `json:"cursor"`
	CursorID string                 `json:"cursorId"`
	More     bool                   `json:"more"`
}

// Changes 轮询：返回游标之后变更过的投诉，客户端下次带回 cursor 与 cursorId
func (s *QueryService) Changes(ctx context.Context, scope Scope, in ChangesInput) (*ChangeSet, error) {
	if items := validate.Struct(&in); len(items) > 0 {
		return nil, domain.NewValidationError(items...)
	}
	var since time.Time
	if v := strings.TrimSpace(in.Since); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, domain.NewValidationError("since must be an RFC3339 timestamp")
		}
		since = t.UTC()
	}

	after := domain.ChangeCursor{UpdatedAt: since, ID: strings.TrimSpace(in.After)}
	rows, err := s.store.Complaints.ChangedSince(ctx, scope.OwnerID, after, s.changesLimit)
	if err != nil {
		return nil, err
	}
	out := &ChangeSet{
		Items: []domain.ComplaintView{}, Removed: []string{},
		Cursor: after.UpdatedAt, CursorID: after.ID, More: len(rows) >= s.changesLimit,
	}
	var live []domain.Complaint
	for _, c := range rows {
		// 行按 (updated_at, id) 递增，最后一行即新游标
		out.Cursor, out.CursorID = c.UpdatedAt, c.ID
		if c.IsDeleted {
			out.Removed = append(out.Removed, c.ID)
			continue
		}
		live = append(live, c)
	}
	views, err := s.withOwners(ctx, live)
	if err != nil {
		return nil, err
	}
	if views != nil {
		out.Items = views
	}
	return out, nil
}

func isAll(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "" || strings.HasPrefix(v, "all")
}

func narrow(f *domain.ComplaintFilter, from, to time.Time) {
	from, to = from.UTC(), to.UTC()
	if f.From == nil || from.After(*f.From) {
		f.From = &from
	}
	if f.To == nil || to.Before(*f.To) {
		f.To = &to
	}
}

var monthLayouts = []string{"2006-01", "January 2006", "Jan 2006", "01/2006"}

// ParseMonth 支持 "2025-10" 与 "October 2025"
func ParseMonth(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MatchText 不区分大小写匹配住户名、房号、编号、描述
func MatchText(views []domain.ComplaintView, q string) []domain.ComplaintView {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return views
	}
	out := views[:0]
	for _, v := range views {
		if strings.Contains(strings.ToLower(v.ResidentName), q) ||
			strings.Contains(strings.ToLower(v.RoomNumber), q) ||
			strings.Contains(strings.ToLower(v.Code), q) ||
			strings.Contains(strings.ToLower(v.Description), q) {
			out = append(out, v)
		}
	}
	return out
}

// SortViews 主键相同时按 createdAt 倒序、id 升序
func SortViews(views []domain.ComplaintView, key SortKey) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := &views[i], &views[j]
		switch key {
		case SortOldest:
			if ta, tb := a.ActivityAt(), b.ActivityAt(); !ta.Equal(tb) {
				return ta.Before(tb)
			}
		case SortRoom:
			if a.RoomNumber != b.RoomNumber {
				return a.RoomNumber < b.RoomNumber
			}
		case SortName:
			if na, nb := strings.ToLower(a.ResidentName), strings.ToLower(b.ResidentName); na != nb {
				return na < nb
			}
		default:
			if ta, tb := a.ActivityAt(), b.ActivityAt(); !ta.Equal(tb) {
				return ta.After(tb)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Group 按状态分桶，桶内保持传入顺序
func Group(views []domain.ComplaintView) *QueryResult {
	r := &QueryResult{
		All: make([]domain.ComplaintView, 0, len(views)),
		Grouped: Buckets{
			Pending:    []domain.ComplaintView{},
			InProgress: []domain.ComplaintView{},
			Resolved:   []domain.ComplaintView{},
		},
	}
	for _, v := range views {
		switch v.Status {
		case domain.StatusPending:
			r.Grouped.Pending = append(r.Grouped.Pending, v)
		case domain.StatusInProgress:
			r.Grouped.InProgress = append(r.Grouped.InProgress, v)
		case domain.StatusResolved:
			r.Grouped.Resolved = append(r.Grouped.Resolved, v)
		default:
			continue
		}
		r.All = append(r.All, v)
	}
	r.Counts = Counts{
		Pending:    len(r.Grouped.Pending),
		InProgress: len(r.Grouped.InProgress),
		Resolved:   len(r.Grouped.Resolved),
		Total:      len(r.All),
	}
	return r
}
