package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complaint-desk/internal/core/database"
	"complaint-desk/internal/domain"
	"complaint-desk/pkg/utils"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db)
}

func seedUser(t *testing.T, s *Store, name, email, room string) *domain.User {
	t.Helper()
	u := &domain.User{ID: utils.NewID(), FullName: name, Email: email, Role: domain.RoleUser, PasswordHash: "x"}
	if room != "" {
		u.RoomNumber = &room
	}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func TestMigrateSeedsTypesOnce(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Migrate(s.DB()))

	types, err := s.Types.All(context.Background())
	require.NoError(t, err)
	require.Len(t, types, len(domain.DefaultComplaintTypes))
	assert.Equal(t, "Maintenance", types[0].Name)
	for _, ct := range types {
		assert.True(t, ct.Active)
	}
}

func TestNextCodeSequential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var codes []string
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Tx(ctx, func(tx *Store) error {
			c, err := tx.Complaints.NextCode(ctx, "CD")
			codes = append(codes, c)
			return err
		}))
	}
	assert.Equal(t, []string{"CD-00001", "CD-00002", "CD-00003"}, codes)
}

func TestComplaintStatusCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "Ann", "ann@example.com", "101")
	now := time.Now().UTC()

	c := &domain.Complaint{ID: utils.NewID(), Code: "CD-00001", OwnerID: u.ID, Type: "Noise",
		Description: "loud music every night", Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Complaints.Create(ctx, c))

	c.Status = domain.StatusInProgress
	ok, err := s.Complaints.UpdateStatus(ctx, c, domain.StatusPending)
	require.NoError(t, err)
	assert.True(t, ok)

	// 第二次以旧状态为条件应失败
	ok, err = s.Complaints.UpdateStatus(ctx, c, domain.StatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Complaints.FindActive(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)

	ok, err = s.Complaints.MarkDeleted(ctx, c.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Complaints.MarkDeleted(ctx, c.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = s.Complaints.FindActive(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	changed, err := s.Complaints.ChangedSince(ctx, u.ID, domain.ChangeCursor{UpdatedAt: now.Add(-time.Hour)}, 0)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.True(t, changed[0].IsDeleted)
}

func TestChangedSinceKeysetOnTies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "Ann", "ann@example.com", "101")
	at := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	ids := []string{"c-1", "c-2", "c-3"}
	for i, id := range ids {
		require.NoError(t, s.Complaints.Create(ctx, &domain.Complaint{ID: id, Code: fmt.Sprintf("CD-%05d", i+1),
			OwnerID: u.ID, Type: "Noise", Description: "same second update", Status: domain.StatusPending,
			CreatedAt: at, UpdatedAt: at}))
	}

	page, err := s.Complaints.ChangedSince(ctx, u.ID, domain.ChangeCursor{UpdatedAt: at.Add(-time.Second)}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c-1", page[0].ID)
	assert.Equal(t, "c-2", page[1].ID)

	// 同一时间戳被截断时，剩下的行仍能取到
	rest, err := s.Complaints.ChangedSince(ctx, u.ID, domain.ChangeCursor{UpdatedAt: page[1].UpdatedAt, ID: page[1].ID}, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c-3", rest[0].ID)

	none, err := s.Complaints.ChangedSince(ctx, u.ID, domain.ChangeCursor{UpdatedAt: rest[0].UpdatedAt, ID: rest[0].ID}, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchAndCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "Ann", "ann@example.com", "101")
	b := seedUser(t, s, "Bob", "bob@example.com", "102")
	base := time.Date(2025, 10, 5, 9, 0, 0, 0, time.UTC)

	mk := func(owner, typ string, st domain.Status, at time.Time, code string) {
		c := &domain.Complaint{ID: utils.NewID(), Code: code, OwnerID: owner, Type: typ,
			Description: "some description", Status: st, CreatedAt: at, UpdatedAt: at}
		require.NoError(t, s.Complaints.Create(ctx, c))
	}
	mk(a.ID, "Noise", domain.StatusPending, base, "CD-1")
	mk(a.ID, "Billing", domain.StatusResolved, base.AddDate(0, 1, 0), "CD-2")
	mk(b.ID, "Noise", domain.StatusPending, base.AddDate(0, 0, 1), "CD-3")

	all, err := s.Complaints.Search(ctx, domain.ComplaintFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.Complaints.Search(ctx, domain.ComplaintFilter{OwnerID: a.ID, Type: "Noise"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "CD-1", mine[0].Code)

	from, to := base, base.AddDate(0, 0, 1)
	day, err := s.Complaints.Search(ctx, domain.ComplaintFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, "CD-1", day[0].Code)

	counts, err := s.Complaints.CountByStatus(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.StatusPending])
	assert.Equal(t, int64(1), counts[domain.StatusResolved])
}

func TestRecordLogListOrderAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Logs.Append(ctx, &domain.RecordLog{
			ComplaintID: "c1", Message: fmt.Sprintf("m%d", i), CreatedBy: "x", Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	page, total, err := s.Logs.List(ctx, "c1", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 3)
	assert.Equal(t, "m0", page[0].Message)
	assert.Equal(t, "m2", page[2].Message)

	rest, _, err := s.Logs.List(ctx, "c1", 3, 0)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "m4", rest[1].Message)
}

func TestUserTakenAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "Ann Lee", "ann@example.com", "101")
	seedUser(t, s, "Bob Ray", "bob@example.com", "102")

	taken, err := s.Users.EmailTaken(ctx, "ANN@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.Users.EmailTaken(ctx, "ann@example.com", a.ID)
	require.NoError(t, err)
	assert.False(t, taken)
	taken, err = s.Users.RoomTaken(ctx, "102", a.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	users, total, err := s.Users.List(ctx, "ray", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Bob Ray", users[0].FullName)

	missing, err := s.Users.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTypeSetActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ok, err := s.Types.SetActive(ctx, "noise", false)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Types.SetActive(ctx, "Plumbing", false)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Types.Create(ctx, &domain.ComplaintType{Name: "Parking", Active: true}))
	all, err := s.Types.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Parking", all[len(all)-1].Name)
}
