package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complaint-desk/internal/domain"
	"complaint-desk/internal/events"
)

func TestCreateValidatesDescriptionLength(t *testing.T) {
	e := newEnv(t, ComplaintOptions{AllowSkipInProgress: true})
	ann := e.resident(t, "Ann Lee", "101")
	ctx := context.Background()

	_, err := e.complaints.Create(ctx, ann, CreateInput{Type: "Noise", Description: "123456789"})
	require.Error(t, err)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Items, "description must be at least 10 characters")

	_, err = e.complaints.Create(ctx, ann, CreateInput{Type: "Noise", Description: strings.Repeat("x", 1001)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	c, err := e.complaints.Create(ctx, ann, CreateInput{Type: "noise", Description: "1234567890"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Equal(t, "Noise", c.Type)
	assert.Equal(t, "CD-00001", c.Code)
	assert.Equal(t, "Ann Lee", c.ResidentName)
	assert.Equal(t, "101", c.RoomNumber)
	assert.Nil(t, c.ResolvedAt)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	page, err := e.logs.List(ctx, ann, c.ID, LogPageInput{})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, domain.MsgComplaintReceived, page.Items[0].Message)
	assert.Equal(t, "Ann Lee", page.Items[0].CreatedBy)
	assert.Equal(t, []string{events.ComplaintCreated}, e.events.names())
}

func TestCreateRejectsUnknownOrInactiveType(t *testing.T) {
	e := newEnv(t, ComplaintOptions{})
	ann := e.resident(t, "Ann Lee", "101")
	ctx := context.Background()

	_, err := e.complaints.Create(ctx, ann, CreateInput{Type: "Plumbing", Description: "the sink is leaking"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	require.NoError(t, e.types.Deactivate(ctx, "Billing"))
	_, err = e.complaints.Create(ctx, ann, CreateInput{Type: "Billing", Description: "double charged this month"})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = e.complaints.Create(ctx, ann, CreateInput{Description: "the sink is leaking"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLifecycleHappyPath(t *testing.T) {
	e := newEnv(t, ComplaintOptions{AllowSkipInProgress: true})
	ann := e.resident(t, "Ann Lee", "101")
	admin := e.admin(t)
	ctx := context.Background()
	c := e.file(t, ann, "Noise", "loud music every night")

	// 住户不能改状态
	_, err := e.complaints.Transition(ctx, ann, c.ID, TransitionInput{Status: "InProgress"})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	got, err := e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "In Progress", Note: "Investigation started"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt))
	assert.Nil(t, got.ResolvedAt)
	assert.Equal(t, "Investigation started", got.AdminNotes)

	page, err := e.logs.List(ctx, admin, c.ID, LogPageInput{All: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Investigation started", page.Items[1].Message)
	assert.Equal(t, "Desk Admin", page.Items[1].CreatedBy)

	_, err = e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "InProgress", Note: "again"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err = e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "Resolved", Note: "Spoke with neighbour"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, got.UpdatedAt, *got.ResolvedAt)
	assert.Equal(t, "Spoke with neighbour", got.ResolutionNotes)
	assert.Equal(t, "Investigation started\nSpoke with neighbour", got.AdminNotes)

	page, err = e.logs.List(ctx, admin, c.ID, LogPageInput{All: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)

	// Resolved 是终态
	_, err = e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "InProgress"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	page, err = e.logs.List(ctx, admin, c.ID, LogPageInput{All: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3, "failed transition must not append a log")

	assert.Equal(t, []string{events.ComplaintCreated, events.ComplaintTransitioned, events.ComplaintTransitioned}, e.events.names())
}

func TestTransitionWithoutNoteUsesDefaultMessage(t *testing.T) {
	e := newEnv(t, ComplaintOptions{AllowSkipInProgress: true})
	ann := e.resident(t, "Ann Lee", "101")
	admin := e.admin(t)
	c := e.file(t, ann, "Facility", "gym treadmill is broken")

	_, err := e.complaints.Transition(context.Background(), admin, c.ID, TransitionInput{Status: "Resolved"})
	require.NoError(t, err)
	page, err := e.logs.List(context.Background(), admin, c.ID, LogPageInput{All: true})
	require.NoError(t, err)
	assert.Equal(t, "Status changed to Resolved", page.Items[1].Message)
}

func TestTransitionSkipIsConfigurable(t *testing.T) {
	e := newEnv(t, ComplaintOptions{AllowSkipInProgress: false})
	ann := e.resident(t, "Ann Lee", "101")
	admin := e.admin(t)
	c := e.file(t, ann, "Noise", "loud music every night")
	ctx := context.Background()

	_, err := e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "Resolved"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "Pending"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "Closed"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.complaints.Transition(ctx, admin, "missing", TransitionInput{Status: "Resolved"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSoftDelete(t *testing.T) {
	e := newEnv(t, ComplaintOptions{AllowSkipInProgress: true})
	ann := e.resident(t, "Ann Lee", "101")
	bob := e.resident(t, "Bob Ray", "102")
	admin := e.admin(t)
	ctx := context.Background()
	c := e.file(t, ann, "Noise", "loud music every night")

	assert.ErrorIs(t, e.complaints.SoftDelete(ctx, ann, c.ID), domain.ErrInvalidState)

	_, err := e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "Resolved", Note: "done"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.complaints.SoftDelete(ctx, bob, c.ID), domain.ErrPermissionDenied)
	assert.ErrorIs(t, e.complaints.SoftDelete(ctx, admin, c.ID), domain.ErrPermissionDenied)

	require.NoError(t, e.complaints.SoftDelete(ctx, ann, c.ID))
	assert.ErrorIs(t, e.complaints.SoftDelete(ctx, ann, c.ID), domain.ErrNotFound)

	// 行仍在库中，只是被标记
	var row domain.Complaint
	require.NoError(t, e.store.DB().Where("id = ?", c.ID).First(&row).Error)
	assert.True(t, row.IsDeleted)
	require.NotNil(t, row.DeletedAt)

	res, err := e.query.Query(ctx, ScopeOf(admin), QueryInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Counts.Total)

	_, err = e.complaints.Get(ctx, ann, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.logs.List(ctx, ann, c.ID, LogPageInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetHidesOtherResidentsComplaints(t *testing.T) {
	e := newEnv(t, ComplaintOptions{})
	ann := e.resident(t, "Ann Lee", "101")
	bob := e.resident(t, "Bob Ray", "102")
	admin := e.admin(t)
	c := e.file(t, ann, "Noise", "loud music every night")
	ctx := context.Background()

	_, err := e.complaints.Get(ctx, bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	v, err := e.complaints.Get(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", v.ResidentName)
	assert.Equal(t, "Pending", v.StatusLabel)
}

func TestReceipt(t *testing.T) {
	e := newEnv(t, ComplaintOptions{AllowSkipInProgress: true})
	ann := e.resident(t, "Ann Lee", "101")
	admin := e.admin(t)
	c := e.file(t, ann, "Noise", "loud music every night")
	ctx := context.Background()
	_, err := e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "InProgress", Note: "checking"})
	require.NoError(t, err)

	r, err := e.complaints.Receipt(ctx, ann, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Code, r.Complaint.Code)
	assert.Len(t, r.Logs, 2)

	bob := e.resident(t, "Bob Ray", "102")
	_, err = e.complaints.Receipt(ctx, bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransitionRaceKeepsBothLogs(t *testing.T) {
	e := newEnv(t, ComplaintOptions{AllowSkipInProgress: true})
	ann := e.resident(t, "Ann Lee", "101")
	first := e.admin(t)
	u, err := e.users.CreateAdmin(context.Background(), AdminInput{
		FullName: "Night Admin", Email: "night@example.com", Password: "Admin1234",
	})
	require.NoError(t, err)
	second := domain.Actor{UserID: u.ID, Role: u.Role, Name: u.FullName}
	ctx := context.Background()

	// 另一位管理员在读写之间抢先把状态改成 InProgress
	raceOnce := func(t *testing.T) {
		e.complaints.testHookBeforeWrite = func(c *domain.Complaint) {
			e.complaints.testHookBeforeWrite = nil
			_, err := e.complaints.Transition(ctx, first, c.ID, TransitionInput{Status: "InProgress"})
			assert.NoError(t, err)
		}
	}

	t.Run("still legal after reload", func(t *testing.T) {
		c := e.file(t, ann, "Noise", "drums upstairs at night")
		raceOnce(t)
		got, err := e.complaints.Transition(ctx, second, c.ID, TransitionInput{Status: "Resolved"})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, got.Status)

		page, err := e.logs.List(ctx, first, c.ID, LogPageInput{All: true})
		require.NoError(t, err)
		assert.Equal(t, []string{domain.MsgComplaintReceived, "Status changed to In Progress", "Status changed to Resolved"}, messages(page.Items))
		assert.Equal(t, "Desk Admin", page.Items[1].CreatedBy)
		assert.Equal(t, "Night Admin", page.Items[2].CreatedBy)
	})

	t.Run("illegal after reload", func(t *testing.T) {
		c := e.file(t, ann, "Billing", "charged twice for water")
		raceOnce(t)
		_, err := e.complaints.Transition(ctx, second, c.ID, TransitionInput{Status: "InProgress"})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		page, err := e.logs.List(ctx, first, c.ID, LogPageInput{All: true})
		require.NoError(t, err)
		assert.Equal(t, []string{domain.MsgComplaintReceived, "Status changed to In Progress"}, messages(page.Items))

		cur, err := e.complaints.Get(ctx, first, c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, cur.Status)
	})
}

func TestTransitionLogUsesCurrentAdminName(t *testing.T) {
	e := newEnv(t, ComplaintOptions{AllowSkipInProgress: true})
	ann := e.resident(t, "Ann Lee", "101")
	admin := e.admin(t)
	ctx := context.Background()
	c := e.file(t, ann, "Noise", "drums upstairs at night")

	_, err := e.users.UpdateProfile(ctx, admin.UserID, UpdateProfileInput{FullName: "Desk Lead", Email: "admin@example.com"})
	require.NoError(t, err)

	// admin.Name 仍是令牌里的旧名字
	_, err = e.complaints.Transition(ctx, admin, c.ID, TransitionInput{Status: "InProgress"})
	require.NoError(t, err)

	page, err := e.logs.List(ctx, admin, c.ID, LogPageInput{All: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Desk Lead", page.Items[1].CreatedBy)
}
