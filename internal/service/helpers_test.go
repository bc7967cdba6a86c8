package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"complaint-desk/internal/core/database"
	"complaint-desk/internal/domain"
	"complaint-desk/internal/events"
	"complaint-desk/internal/repo"
)

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
}
func (r *recorder) Close() error { return nil }

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, e := range r.got {
		out = append(out, e.Name)
	}
	return out
}

// tickClock 每次调用前进一分钟，保证时间戳可区分
type tickClock struct{ t time.Time }

func (c *tickClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

type env struct {
	store      *repo.Store
	types      *TypeRegistry
	complaints *ComplaintService
	logs       *RecordLogService
	query      *QueryService
	users      *UserService
	events     *recorder
	clock      *tickClock
}

func newEnv(t *testing.T, opts ComplaintOptions) *env {
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
	require.NoError(t, repo.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	l := zap.NewNop()
	store := repo.NewStore(db)
	e := &env{store: store, events: &recorder{}, clock: &tickClock{t: time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)}}
	e.types = NewTypeRegistry(store, nil, l)
	e.complaints = NewComplaintService(store, e.types, e.events, l, opts)
	e.complaints.SetClock(e.clock.now)
	e.logs = NewRecordLogService(store, e.complaints, 3)
	e.query = NewQueryService(store, e.types, time.UTC)
	e.users = NewUserService(store, l)
	return e
}

func (e *env) resident(t *testing.T, name, room string) domain.Actor {
	t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
	u, err := e.users.Signup(context.Background(), SignupInput{
		FullName: name, Email: email, RoomNumber: room,
		Password: "Secret123", ConfirmPassword: "Secret123",
	})
	require.NoError(t, err)
	return domain.Actor{UserID: u.ID, Role: u.Role, Name: u.FullName}
}

func (e *env) admin(t *testing.T) domain.Actor {
	t.Helper()
	u, err := e.users.CreateAdmin(context.Background(), AdminInput{
		FullName: "Desk Admin", Email: "admin@example.com", Password: "Admin1234",
	})
	require.NoError(t, err)
	return domain.Actor{UserID: u.ID, Role: u.Role, Name: u.FullName}
}

func (e *env) file(t *testing.T, who domain.Actor, typ, desc string) *domain.ComplaintView {
	t.Helper()
	c, err := e.complaints.Create(context.Background(), who, CreateInput{Type: typ, Description: desc})
	require.NoError(t, err)
	return c
}
