package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"complaint-desk/internal/core/auth"
	"complaint-desk/internal/core/database"
	"complaint-desk/internal/events"
	"complaint-desk/internal/repo"
	"complaint-desk/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

type harness struct {
	api   *gin.Engine
	admin *gin.Engine
	users *service.UserService
}

func setup(t *testing.T) *harness {
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
	types := service.NewTypeRegistry(store, nil, l)
	complaints := service.NewComplaintService(store, types, events.Nop{}, l, service.ComplaintOptions{AllowSkipInProgress: true})
	d := Deps{
		Log:        l,
		Mode:       gin.TestMode,
		JWT:        &auth.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: time.Hour},
		Users:      service.NewUserService(store, l),
		Types:      types,
		Complaints: complaints,
		Logs:       service.NewRecordLogService(store, complaints, 3),
		Query:      service.NewQueryService(store, types, time.UTC),
	}
	return &harness{api: NewAPIEngine(d), admin: NewAdminEngine(d), users: d.Users}
}

func httpDo(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

type tokenData struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (h *harness) signup(t *testing.T, name, email, room string) string {
	t.Helper()
	_, env := httpDo(t, h.api, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"fullName": name, "email": email, "roomNumber": room,
		"password": "Secret123", "confirmPassword": "Secret123",
	})
	require.True(t, env.Success, env.Msg)
	return decode[tokenData](t, env).Token
}

func (h *harness) adminToken(t *testing.T) string {
	t.Helper()
	_, err := h.users.CreateAdmin(context.Background(), service.AdminInput{FullName: "Desk Admin", Email: "admin@example.com", Password: "Admin1234"})
	require.NoError(t, err)
	_, env := httpDo(t, h.admin, http.MethodPost, "/admin/v1/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "Admin1234",
	})
	require.True(t, env.Success, env.Msg)
	return decode[tokenData](t, env).Token
}

type complaintData struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Status      string `json:"status"`
	StatusLabel string `json:"statusLabel"`
	RoomNumber  string `json:"roomNumber"`
}

func TestHealthAndMetrics(t *testing.T) {
	h := setup(t)
	w, _ := httpDo(t, h.api, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = httpDo(t, h.admin, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestComplaintLifecycleOverHTTP(t *testing.T) {
	h := setup(t)
	ann := h.signup(t, "Ann Lee", "ann@example.com", "101")
	admin := h.adminToken(t)

	w, env := httpDo(t, h.api, http.MethodPost, "/api/v1/complaints", ann, map[string]string{
		"type": "noise", "description": "drums upstairs at night",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success, env.Msg)
	c := decode[complaintData](t, env)
	assert.Equal(t, "CD-00001", c.Code)
	assert.Equal(t, "Pending", c.Status)
	assert.Equal(t, "101", c.RoomNumber)

	// 未解决不能删
	_, env = httpDo(t, h.api, http.MethodDelete, "/api/v1/complaints/"+c.ID, ann, nil)
	assert.Equal(t, 409, env.Code)

	_, env = httpDo(t, h.admin, http.MethodPost, "/admin/v1/complaints/"+c.ID+"/transition", admin, map[string]string{
		"status": "In Progress", "note": "plumber booked",
	})
	require.True(t, env.Success, env.Msg)
	_, env = httpDo(t, h.admin, http.MethodPost, "/admin/v1/complaints/"+c.ID+"/transition", admin, map[string]string{
		"status": "InProgress",
	})
	assert.Equal(t, 409, env.Code)
	_, env = httpDo(t, h.admin, http.MethodPost, "/admin/v1/complaints/"+c.ID+"/transition", admin, map[string]string{
		"status": "Resolved", "note": "fixed",
	})
	require.True(t, env.Success, env.Msg)

	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/complaints/"+c.ID+"/logs?all=true", ann, nil)
	require.True(t, env.Success, env.Msg)
	page := decode[struct {
		Items []struct {
			Message   string `json:"message"`
			CreatedBy string `json:"createdBy"`
		} `json:"items"`
		Total int `json:"total"`
	}](t, env)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, "plumber booked", page.Items[1].Message)
	assert.Equal(t, "Desk Admin", page.Items[2].CreatedBy)

	w, _ = httpDo(t, h.api, http.MethodGet, "/api/v1/complaints/"+c.ID+"/export", ann, nil)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "complaint-CD-00001.pdf")

	_, env = httpDo(t, h.api, http.MethodDelete, "/api/v1/complaints/"+c.ID, ann, nil)
	require.True(t, env.Success, env.Msg)
	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/complaints/"+c.ID, ann, nil)
	assert.Equal(t, 404, env.Code)
}

func TestQueryOverHTTP(t *testing.T) {
	h := setup(t)
	ann := h.signup(t, "Ann Lee", "ann@example.com", "101")
	bob := h.signup(t, "Bob Ray", "bob@example.com", "102")
	admin := h.adminToken(t)
	for _, in := range []struct{ tok, typ string }{{ann, "Noise"}, {ann, "Billing"}, {bob, "Noise"}} {
		_, env := httpDo(t, h.api, http.MethodPost, "/api/v1/complaints", in.tok, map[string]string{
			"type": in.typ, "description": "something is wrong here",
		})
		require.True(t, env.Success, env.Msg)
	}

	type result struct {
		All    []complaintData `json:"all"`
		Counts struct {
			Pending int `json:"pending"`
			Total   int `json:"total"`
		} `json:"counts"`
	}
	_, env := httpDo(t, h.api, http.MethodGet, "/api/v1/complaints?type=Noise&sort=oldest", ann, nil)
	require.True(t, env.Success, env.Msg)
	r := decode[result](t, env)
	assert.Equal(t, 1, r.Counts.Total)

	_, env = httpDo(t, h.admin, http.MethodGet, "/admin/v1/complaints?type=Noise", admin, nil)
	r = decode[result](t, env)
	assert.Equal(t, 2, r.Counts.Total)

	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/complaints?month=Smarch", ann, nil)
	require.True(t, env.Success)
	assert.Equal(t, 0, decode[result](t, env).Counts.Total)

	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/complaints?sort=sideways", ann, nil)
	assert.Equal(t, 400, env.Code)

	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/complaints/changes", bob, nil)
	require.True(t, env.Success, env.Msg)
	changes := decode[struct {
		Items  []complaintData `json:"items"`
		Cursor time.Time       `json:"cursor"`
	}](t, env)
	assert.Len(t, changes.Items, 1)
	assert.False(t, changes.Cursor.IsZero())
}

func TestValidationEnvelope(t *testing.T) {
	h := setup(t)
	ann := h.signup(t, "Ann Lee", "ann@example.com", "101")

	_, env := httpDo(t, h.api, http.MethodPost, "/api/v1/complaints", ann, map[string]string{
		"type": "Noise", "description": "short",
	})
	assert.False(t, env.Success)
	assert.Equal(t, 400, env.Code)
	assert.Contains(t, env.Errors, "description must be at least 10 characters")

	_, env = httpDo(t, h.api, http.MethodPost, "/api/v1/complaints", ann, map[string]string{
		"type": "Plumbing", "description": "drums upstairs at night",
	})
	assert.Equal(t, 400, env.Code)
	assert.NotEmpty(t, env.Errors)

	// 未知字段
	_, env = httpDo(t, h.api, http.MethodPost, "/api/v1/complaints", ann,
		`{"type":"Noise","description":"drums upstairs at night","status":"Resolved"}`)
	assert.Equal(t, 400, env.Code)

	_, env = httpDo(t, h.api, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"fullName": "Eve", "email": "eve@example.com", "roomNumber": "303",
		"password": "abc", "confirmPassword": "abd",
	})
	assert.Equal(t, 400, env.Code)
	assert.Contains(t, env.Errors, "passwords do not match")
}

func TestAuthBoundaries(t *testing.T) {
	h := setup(t)
	ann := h.signup(t, "Ann Lee", "ann@example.com", "101")

	_, env := httpDo(t, h.api, http.MethodGet, "/api/v1/complaints", "", nil)
	assert.Equal(t, 401, env.Code)
	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/complaints", "garbage", nil)
	assert.Equal(t, 401, env.Code)

	// 住户 token 进不了管理端
	_, env = httpDo(t, h.admin, http.MethodGet, "/admin/v1/complaints", ann, nil)
	assert.Equal(t, 403, env.Code)
	_, env = httpDo(t, h.admin, http.MethodPost, "/admin/v1/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "Secret123",
	})
	assert.Equal(t, 403, env.Code)

	_, env = httpDo(t, h.api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "wrong",
	})
	assert.Equal(t, 401, env.Code)

	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/auth/session", ann, nil)
	require.True(t, env.Success)
	sess := decode[struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}](t, env)
	assert.Equal(t, "Ann Lee", sess.Name)
	assert.Equal(t, "user", sess.Role)

	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/profile", ann, nil)
	require.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"complaints"`)
	assert.NotContains(t, string(env.Data), "passwordHash")
}

func TestAdminTypesAndUsers(t *testing.T) {
	h := setup(t)
	h.signup(t, "Ann Lee", "ann@example.com", "101")
	admin := h.adminToken(t)

	_, env := httpDo(t, h.admin, http.MethodPost, "/admin/v1/types", admin, map[string]string{"name": "Parking"})
	require.True(t, env.Success, env.Msg)
	_, env = httpDo(t, h.admin, http.MethodPost, "/admin/v1/types", admin, map[string]string{"name": "parking"})
	assert.Equal(t, 409, env.Code)
	_, env = httpDo(t, h.admin, http.MethodDelete, "/admin/v1/types/Parking", admin, nil)
	require.True(t, env.Success, env.Msg)

	_, env = httpDo(t, h.api, http.MethodGet, "/api/v1/types", "", nil)
	require.True(t, env.Success)
	assert.NotContains(t, string(env.Data), "Parking")
	_, env = httpDo(t, h.admin, http.MethodGet, "/admin/v1/types?includeInactive=true", admin, nil)
	assert.Contains(t, string(env.Data), "Parking")

	_, env = httpDo(t, h.admin, http.MethodGet, "/admin/v1/users?keyword=ann", admin, nil)
	require.True(t, env.Success, env.Msg)
	users := decode[struct {
		Total int `json:"total"`
	}](t, env)
	assert.Equal(t, 1, users.Total)
}
