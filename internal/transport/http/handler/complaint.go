package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"complaint-desk/internal/domain"
	"complaint-desk/internal/export"
	"complaint-desk/internal/service"
	httpez "complaint-desk/internal/transport/http/ez"
)

// ComplaintHandler 住户端与管理端共用，作用域由调用者角色决定
type ComplaintHandler struct {
	Complaints *service.ComplaintService
	Logs       *service.RecordLogService
	Query      *service.QueryService
}

func (h *ComplaintHandler) MountAPI(_, private *gin.RouterGroup) {
	ez := httpez.New(private)

	httpez.RegisterAction(ez, httpez.Action[service.CreateInput, *domain.ComplaintView]{
		Method: http.MethodPost,
		Path:   "/complaints",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  []string{domain.RoleUser},
		Handler: func(c *gin.Context, in *service.CreateInput) (*domain.ComplaintView, error) {
			return h.Complaints.Create(c.Request.Context(), httpez.ActorOf(c), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/complaints/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := h.Complaints.SoftDelete(c.Request.Context(), httpez.ActorOf(c), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id, "deleted": true}, nil
		},
	})

	h.mountRead(ez, nil)
}

func (h *ComplaintHandler) MountAdmin(_, private *gin.RouterGroup) {
	ez := httpez.New(private)
	admin := []string{domain.RoleAdmin}

	httpez.RegisterAction(ez, httpez.Action[service.TransitionInput, *domain.Complaint]{
		Method: http.MethodPost,
		Path:   "/complaints/:id/transition",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  admin,
		Handler: func(c *gin.Context, in *service.TransitionInput) (*domain.Complaint, error) {
			return h.Complaints.Transition(c.Request.Context(), httpez.ActorOf(c), c.Param("id"), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.AppendNoteInput, *domain.RecordLog]{
		Method: http.MethodPost,
		Path:   "/complaints/:id/logs",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  admin,
		Handler: func(c *gin.Context, in *service.AppendNoteInput) (*domain.RecordLog, error) {
			return h.Logs.Append(c.Request.Context(), httpez.ActorOf(c), c.Param("id"), *in)
		},
	})

	h.mountRead(ez, admin)
}

// mountRead 列表 / 轮询 / 详情 / 记录 / 导出
func (h *ComplaintHandler) mountRead(ez httpez.EZ, roles []string) {
	httpez.RegisterAction(ez, httpez.Action[service.QueryInput, *service.QueryResult]{
		Method: http.MethodGet,
		Path:   "/complaints",
		Binder: httpez.BindQuery,
		Auth:   true,
		Roles:  roles,
		Handler: func(c *gin.Context, in *service.QueryInput) (*service.QueryResult, error) {
			return h.Query.Query(c.Request.Context(), service.ScopeOf(httpez.ActorOf(c)), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.ChangesInput, *service.ChangeSet]{
		Method: http.MethodGet,
		Path:   "/complaints/changes",
		Binder: httpez.BindQuery,
		Auth:   true,
		Roles:  roles,
		Handler: func(c *gin.Context, in *service.ChangesInput) (*service.ChangeSet, error) {
			return h.Query.Changes(c.Request.Context(), service.ScopeOf(httpez.ActorOf(c)), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.ComplaintView]{
		Method: http.MethodGet,
		Path:   "/complaints/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  roles,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.ComplaintView, error) {
			return h.Complaints.Get(c.Request.Context(), httpez.ActorOf(c), c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.LogPageInput, *service.LogPage]{
		Method: http.MethodGet,
		Path:   "/complaints/:id/logs",
		Binder: httpez.BindQuery,
		Auth:   true,
		Roles:  roles,
		Handler: func(c *gin.Context, in *service.LogPageInput) (*service.LogPage, error) {
			return h.Logs.List(c.Request.Context(), httpez.ActorOf(c), c.Param("id"), *in)
		},
	})

	httpez.Raw(ez, http.MethodGet, "/complaints/:id/export", true, roles, h.export)
}

func (h *ComplaintHandler) export(c *gin.Context) error {
	r, err := h.Complaints.Receipt(c.Request.Context(), httpez.ActorOf(c), c.Param("id"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.WriteReceipt(&buf, *r); err != nil {
		return httpez.Internal("render receipt failed", err)
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, r.FileName()))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	return nil
}
