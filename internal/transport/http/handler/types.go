package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"complaint-desk/internal/domain"
	"complaint-desk/internal/service"
	httpez "complaint-desk/internal/transport/http/ez"
)

type TypeHandler struct {
	Types *service.TypeRegistry
}

type typesQuery struct {
	IncludeInactive bool `form:"includeInactive"`
}

func (h *TypeHandler) MountAPI(public, _ *gin.RouterGroup) {
	// 提交表单的下拉项，只列启用中的
	httpez.RegisterAction(httpez.New(public), httpez.Action[struct{}, []domain.ComplaintType]{
		Method: http.MethodGet,
		Path:   "/types",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.ComplaintType, error) {
			return h.Types.List(c.Request.Context(), false)
		},
	})
}

func (h *TypeHandler) MountAdmin(_, private *gin.RouterGroup) {
	ez := httpez.New(private)
	admin := []string{domain.RoleAdmin}

	httpez.RegisterAction(ez, httpez.Action[typesQuery, []domain.ComplaintType]{
		Method: http.MethodGet,
		Path:   "/types",
		Binder: httpez.BindQuery,
		Auth:   true,
		Roles:  admin,
		Handler: func(c *gin.Context, in *typesQuery) ([]domain.ComplaintType, error) {
			return h.Types.List(c.Request.Context(), in.IncludeInactive)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.AddTypeInput, *domain.ComplaintType]{
		Method: http.MethodPost,
		Path:   "/types",
		Binder: httpez.BindJSON,
		Auth:   true,
		Roles:  admin,
		Handler: func(c *gin.Context, in *service.AddTypeInput) (*domain.ComplaintType, error) {
			return h.Types.Add(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/types/:name",
		Binder: httpez.BindNone,
		Auth:   true,
		Roles:  admin,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			name := c.Param("name")
			if err := h.Types.Deactivate(c.Request.Context(), name); err != nil {
				return nil, err
			}
			return gin.H{"name": name, "active": false}, nil
		},
	})
}
