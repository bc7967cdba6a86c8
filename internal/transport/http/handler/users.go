package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"complaint-desk/internal/domain"
	"complaint-desk/internal/service"
	httpez "complaint-desk/internal/transport/http/ez"
)

// UserAdminHandler 管理端用户列表
type UserAdminHandler struct {
	Users *service.UserService
}

func (h *UserAdminHandler) MountAdmin(_, private *gin.RouterGroup) {
	httpez.RegisterAction(httpez.New(private), httpez.Action[service.ListUsersInput, *service.UserPage]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Roles:  []string{domain.RoleAdmin},
		Handler: func(c *gin.Context, in *service.ListUsersInput) (*service.UserPage, error) {
			return h.Users.List(c.Request.Context(), *in)
		},
	})
}
