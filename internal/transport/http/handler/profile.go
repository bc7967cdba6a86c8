package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"complaint-desk/internal/domain"
	"complaint-desk/internal/service"
	httpez "complaint-desk/internal/transport/http/ez"
)

type ProfileHandler struct {
	Users *service.UserService
}

func (h *ProfileHandler) MountAPI(_, private *gin.RouterGroup) {
	ez := httpez.New(private)

	httpez.RegisterAction(ez, httpez.Action[struct{}, *service.Profile]{
		Method: http.MethodGet,
		Path:   "/profile",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Profile, error) {
			return h.Users.Profile(c.Request.Context(), httpez.ActorOf(c).UserID)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.UpdateProfileInput, *domain.User]{
		Method: http.MethodPut,
		Path:   "/profile",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.UpdateProfileInput) (*domain.User, error) {
			return h.Users.UpdateProfile(c.Request.Context(), httpez.ActorOf(c).UserID, *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[service.ChangePasswordInput, gin.H]{
		Method: http.MethodPost,
		Path:   "/profile/password",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.ChangePasswordInput) (gin.H, error) {
			if err := h.Users.ChangePassword(c.Request.Context(), httpez.ActorOf(c).UserID, *in); err != nil {
				return nil, err
			}
			return gin.H{"changed": true}, nil
		},
	})
}
