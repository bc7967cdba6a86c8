package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"complaint-desk/internal/core/auth"
	"complaint-desk/internal/domain"
	"complaint-desk/internal/service"
	httpez "complaint-desk/internal/transport/http/ez"
	mdw "complaint-desk/internal/transport/http/middleware"
)

// AuthHandler 注册 / 登录 / 会话
type AuthHandler struct {
	Users *service.UserService
	JWT   *auth.JWTer
}

func (h *AuthHandler) Priority() int { return 10 }

type TokenOut struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type SessionOut struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"userId"`
	Role          string    `json:"role"`
	Name          string    `json:"name"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func (h *AuthHandler) issue(u *domain.User) (TokenOut, error) {
	tok, exp, err := h.JWT.Issue(u.ID, u.Role, u.FullName)
	if err != nil || tok == "" {
		return TokenOut{}, httpez.Internal("issue token failed", err)
	}
	return TokenOut{Token: tok, ExpiresAt: exp, User: u}, nil
}

func (h *AuthHandler) MountAPI(public, private *gin.RouterGroup) {
	pub, priv := httpez.New(public), httpez.New(private)

	httpez.RegisterAction(pub, httpez.Action[service.SignupInput, TokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/signup",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *service.SignupInput) (TokenOut, error) {
			u, err := h.Users.Signup(c.Request.Context(), *in)
			if err != nil {
				return TokenOut{}, err
			}
			return h.issue(u)
		},
	})

	httpez.RegisterAction(pub, httpez.Action[service.LoginInput, TokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *service.LoginInput) (TokenOut, error) {
			u, err := h.Users.Login(c.Request.Context(), *in)
			if err != nil {
				return TokenOut{}, err
			}
			return h.issue(u)
		},
	})

	h.mountSession(priv)
}

func (h *AuthHandler) MountAdmin(public, private *gin.RouterGroup) {
	pub := httpez.New(public)

	// 管理端登录：只放行 admin 角色
	httpez.RegisterAction(pub, httpez.Action[service.LoginInput, TokenOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *service.LoginInput) (TokenOut, error) {
			u, err := h.Users.Login(c.Request.Context(), *in)
			if err != nil {
				return TokenOut{}, err
			}
			if u.Role != domain.RoleAdmin {
				return TokenOut{}, httpez.Forbidden("administrator account required")
			}
			return h.issue(u)
		},
	})

	h.mountSession(httpez.New(private))
}

// 会话是无状态 JWT：logout 只是让客户端丢弃 token
func (h *AuthHandler) mountSession(priv httpez.EZ) {
	httpez.RegisterAction(priv, httpez.Action[struct{}, SessionOut]{
		Method: http.MethodGet,
		Path:   "/auth/session",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (SessionOut, error) {
			out := SessionOut{
				Authenticated: true,
				UserID:        c.GetString(mdw.KeyUserID),
				Role:          c.GetString(mdw.KeyRole),
				Name:          c.GetString(mdw.KeyName),
			}
			if cl, ok := c.Get(mdw.KeyClaims); ok {
				if claims, ok := cl.(*auth.Claims); ok && claims.ExpiresAt != nil {
					out.ExpiresAt = claims.ExpiresAt.Time
				}
			}
			return out, nil
		},
	})

	httpez.RegisterAction(priv, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			return gin.H{"loggedOut": true}, nil
		},
	})
}
