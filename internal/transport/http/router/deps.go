package router

import (
	"go.uber.org/zap"

	"complaint-desk/internal/core/auth"
	"complaint-desk/internal/service"
	"complaint-desk/internal/transport/http/handler"
)

// Deps 两个 engine 共用的依赖
type Deps struct {
	Log        *zap.Logger
	Mode       string // gin mode: debug / release / test
	JWT        *auth.JWTer
	Users      *service.UserService
	Types      *service.TypeRegistry
	Complaints *service.ComplaintService
	Logs       *service.RecordLogService
	Query      *service.QueryService
}

func (d Deps) registry() *Registry {
	r := &Registry{}
	r.Register(
		&handler.AuthHandler{Users: d.Users, JWT: d.JWT},
		&handler.ProfileHandler{Users: d.Users},
		&handler.TypeHandler{Types: d.Types},
		&handler.ComplaintHandler{Complaints: d.Complaints, Logs: d.Logs, Query: d.Query},
		&handler.UserAdminHandler{Users: d.Users},
	)
	return r
}
