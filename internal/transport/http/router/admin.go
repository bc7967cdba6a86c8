package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"complaint-desk/internal/core/server"
	"complaint-desk/internal/domain"
	mdw "complaint-desk/internal/transport/http/middleware"
)

func NewAdminEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, server.Options{Name: "admin", Mode: d.Mode})

	r.Use(
		mdw.RequestID(),
		mdw.Recovery(d.Log),
		mdw.AccessLog(d.Log, quietPaths...),
		mdw.Metrics(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", mdw.MetricsHandler())

	// 管理端 v1：登录公开，其余统一要求 admin 角色
	public := r.Group("/admin/v1")
	admin := public.Group("")
	admin.Use(mdw.AuthJWT(d.JWT, domain.RoleAdmin))

	d.registry().MountAdmin(public, admin)
	return r
}
