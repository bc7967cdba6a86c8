package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"complaint-desk/internal/core/server"
	mdw "complaint-desk/internal/transport/http/middleware"
)

var quietPaths = []string{"/health", "/metrics"}

func NewAPIEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, server.Options{Name: "api", Mode: d.Mode})

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(d.Log),
		mdw.AccessLog(d.Log, quietPaths...),
		mdw.Metrics(),
		mdw.RateLimitPerIP(30, 60, 10*time.Minute),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", mdw.MetricsHandler())

	// 前缀
	api := r.Group("/api/v1")

	// 鉴权分组（需要登录的接口挂这里才能拿到 userId）
	authUser := api.Group("")
	authUser.Use(mdw.AuthJWT(d.JWT, ""))

	d.registry().MountAPI(api, authUser)
	return r
}
