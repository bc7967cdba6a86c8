package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"complaint-desk/internal/app"
	"complaint-desk/internal/core/config"
	"complaint-desk/internal/core/logger"
	"complaint-desk/internal/core/server"
	"complaint-desk/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := app.Logger(cfg)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	// 保留期清理只在后台进程跑，避免多实例重复执行
	if cfg.Retention.Enabled {
		stopReaper, err := a.Reaper().Start()
		if err != nil {
			log.Fatal("reaper start failed", zap.Error(err))
		}
		defer stopReaper()
	}

	// 路由（后台端）
	r := router.NewAdminEngine(a.Deps())

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.Admin.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.Admin.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.Admin.IdleTimeoutSec)*time.Second,
	)

	// 启动前打印可点击地址
	host4human := cfg.App.Admin.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	// 异步启动；失败立即标红退出
	go func() {
		if err := server.StartHTTP(srv, log); err != nil {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()

	// 关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	server.Shutdown(srv, log, 10*time.Second)
	log.Info("admin api stopped gracefully")
}
