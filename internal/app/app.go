// Package app wires config into the database, cache, event publisher and services.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"complaint-desk/internal/core/auth"
	"complaint-desk/internal/core/cache"
	"complaint-desk/internal/core/config"
	"complaint-desk/internal/core/database"
	"complaint-desk/internal/core/logger"
	"complaint-desk/internal/events"
	"complaint-desk/internal/reaper"
	"complaint-desk/internal/repo"
	"complaint-desk/internal/service"
	"complaint-desk/internal/transport/http/router"
)

type App struct {
	Cfg    *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Store  *repo.Store
	Cache  *cache.Cache
	Events events.Publisher
	JWT    *auth.JWTer

	Users      *service.UserService
	Types      *service.TypeRegistry
	Complaints *service.ComplaintService
	Logs       *service.RecordLogService
	Query      *service.QueryService
}

// Logger 按配置构建 zap（含文件切割）
func Logger(cfg *config.Config) (*zap.Logger, func()) {
	r := cfg.Log.Rotate
	return logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Enable:     r.Enable,
			Filename:   r.Filename,
			MaxSizeMB:  r.MaxSizeMB,
			MaxBackups: r.MaxBackups,
			MaxAgeDays: r.MaxAgeDays,
			Compress:   r.Compress,
		},
	})
}

// OpenDB 只连库，不建服务（deskctl migrate 用）
func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	return db, nil
}

func New(cfg *config.Config, l *zap.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Complaint.Timezone)
	if err != nil {
		return nil, fmt.Errorf("complaint.timezone: %w", err)
	}
	db, err := OpenDB(cfg, l)
	if err != nil {
		return nil, err
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))
	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	a := &App{
		Cfg:   cfg,
		Log:   l,
		DB:    db,
		Store: repo.NewStore(db),
		Cache: cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
		JWT: &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		},
	}
	if a.Cache == nil {
		l.Info("redis not configured, complaint types read from db")
	}
	a.Events = events.NewKafkaPublisher(events.ParseBrokers(cfg.Kafka.Brokers), cfg.Kafka.Topic, l)

	a.Users = service.NewUserService(a.Store, l)
	a.Types = service.NewTypeRegistry(a.Store, a.Cache, l)
	a.Complaints = service.NewComplaintService(a.Store, a.Types, a.Events, l, service.ComplaintOptions{
		CodePrefix:          cfg.Complaint.CodePrefix,
		AllowSkipInProgress: cfg.Complaint.AllowSkipInProgress,
		Location:            loc,
	})
	a.Logs = service.NewRecordLogService(a.Store, a.Complaints, cfg.Complaint.DefaultLogPageSize)
	a.Query = service.NewQueryService(a.Store, a.Types, loc)
	return a, nil
}

func (a *App) Deps() router.Deps {
	mode := gin.DebugMode
	if a.Cfg.App.Env == "prod" || a.Cfg.App.Env == "production" {
		mode = gin.ReleaseMode
	}
	return router.Deps{
		Log:        a.Log,
		Mode:       mode,
		JWT:        a.JWT,
		Users:      a.Users,
		Types:      a.Types,
		Complaints: a.Complaints,
		Logs:       a.Logs,
		Query:      a.Query,
	}
}

func (a *App) Reaper() *reaper.Reaper {
	return reaper.New(a.Store, reaper.Config{
		Days:     a.Cfg.Retention.Days,
		Schedule: a.Cfg.Retention.Schedule,
		DryRun:   a.Cfg.Retention.DryRun,
	}, a.Log)
}

// Close 依次关闭 kafka / redis / db
func (a *App) Close() {
	if err := a.Events.Close(); err != nil {
		a.Log.Warn("close events", zap.Error(err))
	}
	if err := a.Cache.Close(); err != nil {
		a.Log.Warn("close redis", zap.Error(err))
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Warn("close db", zap.Error(err))
		}
	}
}

// Ping 启动自检
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
