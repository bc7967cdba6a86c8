package database

import (
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	zlog "complaint-desk/internal/core/logger"
)

var ErrUnsupportedDriver = errors.New("database: unsupported driver")

type Opts struct {
	Driver             string // postgres | mysql | sqlite
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	Logger             *zap.Logger // 为空则走 gorm 默认输出
}

func NewGorm(o Opts) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch o.Driver {
	case "postgres":
		dial = postgres.Open(o.DSN)
	case "mysql":
		dsn, err := mysqlDSN(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, err
		}
		dial = mysql.Open(dsn)
	case "sqlite":
		dial = sqlite.Open(o.DSN)
	default:
		return nil, ErrUnsupportedDriver
	}

	lvl := logger.Warn
	switch o.LogLevel {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	gl := logger.Default.LogMode(lvl)
	if o.Logger != nil {
		gl = logger.New(
			log.New(zlog.ToWriter(o.Logger, zapcore.WarnLevel), "", 0),
			logger.Config{
				SlowThreshold:             500 * time.Millisecond,
				LogLevel:                  lvl,
				IgnoreRecordNotFoundError: true,
			},
		)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         gl,
		TranslateError: true, // 唯一冲突统一成 gorm.ErrDuplicatedKey
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	idle := o.MaxIdleConns
	if o.Driver == "sqlite" && idle < 1 {
		// 共享内存库在最后一个连接关闭时被回收
		idle = 1
	}
	if idle > 0 {
		sqlDB.SetMaxIdleConns(idle)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)

	return db.Session(&gorm.Session{
		PrepareStmt:            true,
		CreateBatchSize:        200,
		SkipDefaultTransaction: true, // 事务由 service 显式开启
	}), nil
}

// mysqlDSN 兼容 mysql:// 与 jdbc:mysql:// 写法，统一补 parseTime / utf8mb4
func mysqlDSN(input, userOverride, passOverride string) (string, error) {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")

	var cfg *mysqldrv.Config
	if strings.HasPrefix(in, "mysql://") {
		u, err := url.Parse(in)
		if err != nil {
			return "", err
		}
		cfg = mysqldrv.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		q := u.Query()
		if tz := q.Get("serverTimezone"); tz != "" {
			if loc, err := time.LoadLocation(tz); err == nil {
				cfg.Loc = loc
			}
		}
		switch strings.ToLower(q.Get("useSSL")) {
		case "true", "1":
			cfg.TLSConfig = "true"
		case "skip-verify":
			cfg.TLSConfig = "skip-verify"
		}
	} else {
		parsed, err := mysqldrv.ParseDSN(in)
		if err != nil {
			return "", err
		}
		cfg = parsed
	}

	if userOverride != "" {
		cfg.User = userOverride
	}
	if passOverride != "" {
		cfg.Passwd = passOverride
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if cfg.Params["charset"] == "" {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}
