package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin HTTP
}

type Rotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate Rotate
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Kafka struct {
	Brokers string // "host1:9092,host2:9092"
	Topic   string
}

type Complaint struct {
	CodePrefix          string
	AllowSkipInProgress bool
	DefaultLogPageSize  int
	Timezone            string
}

type Retention struct {
	Enabled  bool
	Days     int
	Schedule string
	DryRun   bool
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	DB        DB
	Redis     Redis `mapstructure:"redis"`
	Kafka     Kafka
	Complaint Complaint
	Retention Retention
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "complaint-desk")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 30)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.admin.readTimeoutSec", 15)
	v.SetDefault("app.admin.writeTimeoutSec", 30)
	v.SetDefault("app.admin.idleTimeoutSec", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.enable", false)
	v.SetDefault("log.rotate.filename", "logs/app.log")
	v.SetDefault("log.rotate.maxSizeMB", 100)
	v.SetDefault("log.rotate.maxBackups", 7)
	v.SetDefault("log.rotate.maxAgeDays", 30)
	v.SetDefault("log.rotate.compress", true)

	v.SetDefault("jwt.issuer", "complaint-desk")
	v.SetDefault("jwt.accessTokenTTLMin", 120)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "complaint-events")

	v.SetDefault("complaint.codePrefix", "CD")
	v.SetDefault("complaint.allowSkipInProgress", true)
	v.SetDefault("complaint.defaultLogPageSize", 3)
	v.SetDefault("complaint.timezone", "UTC")

	v.SetDefault("retention.enabled", false)
	v.SetDefault("retention.days", 30)
	v.SetDefault("retention.schedule", "15 2 * * *")
	v.SetDefault("retention.dryRun", false)
}

// Load 读取 yaml + APP_ 前缀环境变量（APP_DB_DSN 覆盖 db.dsn）
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("config: db.dsn is required")
	}
	if c.Complaint.DefaultLogPageSize <= 0 {
		c.Complaint.DefaultLogPageSize = 3
	}
	return nil
}
