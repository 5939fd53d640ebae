package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tangerine/internal/logger"
)

// EnvPrefix 是所有环境变量的前缀，例如 TANGERINE_SERVER_PORT。
const EnvPrefix = "TANGERINE"

// AppConfig 汇总运行服务所需的配置。
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Tenant    TenantConfig    `mapstructure:"tenant"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Spam      SpamConfig      `mapstructure:"spam"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

type ServerConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   string `mapstructure:"port"`
	Mode                   string `mapstructure:"mode"` // debug / release / test
	SessionSecret          string `mapstructure:"session_secret"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// Addr 返回 http.Server 监听地址。
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ShutdownTimeout 返回优雅退出的等待时间。
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return seconds(c.ShutdownTimeoutSeconds, 10)
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabaseConfig 数据库配置（sqlite/postgres）
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// TenantConfig 决定请求如何映射到租户。
// BaseDomain 非空时取 Host 的子域名；否则读取 Header，最后回退到 Default。
type TenantConfig struct {
	Default    string `mapstructure:"default"`
	BaseDomain string `mapstructure:"base_domain"`
	Header     string `mapstructure:"header"`
}

// RedisConfig Redis 配置，用于评论限流
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Addr 返回 host:port
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// QueueConfig 异步队列配置，关闭时通知邮件同步发送
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// Addr 返回 host:port
func (c QueueConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SMTPConfig 审核通知邮件的发送配置
type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// SpamConfig Akismet 客户端配置；API key 存在各租户的 Blog 配置中。
type SpamConfig struct {
	AkismetBaseURL string `mapstructure:"akismet_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout 返回单次垃圾检测的超时。
func (c SpamConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds, 5)
}

// NotifyConfig 审核通知。Mode 为 sync 时直接发信，为 queue 时投递到 asynq。
type NotifyConfig struct {
	Mode           string `mapstructure:"mode"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Queued 判断通知是否走队列
func (c NotifyConfig) Queued() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), "queue")
}

// Timeout 返回单次通知发送的超时。
func (c NotifyConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds, 10)
}

// RateLimitConfig 评论提交限流
type RateLimitConfig struct {
	CommentsPerWindow int `mapstructure:"comments_per_window"`
	WindowSeconds     int `mapstructure:"window_seconds"`
}

// Window 返回限流窗口
func (c RateLimitConfig) Window() time.Duration {
	return seconds(c.WindowSeconds, 60)
}

// AdminConfig 启动时确保存在的超级用户
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Email    string `mapstructure:"email"`
}

// Load 按 默认值 < 配置文件 < .env < 环境变量 的优先级读取配置。
// path 为空时在 . 与 ./config 下查找 tangerine.yaml，找不到文件不视为错误。
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	if p := strings.TrimSpace(path); p != "" {
		v.SetConfigFile(p)
	} else {
		v.SetConfigName("tangerine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if strings.TrimSpace(path) != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Tenant.Default = strings.ToLower(strings.TrimSpace(cfg.Tenant.Default))
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.session_secret", "tangerine-dev-secret")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "tangerine.log")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tangerine.db")

	v.SetDefault("tenant.default", "default")
	v.SetDefault("tenant.base_domain", "")
	v.SetDefault("tenant.header", "X-Tangerine-Tenant")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "tangerine")

	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.queues", map[string]int{"default": 5})

	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.use_tls", true)

	v.SetDefault("spam.akismet_base_url", "https://rest.akismet.com")
	v.SetDefault("spam.timeout_seconds", 5)

	v.SetDefault("notify.mode", "sync")
	v.SetDefault("notify.timeout_seconds", 10)

	v.SetDefault("rate_limit.comments_per_window", 5)
	v.SetDefault("rate_limit.window_seconds", 60)

	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.email", "")
}

func seconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
