package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Site       SiteConfig       `mapstructure:"site"`
	Revalidate RevalidateConfig `mapstructure:"revalidate"`
	Cleanup    CleanupConfig    `mapstructure:"cleanup"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type ServerConfig struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	Mode             string `mapstructure:"mode"`
	RequestTimeoutMs int    `mapstructure:"request_timeout_ms"`
}

type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"` // mysql, postgres, sqlite
	DSN            string `mapstructure:"dsn"`    // 设置后忽略下面的拆分字段
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	QueryTimeoutMs int    `mapstructure:"query_timeout_ms"`
}

// QueryTimeout 单次存储操作的超时时间
func (c DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMs) * time.Millisecond
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// JWTConfig 身份提供方签发令牌的校验参数
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type SiteConfig struct {
	AdminEmail      string `mapstructure:"admin_email"`
	TopLevelOrder   string `mapstructure:"top_level_order"` // oldest, newest
	ThreadCacheSize int    `mapstructure:"thread_cache_size"`
	ThreadCacheTTL  int    `mapstructure:"thread_cache_ttl_seconds"`
}

// ThreadCacheDuration 评论列表本地缓存的有效期
func (c SiteConfig) ThreadCacheDuration() time.Duration {
	return time.Duration(c.ThreadCacheTTL) * time.Second
}

type RevalidateConfig struct {
	Queue      string `mapstructure:"queue"`
	Channel    string `mapstructure:"channel"`
	Endpoint   string `mapstructure:"endpoint"`
	Secret     string `mapstructure:"secret"`
	TimeoutMs  int    `mapstructure:"timeout_ms"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

// Timeout 单次失效/重新验证请求的超时时间
func (c RevalidateConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// CleanupConfig 服务内定时清理
type CleanupConfig struct {
	OrphanSweepMinutes int `mapstructure:"orphan_sweep_minutes"` // 0 表示关闭
}

// OrphanSweepInterval 孤立点赞清理间隔
func (c CleanupConfig) OrphanSweepInterval() time.Duration {
	return time.Duration(c.OrphanSweepMinutes) * time.Minute
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults 填充未配置的字段
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeoutMs <= 0 {
		c.Server.RequestTimeoutMs = 10000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.QueryTimeoutMs <= 0 {
		c.Database.QueryTimeoutMs = 3000
	}
	if c.Site.TopLevelOrder == "" {
		c.Site.TopLevelOrder = "oldest"
	}
	if c.Site.ThreadCacheSize <= 0 {
		c.Site.ThreadCacheSize = 500
	}
	if c.Site.ThreadCacheTTL <= 0 {
		c.Site.ThreadCacheTTL = 300
	}
	if c.Revalidate.Queue == "" {
		c.Revalidate.Queue = "revalidate_paths"
	}
	if c.Revalidate.Channel == "" {
		c.Revalidate.Channel = "comment_threads_invalidated"
	}
	if c.Revalidate.TimeoutMs <= 0 {
		c.Revalidate.TimeoutMs = 2000
	}
	if c.Revalidate.MaxWorkers <= 0 {
		c.Revalidate.MaxWorkers = 2
	}
	if c.JWT.ExpireHours <= 0 {
		c.JWT.ExpireHours = 24
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
