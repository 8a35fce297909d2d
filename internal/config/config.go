package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LMS       LMSConfig       `mapstructure:"lms"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Export    ExportConfig    `mapstructure:"export"`
}

type LMSConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	RateBurst     int           `mapstructure:"rate_burst"`
}

type DashboardConfig struct {
	// UserID 0 means the token's own user.
	UserID            int           `mapstructure:"user_id"`
	CourseConcurrency int           `mapstructure:"course_concurrency"`
	FailurePolicy     string        `mapstructure:"failure_policy"`
	CategoryRetries   int           `mapstructure:"category_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	CacheMaxAge       time.Duration `mapstructure:"cache_max_age"`
	RefreshOnStart    bool          `mapstructure:"refresh_on_start"`
	// SeedFile is a JSON snapshot used when a category has neither live nor
	// cached data.
	SeedFile string `mapstructure:"seed_file"`
}

type CacheConfig struct {
	Driver     string        `mapstructure:"driver"`
	TTL        time.Duration `mapstructure:"ttl"`
	SQLitePath string        `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	File    string `mapstructure:"file"`
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServiceName       string `mapstructure:"service_name"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type ExportConfig struct {
	SFTP SFTPConfig `mapstructure:"sftp"`
}

type SFTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Pass       string `mapstructure:"pass"`
	Dir        string `mapstructure:"dir"`
	Insecure   bool   `mapstructure:"insecure"`
	KnownHosts string `mapstructure:"known_hosts"`
}

// envAliases are the plain variable names accepted next to the
// DASHBOARD_-prefixed ones.
var envAliases = map[string][]string{
	"lms.base_url":               {"MOODLE_URL"},
	"lms.token":                  {"MOODLE_TOKEN"},
	"dashboard.user_id":          {"MOODLE_USER_ID"},
	"redis.host":                 {"REDIS_HOST"},
	"redis.port":                 {"REDIS_PORT"},
	"redis.password":             {"REDIS_PASSWORD"},
	"server.mode":                {"SERVER_MODE"},
	"log.level":                  {"LOG_LEVEL"},
	"tracing.enabled":            {"TRACING_ENABLED"},
	"tracing.collector_endpoint": {"TRACING_COLLECTOR_ENDPOINT"},
	"export.sftp.host":           {"SFTP_HOST"},
	"export.sftp.port":           {"SFTP_PORT"},
	"export.sftp.user":           {"SFTP_USER"},
	"export.sftp.pass":           {"SFTP_PASS"},
	"export.sftp.dir":            {"SFTP_DIR"},
	"export.sftp.insecure":       {"SFTP_INSECURE_IGNORE_HOSTKEY"},
	"export.sftp.known_hosts":    {"SFTP_KNOWN_HOSTS"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("lms.base_url", "")
	v.SetDefault("lms.token", "")
	v.SetDefault("lms.call_timeout", 20*time.Second)
	v.SetDefault("lms.rate_per_second", 10.0)
	v.SetDefault("lms.rate_burst", 5)

	v.SetDefault("dashboard.user_id", 0)
	v.SetDefault("dashboard.course_concurrency", 1)
	v.SetDefault("dashboard.failure_policy", "category")
	v.SetDefault("dashboard.category_retries", 2)
	v.SetDefault("dashboard.retry_delay", 500*time.Millisecond)
	v.SetDefault("dashboard.cache_max_age", 24*time.Hour)
	v.SetDefault("dashboard.refresh_on_start", true)
	v.SetDefault("dashboard.seed_file", "")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.sqlite_path", "dashboard-cache.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "course-dashboard")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("log.file", "logs/dashboard.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "course-dashboard")
	v.SetDefault("tracing.collector_endpoint", "")

	v.SetDefault("export.sftp.host", "")
	v.SetDefault("export.sftp.port", 22)
	v.SetDefault("export.sftp.user", "")
	v.SetDefault("export.sftp.pass", "")
	v.SetDefault("export.sftp.dir", "/inbound")
	v.SetDefault("export.sftp.insecure", true)
	v.SetDefault("export.sftp.known_hosts", "")
}

// Load reads config.yaml from the first of paths that has one (default
// ./configs and .), then applies the environment. A missing file is fine.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.LMS.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.LMS.BaseURL), "/")
	return &cfg, nil
}

// Validate checks what a dashboard pass cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.LMS.BaseURL == "" {
		errs = append(errs, errors.New("lms.base_url is required (MOODLE_URL)"))
	}
	if c.LMS.Token == "" {
		errs = append(errs, errors.New("lms.token is required (MOODLE_TOKEN)"))
	}
	switch c.Dashboard.FailurePolicy {
	case "category", "batch":
	default:
		errs = append(errs, fmt.Errorf("dashboard.failure_policy %q: want category or batch", c.Dashboard.FailurePolicy))
	}
	switch c.Cache.Driver {
	case "memory", "redis", "sqlite", "none":
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q: want memory, redis, sqlite or none", c.Cache.Driver))
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q: want debug, release or test", c.Server.Mode))
	}
	if c.Dashboard.CourseConcurrency < 1 {
		errs = append(errs, fmt.Errorf("dashboard.course_concurrency must be at least 1, got %d", c.Dashboard.CourseConcurrency))
	}
	return errors.Join(errs...)
}
