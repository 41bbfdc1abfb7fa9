package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	HTTPAddr           string
	GinMode            string
	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string

	DB struct {
		Driver          string
		URL             string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}

	AutoCheck struct {
		Enabled  bool
		Interval time.Duration
	}

	// Throttling of /verify-payment is off when Redis.Addr is empty.
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	VerifyRateLimit  int
	VerifyRateWindow time.Duration

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("AUTO_CHECK_ENABLED", true)
	v.SetDefault("AUTO_CHECK_INTERVAL", "1m")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("VERIFY_RATE_LIMIT", 30)
	v.SetDefault("VERIFY_RATE_WINDOW", "1m")
}

// Load reads .env (if present) into the process environment, then builds
// the configuration from the environment.
func Load() (*Config, error) {
	envLoaded := godotenv.Load() == nil

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := FromViper(v)
	cfg.EnvFileLoaded = envLoaded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromViper(v *viper.Viper) *Config {
	var cfg Config
	cfg.HTTPAddr = v.GetString("HTTP_ADDR")
	cfg.GinMode = v.GetString("GIN_MODE")
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.LogLevel = strings.ToLower(v.GetString("LOG_LEVEL"))
	cfg.LogFormat = strings.ToLower(v.GetString("LOG_FORMAT"))

	cfg.DB.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	cfg.DB.URL = v.GetString("DATABASE_URL")
	cfg.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	cfg.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	cfg.DB.ConnMaxLifetime = v.GetDuration("DB_CONN_MAX_LIFETIME")

	cfg.AutoCheck.Enabled = v.GetBool("AUTO_CHECK_ENABLED")
	cfg.AutoCheck.Interval = v.GetDuration("AUTO_CHECK_INTERVAL")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.VerifyRateLimit = v.GetInt("VERIFY_RATE_LIMIT")
	cfg.VerifyRateWindow = v.GetDuration("VERIFY_RATE_WINDOW")
	return &cfg
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.DB.URL == "" {
		return errors.Wrap(ErrInvalidConfig, "DATABASE_URL is required")
	}
	if c.AutoCheck.Enabled && c.AutoCheck.Interval <= 0 {
		return errors.Wrap(ErrInvalidConfig, "AUTO_CHECK_INTERVAL must be positive")
	}
	if c.Redis.Addr != "" && (c.VerifyRateLimit <= 0 || c.VerifyRateWindow <= 0) {
		return errors.Wrap(ErrInvalidConfig, "VERIFY_RATE_LIMIT and VERIFY_RATE_WINDOW must be positive when REDIS_ADDR is set")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unsupported LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
