package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileEnv names the environment variable holding an optional YAML config file.
const ConfigFileEnv = "FLIGHTDECK_CONFIG"

// Config is the resolved service configuration.
type Config struct {
	Port          string
	DatabaseURL   string
	RedisURL      string
	BearerToken   string
	MigrationsDir string

	NOAABaseURL    string
	CheckWXAPIKey  string
	CheckWXBaseURL string
	HazardRangeNm  float64
	CacheTTL       time.Duration

	RefreshEnabled  bool
	RefreshSchedule string

	KafkaBrokers []string // empty disables publishing
	KafkaTopic   string

	RateLimitPerMinute int
	AllowedOrigins     []string
	ShutdownTimeout    time.Duration
	LogLevel           slog.Level
}

var defaults = map[string]any{
	"port":                  "8080",
	"database_url":          "",
	"redis_url":             "",
	"bearer_token":          "",
	"migrations_dir":        "migrations",
	"noaa_base_url":         "",
	"checkwx_api_key":       "",
	"checkwx_base_url":      "",
	"hazard_range_nm":       500.0,
	"cache_ttl":             "10m",
	"refresh_enabled":       true,
	"refresh_schedule":      "@every 15m",
	"kafka_brokers":         "",
	"kafka_topic":           "weather-observations",
	"rate_limit_per_minute": 60,
	"cors_allowed_origins":  "*",
	"shutdown_timeout":      "30s",
	"log_level":             "info",
}

// Load reads configuration from the environment, layered over the YAML file
// named by FLIGHTDECK_CONFIG when it is set. Environment variables use the
// upper-case form of the keys (DATABASE_URL, CACHE_TTL, ...).
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if path := v.GetString(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:               v.GetString("port"),
		DatabaseURL:        v.GetString("database_url"),
		RedisURL:           v.GetString("redis_url"),
		BearerToken:        v.GetString("bearer_token"),
		MigrationsDir:      v.GetString("migrations_dir"),
		NOAABaseURL:        v.GetString("noaa_base_url"),
		CheckWXAPIKey:      v.GetString("checkwx_api_key"),
		CheckWXBaseURL:     v.GetString("checkwx_base_url"),
		HazardRangeNm:      v.GetFloat64("hazard_range_nm"),
		CacheTTL:           v.GetDuration("cache_ttl"),
		RefreshEnabled:     v.GetBool("refresh_enabled"),
		RefreshSchedule:    strings.TrimSpace(v.GetString("refresh_schedule")),
		KafkaBrokers:       stringList(v.Get("kafka_brokers")),
		KafkaTopic:         v.GetString("kafka_topic"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		AllowedOrigins:     stringList(v.Get("cors_allowed_origins")),
		ShutdownTimeout:    v.GetDuration("shutdown_timeout"),
	}

	var errs []error
	for _, req := range []struct{ env, val string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"BEARER_TOKEN", cfg.BearerToken},
	} {
		if req.val == "" {
			errs = append(errs, fmt.Errorf("%s is required", req.env))
		}
	}
	// Viper's getters return zero for unparsable values.
	if cfg.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be a positive duration, got %q", v.GetString("cache_ttl")))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be a positive duration, got %q", v.GetString("shutdown_timeout")))
	}
	if cfg.HazardRangeNm <= 0 {
		errs = append(errs, fmt.Errorf("HAZARD_RANGE_NM must be positive, got %q", v.GetString("hazard_range_nm")))
	}
	if cfg.RateLimitPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %q", v.GetString("rate_limit_per_minute")))
	}
	if cfg.RefreshEnabled && cfg.RefreshSchedule == "" {
		errs = append(errs, errors.New("REFRESH_SCHEDULE is required when REFRESH_ENABLED is true"))
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// stringList accepts a comma-separated string (environment) or a YAML list.
func stringList(raw any) []string {
	var parts []string
	switch x := raw.(type) {
	case string:
		parts = strings.Split(x, ",")
	case []string:
		parts = x
	case []any:
		for _, p := range x {
			parts = append(parts, fmt.Sprint(p))
		}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
