package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ApplicabilityFlags = "flags"
	ApplicabilityName  = "name"
)

type Config struct {
	Addr                  string
	DatabaseURL           string
	JWTSecret             string
	TokenTTL              time.Duration
	Environment           string
	LogLevel              string
	LogFormat             string
	SeedTenantName        string
	SeedAdminEmail        string
	SeedAdminPassword     string
	RunMigrations         bool
	RunSeed               bool
	MigrationsDir         string
	MaxBodyBytes          int64
	RateLimitPerMinute    int
	MetricsEnabled        bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	DashboardCacheTTL     time.Duration
	DashboardWarmInterval time.Duration
	KafkaBrokers          []string
	KafkaTopic            string
	ApplicabilityMode     string
	DashboardRowLimit     int
	DashboardRatingLevels []string
}

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", 12*time.Hour)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SEED_TENANT_NAME", "Default Tenant")
	v.SetDefault("SEED_ADMIN_EMAIL", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("RUN_SEED", true)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("MAX_BODY_BYTES", 1048576)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DASHBOARD_CACHE_TTL", time.Minute)
	v.SetDefault("DASHBOARD_WARM_INTERVAL", 0)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "performance-events")
	v.SetDefault("APPLICABILITY_MODE", ApplicabilityFlags)
	v.SetDefault("DASHBOARD_ROW_LIMIT", 10)
	v.SetDefault("DASHBOARD_RATING_LEVELS", "TST Individual,PM Individual")

	return Config{
		Addr:                  v.GetString("APP_ADDR"),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		TokenTTL:              v.GetDuration("TOKEN_TTL"),
		Environment:           v.GetString("APP_ENV"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFormat:             v.GetString("LOG_FORMAT"),
		SeedTenantName:        v.GetString("SEED_TENANT_NAME"),
		SeedAdminEmail:        v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:     v.GetString("SEED_ADMIN_PASSWORD"),
		RunMigrations:         v.GetBool("RUN_MIGRATIONS"),
		RunSeed:               v.GetBool("RUN_SEED"),
		MigrationsDir:         v.GetString("MIGRATIONS_DIR"),
		MaxBodyBytes:          v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute:    v.GetInt("RATE_LIMIT_PER_MINUTE"),
		MetricsEnabled:        v.GetBool("METRICS_ENABLED"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		DashboardCacheTTL:     v.GetDuration("DASHBOARD_CACHE_TTL"),
		DashboardWarmInterval: v.GetDuration("DASHBOARD_WARM_INTERVAL"),
		KafkaBrokers:          splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:            v.GetString("KAFKA_TOPIC"),
		ApplicabilityMode:     strings.ToLower(strings.TrimSpace(v.GetString("APPLICABILITY_MODE"))),
		DashboardRowLimit:     v.GetInt("DASHBOARD_ROW_LIMIT"),
		DashboardRatingLevels: splitList(v.GetString("DASHBOARD_RATING_LEVELS")),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.ApplicabilityMode != ApplicabilityFlags && c.ApplicabilityMode != ApplicabilityName {
		return fmt.Errorf("APPLICABILITY_MODE must be %q or %q", ApplicabilityFlags, ApplicabilityName)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.DashboardRowLimit <= 0 {
		return fmt.Errorf("DASHBOARD_ROW_LIMIT must be positive")
	}
	if c.DashboardWarmInterval < 0 {
		return fmt.Errorf("DASHBOARD_WARM_INTERVAL must not be negative")
	}
	return nil
}
