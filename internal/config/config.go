package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type DBConfig struct {
	Driver   string // mysql | sqlite
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ListenConfig struct {
	Host string
	Port string
}

func (l ListenConfig) Addr() string { return l.Host + ":" + l.Port }

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// QuotaConfig holds the free-tier allowances applied when a user has no
// active subscription, and the timezone that defines "this month".
type QuotaConfig struct {
	Timezone          string
	FreeRequestsMonth int
	FreeOffersMonth   int
}

type AnalyticsConfig struct {
	RatePerSec   float64
	Burst        int
	SummaryTTL   time.Duration
	ViewDedupTTL time.Duration
}

type StorageConfig struct {
	Bucket        string
	Region        string
	PublicBaseURL string
	PresignTTL    time.Duration
}

type JobsConfig struct {
	SubscriptionSweep string
	LimiterSweep      string
}

type Config struct {
	App struct {
		ENV string
	}

	Log       LogConfig
	DB        DBConfig
	Redis     RedisConfig
	HTTP      ListenConfig
	GRPC      ListenConfig
	Auth      AuthConfig
	Quota     QuotaConfig
	Analytics AnalyticsConfig
	Storage   StorageConfig
	Jobs      JobsConfig
}

// New reads configuration from the environment, loading a .env file first
// when one is present.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "cardlink")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = getEnvDefault("DB_DRIVER", "mysql")
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.Driver == "sqlite" {
		cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "cardlink.db")
	} else if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "cardlink")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// Listeners
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Auth
	cfg.Auth.JWTSecret = getEnvDefault("JWT_SECRET", "dev-secret-change-me")
	cfg.Auth.TokenTTL = getEnvDuration("JWT_TTL", 72*time.Hour)

	// Quotas
	cfg.Quota.Timezone = getEnvDefault("QUOTA_TIMEZONE", "UTC")
	cfg.Quota.FreeRequestsMonth = getEnvInt("FREE_REQUEST_QUOTA", 0)
	cfg.Quota.FreeOffersMonth = getEnvInt("FREE_OFFER_QUOTA", 0)

	// Analytics
	cfg.Analytics.RatePerSec = getEnvFloat("ANALYTICS_RATE_PER_SEC", 5)
	cfg.Analytics.Burst = getEnvInt("ANALYTICS_BURST", 20)
	cfg.Analytics.SummaryTTL = getEnvDuration("ANALYTICS_SUMMARY_TTL", time.Minute)
	cfg.Analytics.ViewDedupTTL = getEnvDuration("ANALYTICS_VIEW_DEDUP_TTL", 30*time.Minute)

	// Object storage
	cfg.Storage.Bucket = getEnvDefault("S3_BUCKET", "cardlink-proofs")
	cfg.Storage.Region = getEnvDefault("S3_REGION", "ap-southeast-1")
	cfg.Storage.PublicBaseURL = getEnvDefault("S3_PUBLIC_BASE_URL", "")
	cfg.Storage.PresignTTL = getEnvDuration("S3_PRESIGN_TTL", 15*time.Minute)

	// Jobs
	cfg.Jobs.SubscriptionSweep = getEnvDefault("SUBSCRIPTION_SWEEP_CRON", "@every 10m")
	cfg.Jobs.LimiterSweep = getEnvDefault("LIMITER_SWEEP_CRON", "@every 5m")

	return cfg
}

// Location resolves the quota timezone, falling back to UTC on bad input.
func (q QuotaConfig) Location() *time.Location {
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(getEnvDefault(k, ""), 64); err == nil {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
