package config

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	Env            string
	Port           int
	BackendTimeout time.Duration

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Session       SessionConfig
	CORS          CORSConfig
	Log           LogConfig
	Cache         CacheConfig
	Dashboard     DashboardConfig
	Notifications NotificationsConfig
	Realtime      RealtimeConfig
	RateLimit     RateLimitConfig
	Access        AccessConfig
	Attachments   AttachmentsConfig
	Tracing       TracingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// SessionConfig describes the credential cookie handed out at login.
type SessionConfig struct {
	CookieName string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// CacheConfig selects the cache backend and its sweep schedule.
type CacheConfig struct {
	Backend       string
	DefaultTTL    time.Duration
	SweepSchedule string
}

// DashboardConfig governs dashboard caching and the timezone used for day buckets.
type DashboardConfig struct {
	CacheTTL time.Duration
	Timezone string
}

// NotificationsConfig tunes listing defaults and the admin fan-out workers.
type NotificationsConfig struct {
	ListLimit     int
	FanoutWorkers int
	FanoutRetries int
	FanoutBuffer  int
}

// RealtimeConfig selects the change-feed transport.
type RealtimeConfig struct {
	Backend    string
	Channel    string
	BufferSize int
}

// RateLimitConfig applies to unauthenticated ingestion and lookup endpoints.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// AccessConfig lists paths outside the protected sections that stay public.
type AccessConfig struct {
	PublicPaths []string
}

// AttachmentsConfig bounds attachment metadata accepted from students.
type AttachmentsConfig struct {
	MaxFileSizeBytes int64
	AllowedTypes     []string
}

type TracingConfig struct {
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{
		Env:            v.GetString("ENV"),
		Port:           v.GetInt("PORT"),
		BackendTimeout: parseDuration(v.GetString("BACKEND_TIMEOUT"), 5*time.Second),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Session = SessionConfig{
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		Domain:     v.GetString("SESSION_COOKIE_DOMAIN"),
		Secure:     v.GetBool("SESSION_COOKIE_SECURE"),
		SameSite:   parseSameSite(v.GetString("SESSION_COOKIE_SAMESITE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
	}

	cfg.Cache = CacheConfig{
		Backend:       strings.ToLower(v.GetString("CACHE_BACKEND")),
		DefaultTTL:    parseDuration(v.GetString("CACHE_DEFAULT_TTL"), 5*time.Minute),
		SweepSchedule: v.GetString("CACHE_SWEEP_SCHEDULE"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
		Timezone: v.GetString("DASHBOARD_TIMEZONE"),
	}

	cfg.Notifications = NotificationsConfig{
		ListLimit:     v.GetInt("NOTIFICATIONS_LIST_LIMIT"),
		FanoutWorkers: v.GetInt("NOTIFICATIONS_FANOUT_WORKERS"),
		FanoutRetries: v.GetInt("NOTIFICATIONS_FANOUT_RETRIES"),
		FanoutBuffer:  v.GetInt("NOTIFICATIONS_FANOUT_BUFFER"),
	}

	cfg.Realtime = RealtimeConfig{
		Backend:    strings.ToLower(v.GetString("REALTIME_BACKEND")),
		Channel:    v.GetString("REALTIME_CHANNEL"),
		BufferSize: v.GetInt("REALTIME_BUFFER_SIZE"),
	}

	cfg.RateLimit = RateLimitConfig{
		MaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		Window:      parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
	}

	cfg.Access = AccessConfig{PublicPaths: splitAndTrim(v.GetString("ACCESS_PUBLIC_PATHS"))}

	cfg.Attachments = AttachmentsConfig{
		MaxFileSizeBytes: v.GetInt64("ATTACHMENTS_MAX_FILE_SIZE"),
		AllowedTypes:     splitAndTrim(v.GetString("ATTACHMENTS_ALLOWED_TYPES")),
	}

	cfg.Tracing = TracingConfig{
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:     v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		SampleRatio:  v.GetFloat64("OTEL_SAMPLE_RATIO"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("BACKEND_TIMEOUT", "5s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "complaint_desk")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "complaint-desk-api")

	v.SetDefault("SESSION_COOKIE_NAME", "cd_session")
	v.SetDefault("SESSION_COOKIE_DOMAIN", "")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_COOKIE_SAMESITE", "lax")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	v.SetDefault("CACHE_BACKEND", CacheBackendRedis)
	v.SetDefault("CACHE_DEFAULT_TTL", "5m")
	v.SetDefault("CACHE_SWEEP_SCHEDULE", "@every 10m")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("DASHBOARD_TIMEZONE", "Local")

	v.SetDefault("NOTIFICATIONS_LIST_LIMIT", 20)
	v.SetDefault("NOTIFICATIONS_FANOUT_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_FANOUT_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_FANOUT_BUFFER", 64)

	v.SetDefault("REALTIME_BACKEND", "memory")
	v.SetDefault("REALTIME_CHANNEL", "complaint-desk:changes")
	v.SetDefault("REALTIME_BUFFER_SIZE", 32)

	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 60)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("ACCESS_PUBLIC_PATHS", "/favicon.ico,/robots.txt")

	v.SetDefault("ATTACHMENTS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("ATTACHMENTS_ALLOWED_TYPES", "pdf,doc,docx,jpg,jpeg,png")

	v.SetDefault("OTEL_SERVICE_NAME", "complaint-desk-api")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseSameSite(raw string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
