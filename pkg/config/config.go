package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Mail         MailConfig
	Calendar     CalendarConfig
	Video        VideoConfig
	Conferencing ConferencingConfig
	Dashboard    DashboardConfig
	Exports      ExportsConfig
	MailQueue    MailQueueConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MailConfig holds SendGrid delivery settings.
type MailConfig struct {
	SendGridKey string
	FromEmail   string
	FromName    string
	UILink      string
}

// MailQueueConfig tunes the asynchronous mail dispatch queue.
type MailQueueConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// CalendarConfig points at the external calendar provider.
type CalendarConfig struct {
	BaseURL string
	Token   string
}

// VideoConfig points at the video hosting provider.
type VideoConfig struct {
	BaseURL string
	Token   string
}

// ConferencingConfig points at the video-conferencing provider.
type ConferencingConfig struct {
	BaseURL   string
	AccountID string
	Token     string
}

// DashboardConfig governs dashboard cache behaviour.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// ExportsConfig controls generated file storage and signed downloads.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Mail = MailConfig{
		SendGridKey: v.GetString("SEND_GRID_API_KEY"),
		FromEmail:   v.GetString("SMTP_MAIL"),
		FromName:    v.GetString("MAIL_FROM_NAME"),
		UILink:      v.GetString("UI_LINK"),
	}

	cfg.MailQueue = MailQueueConfig{
		Workers:    v.GetInt("MAIL_QUEUE_WORKERS"),
		MaxRetries: v.GetInt("MAIL_QUEUE_RETRIES"),
		RetryDelay: parseDuration(v.GetString("MAIL_QUEUE_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Calendar = CalendarConfig{
		BaseURL: v.GetString("CALENDAR_BASE_URL"),
		Token:   v.GetString("CALENDAR_ACCESS_TOKEN"),
	}

	cfg.Video = VideoConfig{
		BaseURL: v.GetString("VIMEO_BASE_URL"),
		Token:   v.GetString("VIMEO_ACCESS_TOKEN"),
	}

	cfg.Conferencing = ConferencingConfig{
		BaseURL:   v.GetString("ZOOM_BASE_URL"),
		AccountID: v.GetString("ZOOM_ACCOUNT_ID"),
		Token:     v.GetString("ZOOM_ACCESS_TOKEN"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coaching_backoffice")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEND_GRID_API_KEY", "")
	v.SetDefault("SMTP_MAIL", "no-reply@accountacademy.test")
	v.SetDefault("MAIL_FROM_NAME", "Account Academy")
	v.SetDefault("UI_LINK", "http://localhost:3000")

	v.SetDefault("MAIL_QUEUE_WORKERS", 1)
	v.SetDefault("MAIL_QUEUE_RETRIES", 3)
	v.SetDefault("MAIL_QUEUE_RETRY_DELAY", "5s")

	v.SetDefault("CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3")
	v.SetDefault("CALENDAR_ACCESS_TOKEN", "")
	v.SetDefault("VIMEO_BASE_URL", "https://api.vimeo.com")
	v.SetDefault("VIMEO_ACCESS_TOKEN", "")
	v.SetDefault("ZOOM_BASE_URL", "https://api.zoom.us/v2")
	v.SetDefault("ZOOM_ACCOUNT_ID", "")
	v.SetDefault("ZOOM_ACCESS_TOKEN", "")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
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
