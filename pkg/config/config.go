package config

import (
	"errors"
	"io/fs"
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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Tracker   TrackerConfig
	Templates TemplatesConfig
	Metrics   MetricsConfig
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TrackerConfig tunes the document-collection tracker sessions.
type TrackerConfig struct {
	DebounceWindow     time.Duration
	DeletionCooldown   time.Duration
	DeletionQueueDelay time.Duration
	DeepLinkAttempts   int
	DeepLinkBackoff    time.Duration
	RefreshInterval    time.Duration
	SnapshotTTL        time.Duration
}

// TemplatesConfig governs caching of the template catalogue.
type TemplatesConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
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

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	attempts := v.GetInt("TRACKER_DEEPLINK_ATTEMPTS")
	if attempts <= 0 {
		attempts = 10
	}
	cfg.Tracker = TrackerConfig{
		DebounceWindow:     parseDuration(v.GetString("TRACKER_DEBOUNCE_WINDOW"), time.Second),
		DeletionCooldown:   parseDuration(v.GetString("TRACKER_DELETION_COOLDOWN"), 5*time.Second),
		DeletionQueueDelay: parseDuration(v.GetString("TRACKER_DELETION_QUEUE_DELAY"), 100*time.Millisecond),
		DeepLinkAttempts:   attempts,
		DeepLinkBackoff:    parseDuration(v.GetString("TRACKER_DEEPLINK_BACKOFF"), 300*time.Millisecond),
		RefreshInterval:    parseDuration(v.GetString("TRACKER_REFRESH_INTERVAL"), 0),
		SnapshotTTL:        parseDuration(v.GetString("TRACKER_SNAPSHOT_TTL"), 0),
	}

	cfg.Templates = TemplatesConfig{
		CacheEnabled: v.GetBool("TEMPLATES_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("TEMPLATES_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

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
	v.SetDefault("DB_NAME", "crm")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TRACKER_DEBOUNCE_WINDOW", "1s")
	v.SetDefault("TRACKER_DELETION_COOLDOWN", "5s")
	v.SetDefault("TRACKER_DELETION_QUEUE_DELAY", "100ms")
	v.SetDefault("TRACKER_DEEPLINK_ATTEMPTS", 10)
	v.SetDefault("TRACKER_DEEPLINK_BACKOFF", "300ms")
	v.SetDefault("TRACKER_REFRESH_INTERVAL", "")
	v.SetDefault("TRACKER_SNAPSHOT_TTL", "")

	v.SetDefault("TEMPLATES_CACHE_ENABLED", true)
	v.SetDefault("TEMPLATES_CACHE_TTL", "10m")
	v.SetDefault("ENABLE_METRICS", true)
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
