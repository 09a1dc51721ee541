package config

import (
	"errors"
	"fmt"
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

// Development-only secrets. Validate refuses them in production.
const (
	devJWTSecret     = "dev_secret"
	devReportsSecret = "dev_reports_secret"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Storage     StorageConfig
	Reports     ReportsConfig
	Evaluations EvaluationsConfig
	Realtime    RealtimeConfig
	Navigation  NavigationConfig
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

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	ClockSkew         time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig controls where uploaded materials and assignment files live.
type StorageConfig struct {
	UploadDir        string
	PublicBaseURL    string
	PublicPath       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// ReportsConfig covers chart caching and export jobs.
type ReportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	ChartCacheTTL     time.Duration
}

type EvaluationsConfig struct {
	SemesterScheme string
}

// RealtimeConfig governs the discussion push channel.
type RealtimeConfig struct {
	Enabled              bool
	Channel              string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
}

type NavigationConfig struct {
	BadgeCacheTTL time.Duration
}

// Load reads .env (when present) and the environment, applies defaults and
// validates the result.
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Env:         strings.ToLower(v.GetString("ENV")),
		Port:        v.GetInt("PORT"),
		APIPrefix:   "/" + strings.Trim(v.GetString("API_PREFIX"), "/"),
		Database:    loadDatabase(v),
		Redis:       loadRedis(v),
		JWT:         loadJWT(v),
		CORS:        CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))},
		Log:         LogConfig{Level: v.GetString("LOG_LEVEL"), Format: v.GetString("LOG_FORMAT")},
		Storage:     loadStorage(v),
		Reports:     loadReports(v),
		Evaluations: EvaluationsConfig{SemesterScheme: strings.ToLower(strings.TrimSpace(v.GetString("EVALUATION_SEMESTER_SCHEME")))},
		Realtime:    loadRealtime(v),
		Navigation:  NavigationConfig{BadgeCacheTTL: parseDuration(v.GetString("NAVIGATION_BADGE_CACHE_TTL"), 30*time.Second)},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}
}

func loadRedis(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}
}

func loadJWT(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 15*time.Minute),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		ClockSkew:         parseDuration(v.GetString("JWT_CLOCK_SKEW"), 30*time.Second),
	}
}

func loadStorage(v *viper.Viper) StorageConfig {
	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return StorageConfig{
		UploadDir:        v.GetString("UPLOAD_DIR"),
		PublicBaseURL:    strings.TrimRight(v.GetString("UPLOAD_PUBLIC_BASE_URL"), "/"),
		PublicPath:       v.GetString("UPLOAD_PUBLIC_PATH"),
		MaxFileSizeBytes: maxUpload,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOAD_ALLOWED_MIME_TYPES")),
	}
}

func loadReports(v *viper.Viper) ReportsConfig {
	return ReportsConfig{
		Enabled:           v.GetBool("ENABLE_REPORT_JOBS"),
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
		ChartCacheTTL:     parseDuration(v.GetString("REPORTS_CHART_CACHE_TTL"), 5*time.Minute),
	}
}

func loadRealtime(v *viper.Viper) RealtimeConfig {
	return RealtimeConfig{
		Enabled:              v.GetBool("ENABLE_REALTIME"),
		Channel:              v.GetString("REALTIME_CHANNEL"),
		MinReconnectInterval: parseDuration(v.GetString("REALTIME_MIN_RECONNECT"), 10*time.Second),
		MaxReconnectInterval: parseDuration(v.GetString("REALTIME_MAX_RECONNECT"), time.Minute),
	}
}

// Validate rejects settings the server cannot run with. Production also
// refuses the development secrets and a wildcard CORS origin.
func (c *Config) Validate() error {
	var problems []string
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	if c.Reports.WorkerConcurrency < 1 {
		problems = append(problems, "REPORTS_WORKER_CONCURRENCY must be at least 1")
	}
	if c.Reports.WorkerRetries < 0 {
		problems = append(problems, "REPORTS_WORKER_RETRIES must not be negative")
	}
	if c.Realtime.MinReconnectInterval > c.Realtime.MaxReconnectInterval {
		problems = append(problems, "REALTIME_MIN_RECONNECT exceeds REALTIME_MAX_RECONNECT")
	}
	if c.Env == EnvProduction {
		if c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret {
			problems = append(problems, "JWT_SECRET must be set in production")
		}
		if c.Reports.Enabled && (c.Reports.SignedURLSecret == "" || c.Reports.SignedURLSecret == devReportsSecret) {
			problems = append(problems, "REPORTS_SIGNED_URL_SECRET must be set in production")
		}
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				problems = append(problems, "ALLOWED_ORIGINS may not contain * in production")
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"ENV":        EnvDevelopment,
		"PORT":       8080,
		"API_PREFIX": "/api/v1",

		"DB_HOST":           "localhost",
		"DB_PORT":           5432,
		"DB_USER":           "postgres",
		"DB_PASSWORD":       "postgres",
		"DB_NAME":           "campus_lms",
		"DB_SSL_MODE":       "disable",
		"DB_MAX_OPEN_CONNS": 10,
		"DB_MAX_IDLE_CONNS": 5,

		"REDIS_HOST":       "localhost",
		"REDIS_PORT":       6379,
		"REDIS_PASSWORD":   "",
		"REDIS_DB":         0,
		"REDIS_KEY_PREFIX": "lms",

		"JWT_SECRET":               devJWTSecret,
		"JWT_ISSUER":               "campus-lms-api",
		"JWT_EXPIRATION":           "15m",
		"REFRESH_TOKEN_EXPIRATION": "168h",
		"JWT_CLOCK_SKEW":           "30s",

		"ALLOWED_ORIGINS": "",
		"LOG_LEVEL":       "info",
		"LOG_FORMAT":      "json",

		"UPLOAD_DIR":                "./uploads",
		"UPLOAD_PUBLIC_BASE_URL":    "http://localhost:8080",
		"UPLOAD_PUBLIC_PATH":        "/files",
		"UPLOAD_MAX_FILE_SIZE":      20 << 20,
		"UPLOAD_ALLOWED_MIME_TYPES": "application/pdf,application/zip,text/plain,image/png,image/jpeg,application/vnd.openxmlformats-officedocument.wordprocessingml.document,application/vnd.openxmlformats-officedocument.presentationml.presentation",

		"ENABLE_REPORT_JOBS":         true,
		"REPORTS_STORAGE_DIR":        "./exports",
		"REPORTS_SIGNED_URL_SECRET":  devReportsSecret,
		"REPORTS_SIGNED_URL_TTL":     "24h",
		"REPORTS_CLEANUP_INTERVAL":   "1h",
		"REPORTS_WORKER_CONCURRENCY": 1,
		"REPORTS_WORKER_RETRIES":     3,
		"REPORTS_CHART_CACHE_TTL":    "5m",

		"EVALUATION_SEMESTER_SCHEME": "quarters",

		"ENABLE_REALTIME":        true,
		"REALTIME_CHANNEL":       "lms_discussion_changes",
		"REALTIME_MIN_RECONNECT": "10s",
		"REALTIME_MAX_RECONNECT": "1m",

		"NAVIGATION_BADGE_CACHE_TTL": "30s",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// parseDuration falls back on empty or malformed input.
func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
