package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultWatermarkEndpoint is the public watermarking service
const DefaultWatermarkEndpoint = "https://watermark-builder.herokuapp.com/api/watermark"

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Enabled reports whether a database has been configured
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// SupabaseConfig holds the optional remote export storage
type SupabaseConfig struct {
	URL    string
	Key    string
	Bucket string
}

// Enabled reports whether remote export storage has been configured
func (c SupabaseConfig) Enabled() bool {
	return c.URL != "" && c.Key != "" && c.Bucket != ""
}

// RedisConfig holds the optional result cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Config holds all configuration for the application
type Config struct {
	WatermarkEndpoint    string
	WatermarkHTTPTimeout time.Duration

	LogLevel  string
	LogFormat string

	HTTPAddr        string
	HTTPSubmitRate  float64
	HTTPSubmitBurst int

	TelegramBotToken string

	ExportDir             string
	ExportMaxAge          time.Duration
	ExportCleanupSchedule string

	SessionIdleTTL       time.Duration
	SessionPruneSchedule string
	HistoryRetention     time.Duration
	HistoryPruneSchedule string

	AMQPURL   string
	AMQPQueue string

	Supabase SupabaseConfig
	Redis    RedisConfig
	DB       DBConfig
}

// Load loads the configuration from environment variables, reading .env first when present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		WatermarkEndpoint:     getEnv("WATERMARK_ENDPOINT", DefaultWatermarkEndpoint),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		ExportDir:             getEnv("EXPORT_DIR", os.TempDir()),
		ExportCleanupSchedule: getEnv("EXPORT_CLEANUP_SCHEDULE", "0 */30 * * * *"),
		SessionPruneSchedule:  getEnv("SESSION_PRUNE_SCHEDULE", "0 */5 * * * *"),
		HistoryPruneSchedule:  getEnv("HISTORY_PRUNE_SCHEDULE", "0 0 3 * * *"),
		AMQPURL:               os.Getenv("AMQP_URL"),
		AMQPQueue:             getEnv("AMQP_QUEUE", "watermark_outcomes"),
		Supabase: SupabaseConfig{
			URL:    os.Getenv("SUPABASE_URL"),
			Key:    os.Getenv("SUPABASE_KEY"),
			Bucket: os.Getenv("SUPABASE_BUCKET"),
		},
	}

	// Seconds; zero leaves the transport without a deadline
	if timeout, err := strconv.Atoi(os.Getenv("WATERMARK_HTTP_TIMEOUT")); err == nil {
		config.WatermarkHTTPTimeout = time.Duration(timeout) * time.Second
	}

	if rate, err := strconv.ParseFloat(os.Getenv("HTTP_SUBMIT_RATE"), 64); err == nil {
		config.HTTPSubmitRate = rate
	} else {
		config.HTTPSubmitRate = 2 // default value
	}

	if burst, err := strconv.Atoi(os.Getenv("HTTP_SUBMIT_BURST")); err == nil {
		config.HTTPSubmitBurst = burst
	} else {
		config.HTTPSubmitBurst = 5 // default value
	}

	if maxAge, err := strconv.Atoi(os.Getenv("EXPORT_MAX_AGE")); err == nil {
		config.ExportMaxAge = time.Duration(maxAge) * time.Second
	} else {
		config.ExportMaxAge = 24 * time.Hour // default value
	}

	if ttl, err := strconv.Atoi(os.Getenv("SESSION_IDLE_TTL")); err == nil {
		config.SessionIdleTTL = time.Duration(ttl) * time.Second
	} else {
		config.SessionIdleTTL = time.Hour // default value
	}

	if retention, err := strconv.Atoi(os.Getenv("HISTORY_RETENTION")); err == nil {
		config.HistoryRetention = time.Duration(retention) * time.Second
	} else {
		config.HistoryRetention = 30 * 24 * time.Hour // default value
	}

	// Redis result cache
	config.Redis = RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		config.Redis.DB = db
	}
	if ttl, err := strconv.Atoi(os.Getenv("REDIS_RESULT_TTL")); err == nil {
		config.Redis.TTL = time.Duration(ttl) * time.Second
	} else {
		config.Redis.TTL = time.Hour // default value
	}

	// Load database configuration
	dbConfig := DBConfig{
		Host:     os.Getenv("DB_HOST"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Database: os.Getenv("DB_NAME"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Parse database port
	if port, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		dbConfig.Port = port
	} else {
		dbConfig.Port = 5432 // default PostgreSQL port
	}

	// Parse connection pool settings
	if maxOpenConns, err := strconv.Atoi(os.Getenv("DB_MAX_OPEN_CONNS")); err == nil {
		dbConfig.MaxOpenConns = maxOpenConns
	} else {
		dbConfig.MaxOpenConns = 10 // default value
	}

	if maxIdleConns, err := strconv.Atoi(os.Getenv("DB_MAX_IDLE_CONNS")); err == nil {
		dbConfig.MaxIdleConns = maxIdleConns
	} else {
		dbConfig.MaxIdleConns = 10 // default value
	}

	if connMaxLifetime, err := strconv.Atoi(os.Getenv("DB_CONN_MAX_LIFETIME")); err == nil {
		dbConfig.ConnMaxLifetime = time.Duration(connMaxLifetime) * time.Second
	} else {
		dbConfig.ConnMaxLifetime = 5 * time.Minute // default value
	}

	config.DB = dbConfig

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.WatermarkEndpoint == "" {
		return fmt.Errorf("WATERMARK_ENDPOINT is required")
	}
	if c.WatermarkHTTPTimeout < 0 {
		return fmt.Errorf("WATERMARK_HTTP_TIMEOUT must not be negative")
	}
	if c.HTTPSubmitRate <= 0 || c.HTTPSubmitBurst <= 0 {
		return fmt.Errorf("HTTP_SUBMIT_RATE and HTTP_SUBMIT_BURST must be positive")
	}

	// The database is optional, but a partial configuration is a mistake
	if c.DB.Enabled() {
		if c.DB.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.DB.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
		if c.DB.Database == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
