package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	LockLocal = "local"
	LockRedis = "redis"
)

type Config struct {
	Environment    string
	LogLevel       string
	DBDSN          string
	MigrationsPath string
	StoreBackend   string
	StoreTimeout   time.Duration
	Timezone       string

	MaxBookingMinutes         int
	MaxAdvanceHours           int
	PendingBlocksAvailability bool

	LockBackend   string
	LockTTL       time.Duration
	RedisAddr     string
	RedisPassword string

	AMQPURL      string
	AMQPExchange string

	TelegramToken       string
	TelegramAdminChatID int64

	// DotEnvLoaded true если значения подхвачены из .env
	DotEnvLoaded bool
}

func Load() (*Config, error) {
	// .env необязателен, переменные окружения имеют приоритет
	dotEnv := godotenv.Load(".env") == nil

	cfg := &Config{
		Environment:    getEnv("ENV", "development"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		DBDSN:          os.Getenv("DB_DSN"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		StoreBackend:   getEnv("STORE_BACKEND", BackendPostgres),
		Timezone:       getEnv("TIMEZONE", "UTC"),
		LockBackend:    getEnv("LOCK_BACKEND", LockLocal),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "booking.events"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		DotEnvLoaded:   dotEnv,
	}

	var err error
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = getDuration("LOCK_TTL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxBookingMinutes, err = getInt("MAX_BOOKING_MINUTES", 120); err != nil {
		return nil, err
	}
	if cfg.MaxAdvanceHours, err = getInt("MAX_ADVANCE_HOURS", 14*24); err != nil {
		return nil, err
	}
	if cfg.PendingBlocksAvailability, err = getBool("PENDING_BLOCKS_AVAILABILITY", false); err != nil {
		return nil, err
	}
	if raw := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); raw != "" {
		if cfg.TelegramAdminChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.LockBackend {
	case LockLocal:
	case LockRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for redis lock backend")
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}

	if c.MaxBookingMinutes <= 0 || c.MaxAdvanceHours <= 0 {
		return fmt.Errorf("booking limits must be positive")
	}

	if c.TelegramToken != "" && c.TelegramAdminChatID == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}

	return nil
}

// Location часовой пояс, в котором считаются дни и часы работы
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
