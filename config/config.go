package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	HTTP      ServerConfig
	MySQL     MySQLConfig
	Log       LogConfig
	Backend   BackendConfig
	Donations DonationsConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type BackendConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

type DonationsConfig struct {
	PollInterval    time.Duration
	PollMaxAttempts int
	FlowTTL         time.Duration
	RateLimitPerSec float64
}

type JobsConfig struct {
	ReconcileInterval   time.Duration
	ReconcileStaleAfter time.Duration
	FlowPurgeInterval   time.Duration
	JobBatchSize        int32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	backendBaseURL := os.Getenv("BACKEND_BASE_URL")
	if backendBaseURL == "" {
		return nil, errors.New("BACKEND_BASE_URL environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "donations-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Backend: BackendConfig{
			BaseURL:     backendBaseURL,
			APIKey:      getEnv("BACKEND_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("BACKEND_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Donations: DonationsConfig{
			PollInterval:    getSecondsEnv("DONATIONS_POLL_INTERVAL_SECONDS", 5*time.Second),
			PollMaxAttempts: getIntEnv("DONATIONS_POLL_MAX_ATTEMPTS", 30),
			FlowTTL:         getMinutesEnv("DONATIONS_FLOW_TTL_MINUTES", 30*time.Minute),
			RateLimitPerSec: getFloatEnv("DONATIONS_RATE_LIMIT_PER_SECOND", 5),
		},
		Jobs: JobsConfig{
			ReconcileInterval:   getMinutesEnv("DONATIONS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("DONATIONS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			FlowPurgeInterval:   getMinutesEnv("DONATIONS_FLOW_PURGE_INTERVAL_MINUTES", 5*time.Minute),
			JobBatchSize:        int32(getIntEnv("DONATIONS_JOB_BATCH_SIZE", 100)),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
