package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Firebase  FirebaseConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	App       AppConfig
	UI        UIConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
}

type StoreConfig struct {
	Backend string
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
	Collection      string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	DSN       string
	ConnectTO time.Duration
	PingTO    time.Duration
	MaxConns  int
	MinConns  int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	ServiceName string
}

type UIConfig struct {
	MessageDuration    time.Duration
	SessionIdleTimeout time.Duration
	SessionReapSpec    string
	MaxSessions        int
}

type RateLimitConfig struct {
	WritesPerSecond float64
	Burst           int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendFirestore)),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			Collection:      getEnv("FIRESTORE_COLLECTION", "jobApplications"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN:       getEnv("DB_DSN", ""),
			ConnectTO: getEnvAsDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			PingTO:    getEnvAsDuration("DB_PING_TIMEOUT", 2*time.Second),
			MaxConns:  getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:  getEnvAsInt("DB_MIN_CONNS", 2),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			ServiceName: getEnv("SERVICE_NAME", "job-tracker"),
		},
		UI: UIConfig{
			MessageDuration:    getEnvAsDuration("MESSAGE_DURATION", 3*time.Second),
			SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SessionReapSpec:    getEnv("SESSION_REAP_SCHEDULE", "@every 1m"),
			MaxSessions:        getEnvAsInt("MAX_SESSIONS", 1000),
		},
		RateLimit: RateLimitConfig{
			WritesPerSecond: getEnvAsFloat("API_WRITE_RATE", 5),
			Burst:           getEnvAsInt("API_WRITE_BURST", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case BackendFirestore:
		if c.Firebase.CredentialsPath == "" && os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required for the firestore backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case BackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.UI.MessageDuration <= 0 {
		return fmt.Errorf("MESSAGE_DURATION must be positive")
	}
	if c.UI.MaxSessions < 0 {
		return fmt.Errorf("MAX_SESSIONS must not be negative")
	}
	if c.RateLimit.WritesPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("API_WRITE_RATE and API_WRITE_BURST must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
