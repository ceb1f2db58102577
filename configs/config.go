package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Schedules struct {
	Publish      string
	TokenRefresh string
	KeepAlive    string
	LogRetention string
}

type Config struct {
	Port                 string
	DatabaseDriver       string
	PostgresURI          string
	MongoURI             string
	DatabaseName         string
	RedisURI             string
	FrontendURL          string
	SelfURL              string
	R2                   R2
	SecretKey            string
	CookieName           string
	TwitterAPIURL        string
	FacebookAppSecret    string
	Schedules            Schedules
	PublishTimeout       time.Duration
	DispatchConcurrency  int
	TokenRefreshWindow   time.Duration
	StaleProcessingAfter time.Duration
	LogRetention         time.Duration
}

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

func LoadConfig() *Config {
	port := getEnv("PORT", "5000")
	return &Config{
		Port:           port,
		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverPostgres),
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		MongoURI:       getEnv("MONGODB_URI", ""),
		DatabaseName:   getEnv("DATABASE_NAME", "crosspost"),
		RedisURI:       getEnv("REDIS_URI", ""),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		SelfURL:        getEnv("SELF_URL", "http://localhost:"+port),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "crosspost_session"),
		TwitterAPIURL:     getEnv("TWITTER_API_URL", "https://api.twitter.com"),
		FacebookAppSecret: getEnv("FACEBOOK_APP_SECRET", ""),
		Schedules: Schedules{
			Publish:      getEnv("PUBLISH_SCHEDULE", "@every 1m"),
			TokenRefresh: getEnv("TOKEN_REFRESH_SCHEDULE", "0 0 * * *"),
			KeepAlive:    getEnv("KEEPALIVE_SCHEDULE", "*/14 * * * *"),
			LogRetention: getEnv("LOG_RETENTION_SCHEDULE", "30 3 * * *"),
		},
		PublishTimeout:       getEnvDuration("PUBLISH_TIMEOUT", 10*time.Second),
		DispatchConcurrency:  getEnvInt("DISPATCH_CONCURRENCY", 1),
		TokenRefreshWindow:   getEnvDuration("TOKEN_REFRESH_WINDOW", 24*time.Hour),
		StaleProcessingAfter: getEnvDuration("STALE_PROCESSING_AFTER", 15*time.Minute),
		LogRetention:         time.Duration(getEnvInt("LOG_RETENTION_DAYS", 90)) * 24 * time.Hour,
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.PostgresURI == "" {
			return fmt.Errorf("POSTGRES_URI is required when DATABASE_DRIVER=%s", DriverPostgres)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when DATABASE_DRIVER=%s", DriverMongo)
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if n := len(c.SecretKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return fmt.Errorf("SECRET_KEY must be 16, 24 or 32 bytes, got %d", n)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

// Configured reports whether media uploads can be stored.
func (r R2) Configured() bool {
	return r.AccountID != "" && r.AccessKey != "" && r.SecretKey != "" && r.BucketName != ""
}
