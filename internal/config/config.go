package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverSurreal  = "surreal"
)

type Config struct {
	Env  string
	Port int

	StoreDriver string
	DBURL       string
	SQLitePath  string
	Surreal     SurrealConfig

	RedisURL      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelExporter string
	OTelEndpoint string

	CORSAllowedOrigins []string
	EventsCacheTTL     time.Duration
	RegisterRateLimit  int
	MessageTimezone    string

	ExportS3Bucket   string
	ExportS3Region   string
	ExportS3Endpoint string

	WorkerConcurrency int
	WorkerHealthPort  int
}

type SurrealConfig struct {
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}

// Load reads the environment, after an optional .env in the working directory.
func Load() Config {
	// a missing .env is normal outside local dev
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DBURL:       buildDBURL(),
		SQLitePath:  getEnv("SQLITE_PATH", "eventform.db"),
		Surreal: SurrealConfig{
			Host:      getEnv("SURREAL_HOST", "127.0.0.1"),
			Port:      getEnv("SURREAL_PORT", "8000"),
			User:      getEnv("SURREAL_USER", "root"),
			Password:  getEnv("SURREAL_PASSWORD", "root"),
			Namespace: getEnv("SURREAL_NS", "eventform"),
			Database:  getEnv("SURREAL_DB", "eventform"),
		},

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTelExporter: strings.ToLower(getEnv("OTEL_EXPORTER", "otlp")),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		EventsCacheTTL:     time.Duration(getEnvInt("EVENTS_CACHE_TTL_SECONDS", 30)) * time.Second,
		RegisterRateLimit:  getEnvInt("REGISTER_RATE_LIMIT", 20),
		MessageTimezone:    getEnv("MESSAGE_TIMEZONE", "UTC"),

		ExportS3Bucket:   getEnv("EXPORT_S3_BUCKET", ""),
		ExportS3Region:   getEnv("EXPORT_S3_REGION", "us-east-1"),
		ExportS3Endpoint: getEnv("EXPORT_S3_ENDPOINT", ""),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerHealthPort:  getEnvInt("WORKER_HEALTH_PORT", 8081),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "eventform")
	pass := getEnv("DB_PASSWORD", "eventform")
	name := getEnv("DB_NAME", "eventform")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// Location resolves MessageTimezone, falling back to UTC on an unknown zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.MessageTimezone)
	if err != nil {
		slog.Warn("unknown MESSAGE_TIMEZONE, using UTC", "tz", c.MessageTimezone, "err", err)
		return time.UTC
	}
	return loc
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
