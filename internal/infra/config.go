package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	JobStorePostgres = "postgres"
	JobStoreMemory   = "memory"

	StorageFilesystem = "filesystem"
	StorageMinio      = "minio"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	LogLevel         string
	Port             string
	JobStore         string
	DatabaseURL      string
	StorageBackend   string
	UploadDir        string
	StorageBaseURL   string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool
	FalAPIKey        string
	FalQueueURL      string
	FalPollInterval  time.Duration
	DefaultModel     string
	DispatchWorkers  int
	DispatchTimeout  time.Duration
	DBMaxConns       int
	MaxUploadBytes   int64
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8000")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Port:             port,
		JobStore:         strings.ToLower(getEnv("JOB_STORE", JobStorePostgres)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageFilesystem)),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		StorageBaseURL:   strings.TrimRight(getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/uploads"), "/"),
		MinioEndpoint:    os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:   os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:   os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:      getEnv("MINIO_BUCKET", "uploads"),
		MinioUseSSL:      getEnvBool("MINIO_USE_SSL", false),
		FalAPIKey:        os.Getenv("FAL_API_KEY"),
		FalQueueURL:      getEnv("FAL_QUEUE_URL", "https://queue.fal.run"),
		FalPollInterval:  time.Millisecond * time.Duration(getEnvInt("FAL_POLL_INTERVAL_MS", 1000)),
		DefaultModel:     getEnv("DEFAULT_MODEL", "seedream"),
		DispatchWorkers:  getEnvInt("DISPATCH_CONCURRENCY", 4),
		DispatchTimeout:  time.Second * time.Duration(getEnvInt("DISPATCH_TIMEOUT_SECONDS", 300)),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "*")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	switch cfg.JobStore {
	case JobStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when JOB_STORE=%s", JobStorePostgres)
		}
	case JobStoreMemory:
	default:
		return nil, fmt.Errorf("unsupported JOB_STORE %q", cfg.JobStore)
	}

	switch cfg.StorageBackend {
	case StorageFilesystem:
		if strings.TrimSpace(cfg.UploadDir) == "" {
			return nil, fmt.Errorf("UPLOAD_DIR is required when STORAGE_BACKEND=%s", StorageFilesystem)
		}
	case StorageMinio:
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required when STORAGE_BACKEND=%s", StorageMinio)
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.FalAPIKey == "" {
		return nil, fmt.Errorf("FAL_API_KEY is required")
	}
	if _, err := url.Parse(cfg.FalQueueURL); err != nil {
		return nil, fmt.Errorf("invalid FAL_QUEUE_URL: %w", err)
	}
	if cfg.DispatchWorkers <= 0 {
		cfg.DispatchWorkers = 1
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
