// Package config reads service configuration from the environment.
// godotenv loads a local .env in development before this runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort string

	DatabaseURL    string
	DatabaseSchema string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	UploadChunkSize   int64
	UploadSessionTTL  time.Duration
	UploadMaxRetries  int
	ChecksumAlgorithm string
	SweepInterval     time.Duration
	SweepBatchSize    int

	ScanEnabled bool
	ScannerURL  string

	LazyCountEnabled        bool
	LazyCountThresholdPages int
	MaxCountTime            time.Duration
	CountCacheTTL           time.Duration
	CountCacheSize          int
}

func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DatabaseURL:    os.Getenv("DB_URL"),
		DatabaseSchema: getEnv("DB_SCHEMA", "public"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		MinioBucket:    getEnv("MINIO_BUCKET_NAME", "filedepot"),

		UploadChunkSize:   int64(getEnvInt("UPLOAD_CHUNK_SIZE_BYTES", 8<<20)),
		UploadSessionTTL:  time.Duration(getEnvInt("UPLOAD_SESSION_TTL_SECONDS", 86400)) * time.Second,
		UploadMaxRetries:  getEnvInt("UPLOAD_MAX_RETRIES", 3),
		ChecksumAlgorithm: getEnv("UPLOAD_CHECKSUM_ALGORITHM", "sha256"),
		SweepInterval:     time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 300)) * time.Second,
		SweepBatchSize:    getEnvInt("SWEEP_BATCH_SIZE", 100),

		ScanEnabled: os.Getenv("SCAN_ENABLED") == "true",
		ScannerURL:  os.Getenv("SCANNER_URL"),

		LazyCountEnabled:        getEnv("PAGINATION_LAZY_COUNT", "true") == "true",
		LazyCountThresholdPages: getEnvInt("PAGINATION_LAZY_COUNT_THRESHOLD_PAGES", 100),
		MaxCountTime:            time.Duration(getEnvInt("PAGINATION_MAX_COUNT_TIME_MS", 500)) * time.Millisecond,
		CountCacheTTL:           time.Duration(getEnvInt("PAGINATION_COUNT_CACHE_TTL_SECONDS", 30)) * time.Second,
		CountCacheSize:          getEnvInt("PAGINATION_COUNT_CACHE_SIZE", 256),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DB_URL environment variable is not set")
	}
	if cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT environment variable is not set")
	}
	if cfg.ScanEnabled && cfg.ScannerURL == "" {
		return nil, fmt.Errorf("SCANNER_URL must be set when SCAN_ENABLED=true")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}
