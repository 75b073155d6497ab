package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_URL", "postgres://localhost:5432/filedepot")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, int64(8<<20), cfg.UploadChunkSize)
	assert.Equal(t, 24*time.Hour, cfg.UploadSessionTTL)
	assert.Equal(t, 3, cfg.UploadMaxRetries)
	assert.Equal(t, "sha256", cfg.ChecksumAlgorithm)
	assert.False(t, cfg.ScanEnabled)
	assert.True(t, cfg.LazyCountEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.MaxCountTime)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPLOAD_CHUNK_SIZE_BYTES", "1048576")
	t.Setenv("UPLOAD_MAX_RETRIES", "5")
	t.Setenv("PAGINATION_LAZY_COUNT", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(1<<20), cfg.UploadChunkSize)
	assert.Equal(t, 5, cfg.UploadMaxRetries)
	assert.False(t, cfg.LazyCountEnabled)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ScannerRequiredWhenScanEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SCAN_ENABLED", "true")
	t.Setenv("SCANNER_URL", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SCANNER_URL", "http://localhost:9090/scan")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ScanEnabled)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPLOAD_MAX_RETRIES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.UploadMaxRetries)
}
