package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filedepot/filedepot/internal/domain/file"
	"github.com/filedepot/filedepot/internal/upload"
)

// ChecksumOf returns the sha256 checksum value object of data.
func ChecksumOf(t *testing.T, data []byte) file.Checksum {
	t.Helper()
	sum := sha256.Sum256(data)
	checksum, err := file.NewChecksum("sha256:" + hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	return checksum
}

// ChunkData builds a deterministic chunk body of the given size.
func ChunkData(number int, size int) []byte {
	data := make([]byte, size)
	pattern := fmt.Sprintf("chunk-%d-", number)
	for i := range data {
		data[i] = pattern[i%len(pattern)]
	}
	return data
}

type TestSessionOptions struct {
	TenantID     string
	Filename     string
	ExpectedSize int64
	ChunkSize    int64
	TTL          time.Duration
	MaxRetries   int
}

func DefaultTestSessionOptions() TestSessionOptions {
	return TestSessionOptions{
		TenantID:     "tenant-test",
		Filename:     "fixture.bin",
		ExpectedSize: 1024,
		ChunkSize:    512,
		TTL:          24 * time.Hour,
		MaxRetries:   3,
	}
}

// SessionStore is the slice of the session repository the helpers
// need.
type SessionStore interface {
	Create(ctx context.Context, s *upload.Session) error
	Update(ctx context.Context, s *upload.Session) error
}

// CreateTestSession persists a fresh session built from opts.
func CreateTestSession(t *testing.T, ctx context.Context, store SessionStore, opts TestSessionOptions) *upload.Session {
	t.Helper()

	defaults := DefaultTestSessionOptions()
	if opts.TenantID == "" {
		opts.TenantID = defaults.TenantID
	}
	if opts.Filename == "" {
		opts.Filename = defaults.Filename
	}
	if opts.ExpectedSize == 0 {
		opts.ExpectedSize = defaults.ExpectedSize
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = defaults.ChunkSize
	}
	if opts.TTL == 0 {
		opts.TTL = defaults.TTL
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaults.MaxRetries
	}

	session, err := upload.NewSession(upload.NewSessionParams{
		TenantID:         opts.TenantID,
		OriginalFilename: opts.Filename,
		ExpectedSize:     opts.ExpectedSize,
		UploadType:       upload.TypeChunked,
		StorageProvider:  "minio",
		ChunkSize:        opts.ChunkSize,
		TTL:              opts.TTL,
		MaxRetries:       opts.MaxRetries,
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, session))
	return session
}

// CreateOverdueSession persists a session whose deadline already
// passed; the sweeper picks such rows up.
func CreateOverdueSession(t *testing.T, ctx context.Context, store SessionStore, pastBy time.Duration) *upload.Session {
	t.Helper()

	opts := DefaultTestSessionOptions()
	session := CreateTestSession(t, ctx, store, opts)

	data := ChunkData(1, int(opts.ChunkSize))
	require.NoError(t, session.AddChunk(1, opts.ChunkSize, ChecksumOf(t, data), ""))
	session.ExpiresAt = time.Now().Add(-pastBy)
	require.NoError(t, store.Update(ctx, session))
	return session
}

// CreateTestFileMetadata builds file metadata ready to persist.
func CreateTestFileMetadata(t *testing.T, tenantID, filename string, size int64) *file.Metadata {
	t.Helper()

	id, err := file.NewFileID()
	require.NoError(t, err)
	fileSize, err := file.NewSize(size)
	require.NoError(t, err)
	mimeType, err := file.NewMimeType("application/octet-stream")
	require.NoError(t, err)
	key, err := file.NewStorageKey(fmt.Sprintf("files/%s/%s", tenantID, id))
	require.NoError(t, err)

	return &file.Metadata{
		ID:               id,
		TenantID:         tenantID,
		OriginalFilename: filename,
		Size:             fileSize,
		MimeType:         mimeType,
		StorageKey:       key,
		Status:           "available",
		CreatedAt:        time.Now().UTC(),
	}
}
