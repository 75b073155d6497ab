package upload

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedepot/filedepot/internal/domain/file"
)

func newTestSession(t *testing.T, size, chunkSize int64) *Session {
	t.Helper()
	s, err := NewSession(NewSessionParams{
		TenantID:         "tenant-a",
		OriginalFilename: "report.pdf",
		ExpectedSize:     size,
		UploadType:       TypeChunked,
		StorageProvider:  "minio",
		ChunkSize:        chunkSize,
		TTL:              time.Hour,
		MaxRetries:       3,
	})
	require.NoError(t, err)
	return s
}

func testChecksum(t *testing.T, seed byte) file.Checksum {
	t.Helper()
	digest := make([]byte, 64)
	for i := range digest {
		digest[i] = "0123456789abcdef"[int(seed)%16]
	}
	c, err := file.NewChecksum("sha256:" + string(digest))
	require.NoError(t, err)
	return c
}

func TestNewSession_Defaults(t *testing.T) {
	s := newTestSession(t, 1000, 400)

	assert.Equal(t, StatusInitialized, s.Status)
	assert.Equal(t, 3, s.TotalChunks)
	assert.Equal(t, int64(1), s.Version)
	assert.False(t, s.ID.IsZero())
	assert.False(t, s.TargetFileID.IsZero())
	assert.Equal(t, "uploads/tenant-a/"+s.ID.String(), s.StorageKey.String())
	assert.Empty(t, s.Chunks)
}

func TestNewSession_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewSessionParams)
	}{
		{"missing tenant", func(p *NewSessionParams) { p.TenantID = "" }},
		{"missing filename", func(p *NewSessionParams) { p.OriginalFilename = "" }},
		{"negative size", func(p *NewSessionParams) { p.ExpectedSize = -1 }},
		{"zero chunk size", func(p *NewSessionParams) { p.ChunkSize = 0 }},
		{"zero ttl", func(p *NewSessionParams) { p.TTL = 0 }},
		{"traversal tenant", func(p *NewSessionParams) { p.TenantID = "../etc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := NewSessionParams{
				TenantID:         "tenant-a",
				OriginalFilename: "report.pdf",
				ExpectedSize:     1000,
				ChunkSize:        400,
				TTL:              time.Hour,
			}
			tt.mutate(&params)
			_, err := NewSession(params)
			assert.Error(t, err)
		})
	}
}

func TestSession_ChunkedFlow(t *testing.T) {
	s := newTestSession(t, 1000, 400)

	require.NoError(t, s.AddChunk(1, 400, testChecksum(t, 1), "etag-1"))
	assert.Equal(t, StatusInProgress, s.Status)
	assert.NotNil(t, s.StartedAt)

	require.NoError(t, s.AddChunk(2, 400, testChecksum(t, 2), "etag-2"))
	assert.Equal(t, int64(800), s.UploadedSize)
	assert.InDelta(t, 80.0, s.Progress(), 0.001)
	assert.Equal(t, []int{3}, s.MissingChunks())

	require.NoError(t, s.AddChunk(3, 200, testChecksum(t, 3), "etag-3"))
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, int64(1000), s.UploadedSize)
	assert.Empty(t, s.MissingChunks())
	assert.NotNil(t, s.CompletedAt)
}

func TestSession_ChunkReuploadAdjustsSizeByDelta(t *testing.T) {
	s := newTestSession(t, 1000, 400)

	require.NoError(t, s.AddChunk(1, 400, testChecksum(t, 1), "etag-1"))
	require.NoError(t, s.AddChunk(1, 300, testChecksum(t, 9), "etag-1b"))

	assert.Equal(t, int64(300), s.UploadedSize)
	assert.Len(t, s.Chunks, 1)
	assert.Equal(t, "etag-1b", s.Chunks[1].ETag)
}

func TestSession_HasChunk(t *testing.T) {
	s := newTestSession(t, 1000, 400)
	sum := testChecksum(t, 1)
	require.NoError(t, s.AddChunk(1, 400, sum, "etag-1"))

	assert.True(t, s.HasChunk(1, 400, sum))
	assert.False(t, s.HasChunk(1, 399, sum), "size mismatch is not the same chunk")
	assert.False(t, s.HasChunk(1, 400, testChecksum(t, 2)), "checksum mismatch is not the same chunk")
	assert.False(t, s.HasChunk(2, 400, sum))
}

func TestSession_AddChunk_Validation(t *testing.T) {
	s := newTestSession(t, 1000, 400)

	err := s.AddChunk(0, 400, testChecksum(t, 1), "")
	assert.ErrorIs(t, err, ErrInvalidChunk)

	err = s.AddChunk(4, 400, testChecksum(t, 1), "")
	assert.ErrorIs(t, err, ErrInvalidChunk)

	err = s.AddChunk(1, 0, testChecksum(t, 1), "")
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestSession_CompleteUpload_RequiresAllChunks(t *testing.T) {
	s := newTestSession(t, 1000, 400)
	require.NoError(t, s.AddChunk(1, 400, testChecksum(t, 1), ""))
	require.NoError(t, s.AddChunk(2, 400, testChecksum(t, 2), ""))

	err := s.CompleteUpload()
	require.Error(t, err)

	var incomplete *IncompleteUploadError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []int{3}, incomplete.Missing)
	assert.Equal(t, StatusInProgress, s.Status, "failed completion leaves the session in progress")

	require.NoError(t, s.AddChunk(3, 200, testChecksum(t, 3), ""))
	assert.NoError(t, s.CompleteUpload())
	assert.Equal(t, StatusCompleted, s.Status)
}

func TestSession_CompleteUpload_InvalidStates(t *testing.T) {
	s := newTestSession(t, 1000, 400)
	require.NoError(t, s.CancelUpload())

	err := s.CompleteUpload()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_CancelUpload(t *testing.T) {
	s := newTestSession(t, 1000, 400)
	require.NoError(t, s.CancelUpload())
	assert.Equal(t, StatusCancelled, s.Status)

	assert.ErrorIs(t, s.CancelUpload(), ErrInvalidTransition)
	assert.ErrorIs(t, s.AddChunk(1, 400, testChecksum(t, 1), ""), ErrInvalidTransition)
}

func TestSession_RetryUpload(t *testing.T) {
	s := newTestSession(t, 1000, 400)
	require.NoError(t, s.AddChunk(1, 400, testChecksum(t, 1), ""))

	assert.ErrorIs(t, s.RetryUpload(), ErrInvalidTransition, "only failed sessions can retry")

	require.NoError(t, s.FailUpload("storage hiccup"))
	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, "storage hiccup", s.FailureReason)

	require.NoError(t, s.RetryUpload())
	assert.Equal(t, StatusInProgress, s.Status)
	assert.Equal(t, 1, s.RetryCount)
	assert.Empty(t, s.FailureReason)
	assert.Len(t, s.Chunks, 1, "retry keeps accepted chunks")
}

func TestSession_RetryUpload_Exhausted(t *testing.T) {
	s := newTestSession(t, 1000, 400)
	require.NoError(t, s.AddChunk(1, 400, testChecksum(t, 1), ""))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.FailUpload("again"))
		require.NoError(t, s.RetryUpload())
	}
	require.NoError(t, s.FailUpload("final"))
	assert.ErrorIs(t, s.RetryUpload(), ErrRetriesExhausted)
}

func TestSession_Expiry(t *testing.T) {
	s := newTestSession(t, 1000, 400)
	s.ExpiresAt = time.Now().Add(-time.Minute)

	err := s.AddChunk(1, 400, testChecksum(t, 1), "")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, StatusExpired, s.Status)

	assert.ErrorIs(t, s.MarkExpired(), ErrInvalidTransition, "already terminal")
}

func TestSession_FailAfterAutoComplete(t *testing.T) {
	// Assembly or scanning can still fail a session whose chunk set is
	// complete.
	s := newTestSession(t, 400, 400)
	require.NoError(t, s.AddChunk(1, 400, testChecksum(t, 1), ""))
	require.Equal(t, StatusCompleted, s.Status)

	require.NoError(t, s.FailUpload("scan unavailable"))
	assert.Equal(t, StatusFailed, s.Status)
}

func TestSession_UnknownChunkCount(t *testing.T) {
	// Expected size zero means streaming with unknown length: chunk
	// numbers are unbounded and completion is manual.
	s := newTestSession(t, 0, 400)
	assert.Equal(t, 0, s.TotalChunks)

	require.NoError(t, s.AddChunk(1, 400, testChecksum(t, 1), ""))
	require.NoError(t, s.AddChunk(7, 100, testChecksum(t, 2), ""))
	assert.Equal(t, StatusInProgress, s.Status)
	assert.Nil(t, s.MissingChunks())
	assert.Zero(t, s.Progress())
}

func TestSession_ProgressCappedAtHundred(t *testing.T) {
	s := newTestSession(t, 100, 400)
	require.NoError(t, s.AddChunk(1, 150, testChecksum(t, 1), ""))
	assert.Equal(t, 100.0, s.Progress())
}

func TestSession_CompletedChunksSorted(t *testing.T) {
	s := newTestSession(t, 2000, 400)
	require.NoError(t, s.AddChunk(3, 400, testChecksum(t, 3), ""))
	require.NoError(t, s.AddChunk(1, 400, testChecksum(t, 1), ""))
	require.NoError(t, s.AddChunk(2, 400, testChecksum(t, 2), ""))
	assert.Equal(t, []int{1, 2, 3}, s.CompletedChunks())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.False(t, StatusInitialized.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.False(t, StatusFailed.IsTerminal(), "failed stays retryable")
}

func TestIncompleteUploadError_SortsChunks(t *testing.T) {
	err := &IncompleteUploadError{Missing: []int{10, 2, 7}}
	assert.Equal(t, "upload incomplete, missing chunks: 2, 7, 10", err.Error())
	assert.False(t, errors.Is(err, ErrInvalidChunk))
}
