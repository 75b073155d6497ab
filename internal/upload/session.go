// Package upload coordinates chunked and resumable file ingestion: the
// UploadSession state machine, and the commands that drive it against
// the metadata store, blob store, and virus scanner.
package upload

import (
	"fmt"
	"sort"
	"time"

	"github.com/filedepot/filedepot/internal/domain/file"
)

// Status is the lifecycle state of an upload session.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
	StatusExpired     Status = "expired"
)

// IsTerminal reports whether no further transition is possible.
// Failed sessions stay retryable until retries are exhausted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Type is how the file body arrives.
type Type string

const (
	TypeSingle    Type = "single"
	TypeChunked   Type = "chunked"
	TypeMultipart Type = "multipart"
	TypeResumable Type = "resumable"
)

// ChunkInfo records one accepted chunk. Re-upload of the same chunk
// number replaces the record and adjusts the session's uploaded size by
// the delta.
type ChunkInfo struct {
	ChunkNumber int           `json:"chunk_number"`
	Size        int64         `json:"size"`
	Checksum    file.Checksum `json:"checksum"`
	UploadedAt  time.Time     `json:"uploaded_at"`
	ETag        string        `json:"etag"`
}

// Session is the upload state machine. Mutate it through its methods
// only; the repository persists it with a compare-and-swap on Version.
type Session struct {
	ID               file.UploadSessionID
	TenantID         string
	TargetFileID     file.FileID
	OriginalFilename string
	ExpectedSize     int64
	ExpectedMimeType file.MimeType
	ExpectedChecksum file.Checksum
	UploadType       Type
	StorageProvider  string
	StorageKey       file.StorageKey
	ChunkSize        int64
	Status           Status
	UploadedSize     int64
	TotalChunks      int
	Chunks           map[int]ChunkInfo
	StorageUploadID  string
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ExpiresAt        time.Time
	RetryCount       int
	MaxRetries       int
	FailureReason    string
	Version          int64
}

// NewSessionParams carries everything needed to open a session.
type NewSessionParams struct {
	TenantID         string
	OriginalFilename string
	ExpectedSize     int64
	ExpectedMimeType file.MimeType
	ExpectedChecksum file.Checksum
	UploadType       Type
	StorageProvider  string
	ChunkSize        int64
	TTL              time.Duration
	MaxRetries       int
}

func NewSession(params NewSessionParams) (*Session, error) {
	if params.TenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	if params.OriginalFilename == "" {
		return nil, fmt.Errorf("original filename is required")
	}
	if params.ExpectedSize < 0 {
		return nil, fmt.Errorf("expected size must not be negative")
	}
	if params.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}

	id, err := file.NewUploadSessionID()
	if err != nil {
		return nil, err
	}
	targetID, err := file.NewFileID()
	if err != nil {
		return nil, err
	}

	// Chunks for this session land under a per-session prefix.
	storageKey, err := file.NewStorageKey(fmt.Sprintf("uploads/%s/%s", params.TenantID, id))
	if err != nil {
		return nil, fmt.Errorf("tenant id %q is not storage-safe: %w", params.TenantID, err)
	}

	totalChunks := 0
	if params.ExpectedSize > 0 {
		totalChunks = int((params.ExpectedSize + params.ChunkSize - 1) / params.ChunkSize)
	}

	now := time.Now().UTC()
	return &Session{
		ID:               id,
		TenantID:         params.TenantID,
		TargetFileID:     targetID,
		OriginalFilename: params.OriginalFilename,
		ExpectedSize:     params.ExpectedSize,
		ExpectedMimeType: params.ExpectedMimeType,
		ExpectedChecksum: params.ExpectedChecksum,
		UploadType:       params.UploadType,
		StorageProvider:  params.StorageProvider,
		StorageKey:       storageKey,
		ChunkSize:        params.ChunkSize,
		Status:           StatusInitialized,
		TotalChunks:      totalChunks,
		Chunks:           make(map[int]ChunkInfo),
		CreatedAt:        now,
		ExpiresAt:        now.Add(params.TTL),
		MaxRetries:       params.MaxRetries,
		Version:          1,
	}, nil
}

// IsExpired reports whether the wall clock has passed ExpiresAt.
// Expiry is checked lazily on each operation; there is no timer per
// session (the scheduler sweeps stale rows separately).
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// StartUpload moves INITIALIZED to IN_PROGRESS.
func (s *Session) StartUpload() error {
	if s.IsExpired(time.Now()) {
		s.Status = StatusExpired
		return ErrSessionExpired
	}
	if s.Status != StatusInitialized {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, s.Status)
	}
	now := time.Now().UTC()
	s.StartedAt = &now
	s.Status = StatusInProgress
	return nil
}

// AddChunk records an accepted chunk. The session auto-starts on the
// first chunk and auto-completes once every chunk is present (or, with
// an unknown chunk count, once the uploaded size reaches the expected
// size).
func (s *Session) AddChunk(number int, size int64, checksum file.Checksum, etag string) error {
	if s.IsExpired(time.Now()) {
		s.Status = StatusExpired
		return ErrSessionExpired
	}
	switch s.Status {
	case StatusInitialized:
		if err := s.StartUpload(); err != nil {
			return err
		}
	case StatusInProgress:
	default:
		return fmt.Errorf("%w: cannot add chunk in %s", ErrInvalidTransition, s.Status)
	}

	if number < 1 {
		return fmt.Errorf("%w: chunk number %d must be at least 1", ErrInvalidChunk, number)
	}
	if s.TotalChunks > 0 && number > s.TotalChunks {
		return fmt.Errorf("%w: chunk number %d exceeds total of %d", ErrInvalidChunk, number, s.TotalChunks)
	}
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidChunk)
	}

	delta := size
	if prev, ok := s.Chunks[number]; ok {
		delta = size - prev.Size
	}
	s.Chunks[number] = ChunkInfo{
		ChunkNumber: number,
		Size:        size,
		Checksum:    checksum,
		UploadedAt:  time.Now().UTC(),
		ETag:        etag,
	}
	s.UploadedSize += delta

	if s.allChunksPresent() {
		now := time.Now().UTC()
		s.CompletedAt = &now
		s.Status = StatusCompleted
	}
	return nil
}

// HasChunk reports whether a chunk with identical size and checksum is
// already recorded; chunk re-upload on retry hits this path.
func (s *Session) HasChunk(number int, size int64, checksum file.Checksum) bool {
	chunk, ok := s.Chunks[number]
	return ok && chunk.Size == size && chunk.Checksum.Equal(checksum)
}

func (s *Session) allChunksPresent() bool {
	if s.TotalChunks > 0 {
		return len(s.Chunks) >= s.TotalChunks
	}
	return s.ExpectedSize > 0 && s.UploadedSize >= s.ExpectedSize
}

// CompleteUpload is the manual completion path. It fails with the
// missing chunk list unless every chunk is present; an auto-completed
// session passes through.
func (s *Session) CompleteUpload() error {
	switch s.Status {
	case StatusInProgress, StatusCompleted:
	default:
		return fmt.Errorf("%w: cannot complete from %s", ErrInvalidTransition, s.Status)
	}
	if missing := s.MissingChunks(); len(missing) > 0 {
		return &IncompleteUploadError{Missing: missing}
	}
	if s.Status != StatusCompleted {
		now := time.Now().UTC()
		s.CompletedAt = &now
		s.Status = StatusCompleted
	}
	return nil
}

// FailUpload records a failure; the session stays retryable while
// retries remain. A chunk-complete session may still fail here when
// finalization (assembly, integrity check, scan) goes wrong.
func (s *Session) FailUpload(reason string) error {
	if s.Status == StatusCancelled || s.Status == StatusExpired {
		return fmt.Errorf("%w: cannot fail from %s", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusFailed
	s.FailureReason = reason
	return nil
}

func (s *Session) CancelUpload() error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusCancelled
	return nil
}

// RetryUpload moves FAILED back to IN_PROGRESS while retries remain.
func (s *Session) RetryUpload() error {
	if s.Status != StatusFailed {
		return fmt.Errorf("%w: can only retry a failed upload, not %s", ErrInvalidTransition, s.Status)
	}
	if s.RetryCount >= s.MaxRetries {
		return ErrRetriesExhausted
	}
	if s.IsExpired(time.Now()) {
		s.Status = StatusExpired
		return ErrSessionExpired
	}
	s.RetryCount++
	s.FailureReason = ""
	s.Status = StatusInProgress
	return nil
}

// MarkExpired forces a non-terminal session into EXPIRED; the cleanup
// sweeper uses it.
func (s *Session) MarkExpired() error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot expire from %s", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusExpired
	return nil
}

// MissingChunks returns {1..TotalChunks} minus the recorded chunks,
// ascending. Clients use it to backfill after partial failures.
func (s *Session) MissingChunks() []int {
	if s.TotalChunks == 0 {
		return nil
	}
	missing := make([]int, 0)
	for n := 1; n <= s.TotalChunks; n++ {
		if _, ok := s.Chunks[n]; !ok {
			missing = append(missing, n)
		}
	}
	sort.Ints(missing)
	return missing
}

// Progress returns the uploaded percentage, capped at 100.
func (s *Session) Progress() float64 {
	if s.ExpectedSize <= 0 {
		return 0
	}
	p := float64(s.UploadedSize) / float64(s.ExpectedSize) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// CompletedChunks returns the recorded chunk numbers, ascending.
func (s *Session) CompletedChunks() []int {
	numbers := make([]int, 0, len(s.Chunks))
	for n := range s.Chunks {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}
