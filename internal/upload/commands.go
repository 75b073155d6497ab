package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/filedepot/filedepot/internal/crypto"
	"github.com/filedepot/filedepot/internal/domain/file"
	"github.com/filedepot/filedepot/internal/logger"
	"github.com/filedepot/filedepot/internal/scanner"
)

// SessionStore persists upload sessions. Update must compare-and-swap
// on Session.Version and return ErrVersionConflict when it loses.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id file.UploadSessionID) (*Session, error)
	Update(ctx context.Context, s *Session) error
}

// FileStore persists final file metadata after assembly.
type FileStore interface {
	Save(ctx context.Context, meta *file.Metadata) error
}

// BlobStore is the chunk-addressable object store the coordinator
// drives. Chunks live under the session's storage-key prefix; assembly
// combines them into one object at dest.
type BlobStore interface {
	UploadChunk(ctx context.Context, prefix file.StorageKey, number int, data []byte) (etag string, err error)
	AssembleChunks(ctx context.Context, prefix file.StorageKey, chunks []int, dest file.StorageKey) error
	RemoveChunks(ctx context.Context, prefix file.StorageKey, chunks []int) error
	DeleteObject(ctx context.Context, key file.StorageKey) error
	ObjectChecksum(ctx context.Context, key file.StorageKey, algorithm string) (file.Checksum, error)
}

// MultipartBlobStore is the optional capability of stores that track a
// provider-side multipart upload id. Checked by interface assertion,
// never by probing method presence at runtime.
type MultipartBlobStore interface {
	BlobStore
	CreateMultipartUpload(ctx context.Context, dest file.StorageKey, contentType string) (string, error)
	AbortMultipartUpload(ctx context.Context, dest file.StorageKey, uploadID string) error
}

// Config tunes the coordinator.
type Config struct {
	DefaultChunkSize  int64
	SessionTTL        time.Duration
	MaxRetries        int
	ChecksumAlgorithm string
	ScanEnabled       bool
	StorageProvider   string
}

func DefaultConfig() Config {
	return Config{
		DefaultChunkSize:  8 << 20,
		SessionTTL:        24 * time.Hour,
		MaxRetries:        3,
		ChecksumAlgorithm: "sha256",
		StorageProvider:   "minio",
	}
}

// Coordinator runs the upload commands. Every command is its own error
// boundary: collaborator failures come back as structured results, and
// only a detected virus crosses the boundary as an error.
type Coordinator struct {
	sessions SessionStore
	files    FileStore
	blobs    BlobStore
	scan     scanner.Scanner
	config   Config
}

func NewCoordinator(sessions SessionStore, files FileStore, blobs BlobStore, scan scanner.Scanner, config Config) *Coordinator {
	if scan == nil {
		scan = scanner.Noop{}
	}
	if config.ChecksumAlgorithm == "" {
		config.ChecksumAlgorithm = "sha256"
	}
	return &Coordinator{
		sessions: sessions,
		files:    files,
		blobs:    blobs,
		scan:     scan,
		config:   config,
	}
}

// InitRequest opens a new upload session.
type InitRequest struct {
	TenantID   string
	Filename   string
	Size       int64
	MimeType   string
	Checksum   string
	UploadType Type
	ChunkSize  int64
}

// InitUpload creates and persists a fresh session and, for stores with
// native multipart support, opens the provider-side upload.
func (c *Coordinator) InitUpload(ctx context.Context, req InitRequest) *InitResult {
	log := logger.FromContext(ctx)

	if _, err := file.NewSize(req.Size); err != nil {
		return &InitResult{Result: fail(CodeInvalidRequest, err)}
	}

	var mimeType file.MimeType
	if req.MimeType != "" {
		var err error
		mimeType, err = file.NewMimeType(req.MimeType)
		if err != nil {
			return &InitResult{Result: fail(CodeInvalidRequest, err)}
		}
	}

	var checksum file.Checksum
	if req.Checksum != "" {
		var err error
		checksum, err = file.NewChecksum(req.Checksum)
		if err != nil {
			return &InitResult{Result: fail(CodeInvalidRequest, err)}
		}
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = c.config.DefaultChunkSize
	}
	uploadType := req.UploadType
	if uploadType == "" {
		uploadType = TypeChunked
	}

	session, err := NewSession(NewSessionParams{
		TenantID:         req.TenantID,
		OriginalFilename: req.Filename,
		ExpectedSize:     req.Size,
		ExpectedMimeType: mimeType,
		ExpectedChecksum: checksum,
		UploadType:       uploadType,
		StorageProvider:  c.config.StorageProvider,
		ChunkSize:        chunkSize,
		TTL:              c.config.SessionTTL,
		MaxRetries:       c.config.MaxRetries,
	})
	if err != nil {
		return &InitResult{Result: fail(CodeInvalidRequest, err)}
	}

	if multipart, ok := c.blobs.(MultipartBlobStore); ok && uploadType == TypeMultipart {
		uploadID, err := multipart.CreateMultipartUpload(ctx, c.finalKey(session), mimeType.BaseType())
		if err != nil {
			return &InitResult{Result: fail(CodeStorageFailed, err)}
		}
		session.StorageUploadID = uploadID
	}

	if err := c.sessions.Create(ctx, session); err != nil {
		return &InitResult{Result: fail(CodePersistenceFailed, err)}
	}

	log.Info("upload session created",
		slog.String("session_id", session.ID.String()),
		slog.String("tenant_id", session.TenantID),
		slog.Int("total_chunks", session.TotalChunks),
		slog.Int64("expected_size", session.ExpectedSize),
	)
	recordSessionOpened(string(uploadType))

	return &InitResult{Result: ok(), Session: session}
}

// ChunkRequest uploads one chunk body into a session.
type ChunkRequest struct {
	SessionID string
	Number    int
	Data      []byte
	Checksum  string
}

// UploadChunk validates liveness, range and integrity before touching
// storage. Re-upload of an identical chunk is an idempotent success:
// client retries after ambiguous network failures must not corrupt
// progress accounting.
func (c *Coordinator) UploadChunk(ctx context.Context, req ChunkRequest) *ChunkResult {
	log := logger.FromContext(ctx)

	sessionID, err := file.ParseUploadSessionID(req.SessionID)
	if err != nil {
		return &ChunkResult{Result: fail(CodeInvalidRequest, err)}
	}

	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return &ChunkResult{Result: fail(CodeSessionNotFound, err)}
		}
		return &ChunkResult{Result: fail(CodePersistenceFailed, err)}
	}

	if session.IsExpired(time.Now()) {
		c.expireBestEffort(ctx, session)
		return &ChunkResult{Result: fail(CodeSessionExpired, ErrSessionExpired)}
	}
	// Completed sessions are let through to the HasChunk check below so
	// that a retry of an already-recorded chunk (lost ACK on the final
	// chunk) stays idempotent.
	if session.Status != StatusInitialized && session.Status != StatusInProgress &&
		session.Status != StatusCompleted {
		return &ChunkResult{Result: fail(CodeInvalidTransition,
			fmt.Errorf("%w: cannot add chunk in %s", ErrInvalidTransition, session.Status))}
	}
	if req.Number < 1 || (session.TotalChunks > 0 && req.Number > session.TotalChunks) {
		return &ChunkResult{Result: fail(CodeInvalidChunk,
			fmt.Errorf("%w: chunk number %d out of range", ErrInvalidChunk, req.Number))}
	}
	if len(req.Data) == 0 {
		return &ChunkResult{Result: fail(CodeInvalidChunk,
			fmt.Errorf("%w: empty chunk body", ErrInvalidChunk))}
	}

	actual, err := crypto.HashBytes(c.config.ChecksumAlgorithm, req.Data)
	if err != nil {
		return &ChunkResult{Result: fail(CodeInvalidRequest, err)}
	}
	if req.Checksum != "" {
		expected, err := file.NewChecksum(req.Checksum)
		if err != nil {
			return &ChunkResult{Result: fail(CodeInvalidRequest, err)}
		}
		// Verify with the client's algorithm; the stored checksum keeps
		// the configured one.
		verify := actual
		if expected.Algorithm() != c.config.ChecksumAlgorithm {
			verify, err = crypto.HashBytes(expected.Algorithm(), req.Data)
			if err != nil {
				return &ChunkResult{Result: fail(CodeInvalidRequest, err)}
			}
		}
		if !expected.Equal(verify) {
			return &ChunkResult{Result: fail(CodeChecksumMismatch,
				fmt.Errorf("chunk %d checksum mismatch", req.Number))}
		}
	}

	if session.HasChunk(req.Number, int64(len(req.Data)), actual) {
		log.Debug("chunk already recorded, treating re-upload as success",
			slog.String("session_id", session.ID.String()),
			slog.Int("chunk", req.Number),
		)
		return c.chunkSuccess(session, req.Number, true)
	}

	if session.Status == StatusCompleted {
		return &ChunkResult{Result: fail(CodeInvalidTransition,
			fmt.Errorf("%w: cannot add chunk in %s", ErrInvalidTransition, session.Status))}
	}

	etag, err := c.blobs.UploadChunk(ctx, session.StorageKey, req.Number, req.Data)
	if err != nil {
		return &ChunkResult{Result: fail(CodeStorageFailed, err)}
	}

	if err := session.AddChunk(req.Number, int64(len(req.Data)), actual, etag); err != nil {
		return &ChunkResult{Result: translate(err)}
	}

	if err := c.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return &ChunkResult{Result: fail(CodeConflict, err)}
		}
		return &ChunkResult{Result: fail(CodePersistenceFailed, err)}
	}

	recordChunkAccepted(len(req.Data))
	return c.chunkSuccess(session, req.Number, false)
}

func (c *Coordinator) chunkSuccess(session *Session, number int, alreadyUploaded bool) *ChunkResult {
	return &ChunkResult{
		Result:          ok(),
		ChunkNumber:     number,
		CompletedChunks: len(session.Chunks),
		TotalChunks:     session.TotalChunks,
		Progress:        session.Progress(),
		AlreadyUploaded: alreadyUploaded,
		SessionComplete: session.Status == StatusCompleted,
	}
}

// CompleteRequest finalizes a session.
type CompleteRequest struct {
	SessionID     string
	FinalChecksum string
}

// CompleteUpload runs the finalization pipeline: chunk-set guard,
// storage assembly, integrity verification, virus scan, metadata
// persistence, then best-effort chunk cleanup. Every failure leg comes
// back as a structured result except a detected virus, which deletes
// the assembled artifact and returns *VirusDetectedError.
func (c *Coordinator) CompleteUpload(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	log := logger.FromContext(ctx)

	sessionID, err := file.ParseUploadSessionID(req.SessionID)
	if err != nil {
		return &CompleteResult{Result: fail(CodeInvalidRequest, err)}, nil
	}

	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return &CompleteResult{Result: fail(CodeSessionNotFound, err)}, nil
		}
		return &CompleteResult{Result: fail(CodePersistenceFailed, err)}, nil
	}

	if session.IsExpired(time.Now()) {
		c.expireBestEffort(ctx, session)
		return &CompleteResult{Result: fail(CodeSessionExpired, ErrSessionExpired)}, nil
	}
	if session.Status != StatusInProgress && session.Status != StatusCompleted {
		return &CompleteResult{Result: fail(CodeInvalidTransition,
			fmt.Errorf("%w: cannot complete from %s", ErrInvalidTransition, session.Status))}, nil
	}

	if missing := session.MissingChunks(); len(missing) > 0 {
		// The session stays in progress so the client can backfill.
		res := fail(CodeIncompleteUpload, &IncompleteUploadError{Missing: missing})
		return &CompleteResult{Result: res, MissingChunks: missing}, nil
	}

	finalKey := c.finalKey(session)
	if err := c.blobs.AssembleChunks(ctx, session.StorageKey, session.CompletedChunks(), finalKey); err != nil {
		c.failBestEffort(ctx, session, fmt.Sprintf("assembly failed: %v", err))
		return &CompleteResult{Result: fail(CodeAssemblyFailed, err)}, nil
	}

	expected := session.ExpectedChecksum
	if req.FinalChecksum != "" {
		expected, err = file.NewChecksum(req.FinalChecksum)
		if err != nil {
			return &CompleteResult{Result: fail(CodeInvalidRequest, err)}, nil
		}
	}
	if !expected.IsZero() {
		actual, err := c.blobs.ObjectChecksum(ctx, finalKey, expected.Algorithm())
		if err != nil {
			c.failBestEffort(ctx, session, fmt.Sprintf("checksum of assembled object failed: %v", err))
			return &CompleteResult{Result: fail(CodeStorageFailed, err)}, nil
		}
		if !expected.Equal(actual) {
			// No partial acceptance: drop the assembled object and
			// leave the session recoverable.
			if err := c.blobs.DeleteObject(ctx, finalKey); err != nil {
				log.Error("failed to delete assembled object after checksum mismatch",
					slog.String("key", finalKey.String()),
					slog.String("error", err.Error()),
				)
			}
			c.failBestEffort(ctx, session, "final checksum mismatch")
			return &CompleteResult{Result: fail(CodeIntegrityCheckFailed,
				fmt.Errorf("assembled object checksum %s does not match expected %s", actual, expected))}, nil
		}
	}

	if c.config.ScanEnabled {
		scanResult, err := c.scan.ScanObject(ctx, finalKey)
		if err != nil {
			c.failBestEffort(ctx, session, fmt.Sprintf("virus scan failed: %v", err))
			return &CompleteResult{Result: fail(CodeScanFailed, err)}, nil
		}
		if scanResult.Infected {
			// The artifact is removed before the error is raised; an
			// infected file is never left reachable.
			if err := c.blobs.DeleteObject(ctx, finalKey); err != nil {
				log.Error("failed to delete infected object",
					slog.String("key", finalKey.String()),
					slog.String("error", err.Error()),
				)
			}
			c.failBestEffort(ctx, session, fmt.Sprintf("virus detected: %s", scanResult.ThreatName))
			recordVirusDetected()
			return nil, &VirusDetectedError{
				ThreatName: scanResult.ThreatName,
				Filename:   session.OriginalFilename,
				Size:       session.UploadedSize,
			}
		}
	}

	size, err := file.NewSize(session.UploadedSize)
	if err != nil {
		return &CompleteResult{Result: fail(CodeInvalidRequest, err)}, nil
	}
	meta := &file.Metadata{
		ID:               session.TargetFileID,
		TenantID:         session.TenantID,
		OriginalFilename: session.OriginalFilename,
		Size:             size,
		MimeType:         session.ExpectedMimeType,
		Checksum:         expected,
		StorageKey:       finalKey,
		Status:           "available",
		CreatedAt:        time.Now().UTC(),
	}
	if err := c.files.Save(ctx, meta); err != nil {
		c.failBestEffort(ctx, session, fmt.Sprintf("metadata persistence failed: %v", err))
		return &CompleteResult{Result: fail(CodePersistenceFailed, err)}, nil
	}

	if err := session.CompleteUpload(); err != nil {
		return &CompleteResult{Result: translate(err)}, nil
	}
	if err := c.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return &CompleteResult{Result: fail(CodeConflict, err)}, nil
		}
		return &CompleteResult{Result: fail(CodePersistenceFailed, err)}, nil
	}

	// Chunk artifacts are garbage once assembled; losing the cleanup
	// never fails the upload.
	cleanupOK := true
	if err := c.blobs.RemoveChunks(ctx, session.StorageKey, session.CompletedChunks()); err != nil {
		cleanupOK = false
		log.Warn("chunk cleanup after completion failed",
			slog.String("session_id", session.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	log.Info("upload completed",
		slog.String("session_id", session.ID.String()),
		slog.String("file_id", meta.ID.String()),
		slog.Int64("size", session.UploadedSize),
	)
	recordSessionCompleted()

	return &CompleteResult{
		Result:           ok(),
		File:             meta,
		CleanupSucceeded: cleanupOK,
	}, nil
}

// CancelUpload transitions the session to CANCELLED and releases its
// storage artifacts. A chunk write already in flight is not interrupted;
// it fails its next state check instead.
func (c *Coordinator) CancelUpload(ctx context.Context, sessionID string) *StatusResult {
	id, err := file.ParseUploadSessionID(sessionID)
	if err != nil {
		return &StatusResult{Result: fail(CodeInvalidRequest, err)}
	}

	session, err := c.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return &StatusResult{Result: fail(CodeSessionNotFound, err)}
		}
		return &StatusResult{Result: fail(CodePersistenceFailed, err)}
	}

	if err := session.CancelUpload(); err != nil {
		return &StatusResult{Result: translate(err)}
	}
	if err := c.sessions.Update(ctx, session); err != nil {
		return &StatusResult{Result: fail(CodePersistenceFailed, err)}
	}

	if multipart, ok := c.blobs.(MultipartBlobStore); ok && session.StorageUploadID != "" {
		if err := multipart.AbortMultipartUpload(ctx, c.finalKey(session), session.StorageUploadID); err != nil {
			logger.FromContext(ctx).Warn("failed to abort provider multipart upload",
				slog.String("session_id", session.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := c.blobs.RemoveChunks(ctx, session.StorageKey, session.CompletedChunks()); err != nil {
		logger.FromContext(ctx).Warn("failed to remove chunks of cancelled session",
			slog.String("session_id", session.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	return c.statusResult(session)
}

// RetryUpload moves a failed session back to IN_PROGRESS while retries
// remain.
func (c *Coordinator) RetryUpload(ctx context.Context, sessionID string) *StatusResult {
	id, err := file.ParseUploadSessionID(sessionID)
	if err != nil {
		return &StatusResult{Result: fail(CodeInvalidRequest, err)}
	}

	session, err := c.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return &StatusResult{Result: fail(CodeSessionNotFound, err)}
		}
		return &StatusResult{Result: fail(CodePersistenceFailed, err)}
	}

	if err := session.RetryUpload(); err != nil {
		return &StatusResult{Result: translate(err)}
	}
	if err := c.sessions.Update(ctx, session); err != nil {
		return &StatusResult{Result: fail(CodePersistenceFailed, err)}
	}
	return c.statusResult(session)
}

// Status reports progress and the missing-chunk backfill list.
func (c *Coordinator) Status(ctx context.Context, sessionID string) *StatusResult {
	id, err := file.ParseUploadSessionID(sessionID)
	if err != nil {
		return &StatusResult{Result: fail(CodeInvalidRequest, err)}
	}

	session, err := c.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return &StatusResult{Result: fail(CodeSessionNotFound, err)}
		}
		return &StatusResult{Result: fail(CodePersistenceFailed, err)}
	}

	if session.IsExpired(time.Now()) && !session.Status.IsTerminal() {
		c.expireBestEffort(ctx, session)
	}
	return c.statusResult(session)
}

func (c *Coordinator) statusResult(session *Session) *StatusResult {
	return &StatusResult{
		Result:          ok(),
		SessionID:       session.ID.String(),
		Status:          session.Status,
		UploadedSize:    session.UploadedSize,
		ExpectedSize:    session.ExpectedSize,
		CompletedChunks: len(session.Chunks),
		TotalChunks:     session.TotalChunks,
		MissingChunks:   session.MissingChunks(),
		Progress:        session.Progress(),
		ExpiresAt:       session.ExpiresAt,
	}
}

// finalKey is where the assembled object lands.
func (c *Coordinator) finalKey(session *Session) file.StorageKey {
	key, err := file.NewStorageKey(fmt.Sprintf("files/%s/%s", session.TenantID, session.TargetFileID))
	if err != nil {
		// TenantID was storage-safe at session creation; a failure here
		// means the stored session was tampered with.
		panic(fmt.Sprintf("invalid final key for session %s: %v", session.ID, err))
	}
	return key
}

func (c *Coordinator) expireBestEffort(ctx context.Context, session *Session) {
	if session.Status.IsTerminal() {
		return
	}
	if err := session.MarkExpired(); err != nil {
		return
	}
	if err := c.sessions.Update(ctx, session); err != nil {
		logger.FromContext(ctx).Warn("failed to persist session expiry",
			slog.String("session_id", session.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Coordinator) failBestEffort(ctx context.Context, session *Session, reason string) {
	if err := session.FailUpload(reason); err != nil {
		return
	}
	if err := c.sessions.Update(ctx, session); err != nil {
		logger.FromContext(ctx).Warn("failed to persist session failure",
			slog.String("session_id", session.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func translate(err error) Result {
	switch {
	case errors.Is(err, ErrSessionExpired):
		return fail(CodeSessionExpired, err)
	case errors.Is(err, ErrInvalidChunk):
		return fail(CodeInvalidChunk, err)
	case errors.Is(err, ErrRetriesExhausted):
		return fail(CodeRetriesExhausted, err)
	case errors.Is(err, ErrInvalidTransition):
		return fail(CodeInvalidTransition, err)
	default:
		var incomplete *IncompleteUploadError
		if errors.As(err, &incomplete) {
			return fail(CodeIncompleteUpload, err)
		}
		return fail(CodePersistenceFailed, err)
	}
}
