package upload

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSessionNotFound   = errors.New("upload session not found")
	ErrSessionExpired    = errors.New("upload session expired")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrInvalidChunk      = errors.New("invalid chunk")
	ErrRetriesExhausted  = errors.New("retry limit reached")

	// ErrVersionConflict is returned by session stores when a
	// compare-and-swap update loses to a concurrent writer.
	ErrVersionConflict = errors.New("session version conflict")
)

// Error codes reported at the command boundary.
const (
	CodeSessionNotFound      = "SessionNotFound"
	CodeSessionExpired       = "SessionExpired"
	CodeInvalidRequest       = "InvalidRequest"
	CodeInvalidChunk         = "InvalidChunk"
	CodeChecksumMismatch     = "ChecksumMismatch"
	CodeIncompleteUpload     = "IncompleteUpload"
	CodeAssemblyFailed       = "AssemblyFailed"
	CodeIntegrityCheckFailed = "IntegrityCheckFailed"
	CodeStorageFailed        = "StorageFailed"
	CodePersistenceFailed    = "PersistenceFailed"
	CodeScanFailed           = "ScanFailed"
	CodeConflict             = "Conflict"
	CodeInvalidTransition    = "InvalidTransition"
	CodeRetriesExhausted     = "RetriesExhausted"
)

// IncompleteUploadError reports which chunks are still missing so the
// client can backfill exactly those.
type IncompleteUploadError struct {
	Missing []int
}

func (e *IncompleteUploadError) Error() string {
	missing := append([]int(nil), e.Missing...)
	sort.Ints(missing)
	parts := make([]string, len(missing))
	for i, n := range missing {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("upload incomplete, missing chunks: %s", strings.Join(parts, ", "))
}

// VirusDetectedError is the one error that crosses the command boundary
// as an error: callers must apply security handling (quarantine,
// alerting) and generic error translation must not swallow it. The
// offending artifact is always deleted before this is returned.
type VirusDetectedError struct {
	ThreatName string
	Filename   string
	Size       int64
}

func (e *VirusDetectedError) Error() string {
	return fmt.Sprintf("virus %q detected in %q (%d bytes)", e.ThreatName, e.Filename, e.Size)
}
