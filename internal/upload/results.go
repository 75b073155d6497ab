package upload

import (
	"time"

	"github.com/filedepot/filedepot/internal/domain/file"
)

// Result is the structured outcome every command reports. Collaborator
// failures never leak as raw Go errors across this boundary; they are
// translated to an error code plus message. The single exception is
// *VirusDetectedError, which CompleteUpload returns as an error.
type Result struct {
	Success      bool   `json:"success"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func ok() Result {
	return Result{Success: true}
}

func fail(code string, err error) Result {
	return Result{Success: false, ErrorCode: code, ErrorMessage: err.Error()}
}

// InitResult reports a freshly opened session.
type InitResult struct {
	Result
	Session *Session `json:"session,omitempty"`
}

// ChunkResult reports a single chunk acceptance. AlreadyUploaded is set
// when an identical chunk was already recorded and the upload was a
// no-op.
type ChunkResult struct {
	Result
	ChunkNumber     int     `json:"chunk_number"`
	CompletedChunks int     `json:"completed_chunks"`
	TotalChunks     int     `json:"total_chunks"`
	Progress        float64 `json:"progress"`
	AlreadyUploaded bool    `json:"already_uploaded"`
	SessionComplete bool    `json:"session_complete"`
}

// CompleteResult reports finalization. CleanupSucceeded is advisory:
// leftover chunk artifacts are swept later and never fail the upload.
type CompleteResult struct {
	Result
	File             *file.Metadata `json:"file,omitempty"`
	MissingChunks    []int          `json:"missing_chunks,omitempty"`
	CleanupSucceeded bool           `json:"cleanup_succeeded"`
}

// StatusResult is the progress snapshot of a session.
type StatusResult struct {
	Result
	SessionID       string    `json:"session_id"`
	Status          Status    `json:"status"`
	UploadedSize    int64     `json:"uploaded_size"`
	ExpectedSize    int64     `json:"expected_size"`
	CompletedChunks int       `json:"completed_chunks"`
	TotalChunks     int       `json:"total_chunks"`
	MissingChunks   []int     `json:"missing_chunks,omitempty"`
	Progress        float64   `json:"progress"`
	ExpiresAt       time.Time `json:"expires_at"`
}
