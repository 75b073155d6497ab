package types

import (
	"time"

	"github.com/filedepot/filedepot/internal/upload"
)

type InitUploadRequest struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type,omitempty"`
	Checksum   string `json:"checksum,omitempty"`
	UploadType string `json:"upload_type,omitempty"`
	ChunkSize  int64  `json:"chunk_size,omitempty"`
}

type SessionResponse struct {
	SessionID   string    `json:"session_id"`
	Status      string    `json:"status"`
	TotalChunks int       `json:"total_chunks"`
	ChunkSize   int64     `json:"chunk_size"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func NewSessionResponse(s *upload.Session) SessionResponse {
	return SessionResponse{
		SessionID:   s.ID.String(),
		Status:      string(s.Status),
		TotalChunks: s.TotalChunks,
		ChunkSize:   s.ChunkSize,
		ExpiresAt:   s.ExpiresAt,
	}
}

type ChunkUploadResponse struct {
	ChunkNumber     int     `json:"chunk_number"`
	CompletedChunks int     `json:"completed_chunks"`
	TotalChunks     int     `json:"total_chunks"`
	Progress        float64 `json:"progress"`
	AlreadyUploaded bool    `json:"already_uploaded"`
	SessionComplete bool    `json:"session_complete"`
}

type CompleteUploadRequest struct {
	Checksum string `json:"checksum,omitempty"`
}

type SessionStatusResponse struct {
	SessionID       string    `json:"session_id"`
	Status          string    `json:"status"`
	UploadedSize    int64     `json:"uploaded_size"`
	ExpectedSize    int64     `json:"expected_size"`
	CompletedChunks int       `json:"completed_chunks"`
	TotalChunks     int       `json:"total_chunks"`
	MissingChunks   []int     `json:"missing_chunks,omitempty"`
	Progress        float64   `json:"progress"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func NewSessionStatusResponse(res *upload.StatusResult) SessionStatusResponse {
	return SessionStatusResponse{
		SessionID:       res.SessionID,
		Status:          string(res.Status),
		UploadedSize:    res.UploadedSize,
		ExpectedSize:    res.ExpectedSize,
		CompletedChunks: res.CompletedChunks,
		TotalChunks:     res.TotalChunks,
		MissingChunks:   res.MissingChunks,
		Progress:        res.Progress,
		ExpiresAt:       res.ExpiresAt,
	}
}
