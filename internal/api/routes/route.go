package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/filedepot/filedepot/internal/api/handlers"
	"github.com/filedepot/filedepot/internal/middleware"
)

// UploadRoutes wires the upload session lifecycle.
func UploadRoutes(uploadHandler *handlers.UploadHandler) chi.Router {
	r := chi.NewRouter()

	r.With(middleware.UploadInitLimiter()).Post("/", uploadHandler.InitUpload)
	r.With(middleware.ChunkUploadLimiter()).Put("/{sessionID}/chunks/{chunkNumber}", uploadHandler.UploadChunk)
	r.With(middleware.UploadFinalizeLimiter()).Post("/{sessionID}/complete", uploadHandler.CompleteUpload)
	r.With(middleware.StatusLimiter()).Get("/{sessionID}", uploadHandler.UploadStatus)
	r.With(middleware.UploadFinalizeLimiter()).Post("/{sessionID}/retry", uploadHandler.RetryUpload)
	r.With(middleware.StatusLimiter()).Delete("/{sessionID}", uploadHandler.CancelUpload)

	return r
}

// FileRoutes wires metadata listing and download.
func FileRoutes(fileHandler *handlers.FileHandler) chi.Router {
	r := chi.NewRouter()

	r.With(middleware.StatusLimiter()).Get("/", fileHandler.ListFiles)
	r.With(middleware.StatusLimiter()).Get("/{fileID}", fileHandler.GetFile)
	r.With(middleware.DownloadLimiter()).Get("/{fileID}/content", fileHandler.DownloadFile)

	return r
}
