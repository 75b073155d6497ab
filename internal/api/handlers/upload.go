package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/filedepot/filedepot/internal/api/types"
	"github.com/filedepot/filedepot/internal/logger"
	"github.com/filedepot/filedepot/internal/upload"
	"github.com/filedepot/filedepot/internal/utils"
)

// maxChunkBytes bounds a single chunk body.
const maxChunkBytes = 64 << 20

type UploadHandler struct {
	coordinator *upload.Coordinator
}

func NewUploadHandler(coordinator *upload.Coordinator) *UploadHandler {
	return &UploadHandler{coordinator: coordinator}
}

func (h *UploadHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	var req types.InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	res := h.coordinator.InitUpload(r.Context(), upload.InitRequest{
		TenantID:   tenantID(r),
		Filename:   req.Filename,
		Size:       req.Size,
		MimeType:   req.MimeType,
		Checksum:   req.Checksum,
		UploadType: upload.Type(req.UploadType),
		ChunkSize:  req.ChunkSize,
	})
	if !res.Success {
		utils.Error(w, statusForCode(res.ErrorCode), res.ErrorMessage)
		return
	}

	utils.Created(w, types.NewSessionResponse(res.Session))
}

func (h *UploadHandler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	chunkNumber, err := strconv.Atoi(chi.URLParam(r, "chunkNumber"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid chunk number")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxChunkBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		utils.Error(w, http.StatusRequestEntityTooLarge, "Failed to read chunk body")
		return
	}

	res := h.coordinator.UploadChunk(r.Context(), upload.ChunkRequest{
		SessionID: chi.URLParam(r, "sessionID"),
		Number:    chunkNumber,
		Data:      data,
		Checksum:  r.Header.Get("X-Chunk-Checksum"),
	})
	if !res.Success {
		utils.Error(w, statusForCode(res.ErrorCode), res.ErrorMessage)
		return
	}

	utils.Ok(w, types.ChunkUploadResponse{
		ChunkNumber:     res.ChunkNumber,
		CompletedChunks: res.CompletedChunks,
		TotalChunks:     res.TotalChunks,
		Progress:        res.Progress,
		AlreadyUploaded: res.AlreadyUploaded,
		SessionComplete: res.SessionComplete,
	})
}

func (h *UploadHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req types.CompleteUploadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Failed to parse request body")
			return
		}
	}

	res, err := h.coordinator.CompleteUpload(r.Context(), upload.CompleteRequest{
		SessionID:     chi.URLParam(r, "sessionID"),
		FinalChecksum: req.Checksum,
	})
	if err != nil {
		// A detected virus is the one hard error the coordinator
		// raises; the client gets no file handle back.
		logger.FromContext(r.Context()).Warn("upload rejected by scanner")
		utils.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !res.Success {
		utils.Error(w, statusForCode(res.ErrorCode), res.ErrorMessage)
		return
	}

	utils.Ok(w, types.NewFileResponse(*res.File))
}

func (h *UploadHandler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	res := h.coordinator.Status(r.Context(), chi.URLParam(r, "sessionID"))
	if !res.Success {
		utils.Error(w, statusForCode(res.ErrorCode), res.ErrorMessage)
		return
	}
	utils.Ok(w, types.NewSessionStatusResponse(res))
}

func (h *UploadHandler) CancelUpload(w http.ResponseWriter, r *http.Request) {
	res := h.coordinator.CancelUpload(r.Context(), chi.URLParam(r, "sessionID"))
	if !res.Success {
		utils.Error(w, statusForCode(res.ErrorCode), res.ErrorMessage)
		return
	}
	utils.Ok(w, types.NewSessionStatusResponse(res))
}

func (h *UploadHandler) RetryUpload(w http.ResponseWriter, r *http.Request) {
	res := h.coordinator.RetryUpload(r.Context(), chi.URLParam(r, "sessionID"))
	if !res.Success {
		utils.Error(w, statusForCode(res.ErrorCode), res.ErrorMessage)
		return
	}
	utils.Ok(w, types.NewSessionStatusResponse(res))
}

func statusForCode(code string) int {
	switch code {
	case upload.CodeSessionNotFound:
		return http.StatusNotFound
	case upload.CodeSessionExpired:
		return http.StatusGone
	case upload.CodeInvalidRequest, upload.CodeInvalidChunk, upload.CodeChecksumMismatch:
		return http.StatusBadRequest
	case upload.CodeIncompleteUpload:
		return http.StatusPreconditionFailed
	case upload.CodeConflict, upload.CodeInvalidTransition, upload.CodeRetriesExhausted:
		return http.StatusConflict
	case upload.CodeIntegrityCheckFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// tenantID resolves the caller's tenant. There is no auth layer here;
// the gateway in front injects the header.
func tenantID(r *http.Request) string {
	if tenant := r.Header.Get("X-Tenant-ID"); tenant != "" {
		return tenant
	}
	return "default"
}
