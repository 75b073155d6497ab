package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/filedepot/filedepot/internal/api/types"
	"github.com/filedepot/filedepot/internal/domain/file"
	"github.com/filedepot/filedepot/internal/logger"
	"github.com/filedepot/filedepot/internal/pagination"
	"github.com/filedepot/filedepot/internal/repository"
	"github.com/filedepot/filedepot/internal/utils"
)

// ObjectReader streams stored objects, whole or by range.
type ObjectReader interface {
	StreamObject(ctx context.Context, key file.StorageKey) (io.ReadCloser, error)
	StreamRange(ctx context.Context, key file.StorageKey, start, end int64) (io.ReadCloser, error)
}

type FileHandler struct {
	files *repository.FileRepository
	blobs ObjectReader
}

func NewFileHandler(files *repository.FileRepository, blobs ObjectReader) *FileHandler {
	return &FileHandler{files: files, blobs: blobs}
}

// ListFiles pages the tenant's files. With a cursor parameter the
// endpoint switches to cursor pagination; otherwise it is page/per_page.
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	query := r.URL.Query()

	if cursor := query.Get("cursor"); cursor != "" || query.Get("limit") != "" {
		limit := intParam(query.Get("limit"), 50)
		req, err := pagination.NewCursorRequest(limit, cursor, query.Get("before"))
		if err != nil {
			utils.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := h.files.ListAfter(r.Context(), tenant, req)
		if err != nil {
			if errors.Is(err, pagination.ErrInvalidCursor) {
				utils.Error(w, http.StatusBadRequest, "Invalid cursor token")
				return
			}
			logger.FromContext(r.Context()).Error("file listing failed", slog.String("error", err.Error()))
			utils.Error(w, http.StatusInternalServerError, "Failed to list files")
			return
		}
		utils.Ok(w, types.NewFileCursorListResponse(res))
		return
	}

	req, err := pagination.NewOffsetRequest(intParam(query.Get("page"), 1), intParam(query.Get("per_page"), 50))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.files.List(r.Context(), tenant, req)
	if err != nil {
		logger.FromContext(r.Context()).Error("file listing failed", slog.String("error", err.Error()))
		utils.Error(w, http.StatusInternalServerError, "Failed to list files")
		return
	}
	utils.Ok(w, types.NewFileListResponse(res))
}

func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.loadFile(w, r)
	if !ok {
		return
	}
	utils.Ok(w, types.NewFileResponse(*meta))
}

// DownloadFile streams the object body, honoring a single bytes range.
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.loadFile(w, r)
	if !ok {
		return
	}

	contentType := meta.MimeType.BaseType()
	if meta.MimeType.IsZero() {
		contentType = "application/octet-stream"
	}

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, end, err := parseByteRange(rangeHeader, meta.Size.Bytes())
		if err != nil {
			utils.Error(w, http.StatusRequestedRangeNotSatisfiable, err.Error())
			return
		}
		body, err := h.blobs.StreamRange(r.Context(), meta.StorageKey, start, end)
		if err != nil {
			utils.Error(w, http.StatusInternalServerError, "Failed to read file")
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, meta.Size.Bytes()))
		w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
		w.WriteHeader(http.StatusPartialContent)
		io.Copy(w, body)
		return
	}

	body, err := h.blobs.StreamObject(r.Context(), meta.StorageKey)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size.Bytes(), 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.OriginalFilename))
	w.Header().Set("Accept-Ranges", "bytes")
	io.Copy(w, body)
}

func (h *FileHandler) loadFile(w http.ResponseWriter, r *http.Request) (*file.Metadata, bool) {
	fileID, err := file.ParseFileID(chi.URLParam(r, "fileID"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid file ID")
		return nil, false
	}

	meta, err := h.files.Get(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			utils.Error(w, http.StatusNotFound, "File not found")
			return nil, false
		}
		logger.FromContext(r.Context()).Error("file lookup failed", slog.String("error", err.Error()))
		utils.Error(w, http.StatusInternalServerError, "Failed to load file")
		return nil, false
	}

	if meta.TenantID != tenantID(r) {
		// Cross-tenant probes get the same answer as a miss.
		utils.Error(w, http.StatusNotFound, "File not found")
		return nil, false
	}
	return meta, true
}

// parseByteRange understands "bytes=start-end" with either bound
// optional, like "bytes=0-499", "bytes=500-", "bytes=-200".
func parseByteRange(header string, size int64) (int64, int64, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, fmt.Errorf("unsupported range %q", header)
	}
	startText, endText, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed range %q", header)
	}

	if startText == "" {
		// Suffix range: the final N bytes.
		n, err := strconv.ParseInt(endText, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("malformed range %q", header)
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, err := strconv.ParseInt(startText, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, fmt.Errorf("range start out of bounds in %q", header)
	}
	end := size - 1
	if endText != "" {
		end, err = strconv.ParseInt(endText, 10, 64)
		if err != nil || end < start {
			return 0, 0, fmt.Errorf("malformed range %q", header)
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, nil
}

func intParam(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return defaultValue
}
