package types

import (
	"time"

	"github.com/filedepot/filedepot/internal/domain/file"
	"github.com/filedepot/filedepot/internal/pagination"
)

type FileResponse struct {
	FileID    string    `json:"file_id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	MimeType  string    `json:"mime_type,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func NewFileResponse(meta file.Metadata) FileResponse {
	return FileResponse{
		FileID:    meta.ID.String(),
		Filename:  meta.OriginalFilename,
		Size:      meta.Size.Bytes(),
		SizeHuman: meta.Size.Human(),
		MimeType:  meta.MimeType.String(),
		Checksum:  meta.Checksum.String(),
		Category:  string(meta.MimeType.Category()),
		Status:    meta.Status,
		CreatedAt: meta.CreatedAt,
	}
}

// FileListResponse is the offset-paginated listing. Total is -1 when
// counting was skipped or timed out; clients fall back to has_next.
type FileListResponse struct {
	Items      []FileResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
	HasNext    bool           `json:"has_next"`
	HasPrev    bool           `json:"has_prev"`
	Estimated  bool           `json:"estimated,omitempty"`
}

func NewFileListResponse(res *pagination.OffsetResponse[file.Metadata]) FileListResponse {
	items := make([]FileResponse, len(res.Items))
	for i, meta := range res.Items {
		items[i] = NewFileResponse(meta)
	}
	return FileListResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalPages: res.TotalPages(),
		HasNext:    res.HasNext(),
		HasPrev:    res.HasPrev(),
		Estimated:  res.Metadata.EstimatedTotal,
	}
}

// FileCursorListResponse is the cursor-paginated listing for deep
// scans.
type FileCursorListResponse struct {
	Items      []FileResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	PrevCursor string         `json:"prev_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

func NewFileCursorListResponse(res *pagination.CursorResponse[file.Metadata]) FileCursorListResponse {
	items := make([]FileResponse, len(res.Items))
	for i, meta := range res.Items {
		items[i] = NewFileResponse(meta)
	}
	return FileCursorListResponse{
		Items:      items,
		NextCursor: res.NextCursor,
		PrevCursor: res.PrevCursor,
		HasMore:    res.HasMore,
	}
}
