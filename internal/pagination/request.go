package pagination

import (
	"fmt"
	"maps"
)

const (
	// MaxPerPage caps page sizes for both strategies.
	MaxPerPage = 1000
)

// OffsetRequest describes one offset-paginated query. Constructed once
// per request and never mutated; With* methods return copies.
type OffsetRequest struct {
	page        int
	perPage     int
	sortFields  []SortField
	filters     map[string]any
	searchQuery string
}

func NewOffsetRequest(page, perPage int) (OffsetRequest, error) {
	if page < 1 {
		return OffsetRequest{}, fmt.Errorf("page must be at least 1, got %d", page)
	}
	if perPage < 1 || perPage > MaxPerPage {
		return OffsetRequest{}, fmt.Errorf("per_page must be between 1 and %d, got %d", MaxPerPage, perPage)
	}
	return OffsetRequest{page: page, perPage: perPage}, nil
}

func (r OffsetRequest) Page() int { return r.page }

func (r OffsetRequest) PerPage() int { return r.perPage }

// Offset is the derived row offset: (page-1)*per_page.
func (r OffsetRequest) Offset() int { return (r.page - 1) * r.perPage }

func (r OffsetRequest) Limit() int { return r.perPage }

func (r OffsetRequest) SortFields() []SortField { return r.sortFields }

func (r OffsetRequest) Filters() map[string]any { return r.filters }

func (r OffsetRequest) SearchQuery() string { return r.searchQuery }

func (r OffsetRequest) WithSortFields(fields ...SortField) OffsetRequest {
	r.sortFields = append([]SortField(nil), fields...)
	return r
}

func (r OffsetRequest) WithFilters(filters map[string]any) OffsetRequest {
	r.filters = maps.Clone(filters)
	return r
}

func (r OffsetRequest) WithSearchQuery(q string) OffsetRequest {
	r.searchQuery = q
	return r
}

// CursorRequest describes one cursor-paginated query. CursorAfter and
// CursorBefore are opaque tokens and mutually exclusive.
type CursorRequest struct {
	limit        int
	cursorAfter  string
	cursorBefore string
	sortFields   []SortField
	filters      map[string]any
}

func NewCursorRequest(limit int, after, before string) (CursorRequest, error) {
	if limit < 1 || limit > MaxPerPage {
		return CursorRequest{}, fmt.Errorf("limit must be between 1 and %d, got %d", MaxPerPage, limit)
	}
	if after != "" && before != "" {
		return CursorRequest{}, fmt.Errorf("cursor_after and cursor_before are mutually exclusive")
	}
	return CursorRequest{limit: limit, cursorAfter: after, cursorBefore: before}, nil
}

func (r CursorRequest) Limit() int { return r.limit }

func (r CursorRequest) CursorAfter() string { return r.cursorAfter }

func (r CursorRequest) CursorBefore() string { return r.cursorBefore }

func (r CursorRequest) SortFields() []SortField { return r.sortFields }

func (r CursorRequest) Filters() map[string]any { return r.filters }

func (r CursorRequest) WithSortFields(fields ...SortField) CursorRequest {
	r.sortFields = append([]SortField(nil), fields...)
	return r
}

func (r CursorRequest) WithFilters(filters map[string]any) CursorRequest {
	r.filters = maps.Clone(filters)
	return r
}
