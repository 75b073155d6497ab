package pagination

// TotalUnknown is reported as the total when counting was skipped.
const TotalUnknown int64 = -1

// OffsetResponse is the terminal result of an offset-paginated query.
type OffsetResponse[T any] struct {
	Items    []T      `json:"items"`
	Total    int64    `json:"total"`
	Page     int      `json:"page"`
	PerPage  int      `json:"per_page"`
	Metadata Metadata `json:"metadata"`
}

// TotalPages is ceil(total/per_page), at least 1. Unknown totals yield 0.
func (r *OffsetResponse[T]) TotalPages() int {
	if r.Total < 0 {
		return 0
	}
	if r.Total == 0 {
		return 1
	}
	return int((r.Total + int64(r.PerPage) - 1) / int64(r.PerPage))
}

func (r *OffsetResponse[T]) HasNext() bool {
	if r.Total < 0 {
		// Without a total, a full page suggests more rows.
		return len(r.Items) == r.PerPage
	}
	return r.Page < r.TotalPages()
}

func (r *OffsetResponse[T]) HasPrev() bool {
	return r.Page > 1
}

func (r *OffsetResponse[T]) Offset() int {
	return (r.Page - 1) * r.PerPage
}

// CursorResponse is the terminal result of a cursor-paginated query.
type CursorResponse[T any] struct {
	Items          []T      `json:"items"`
	NextCursor     string   `json:"next_cursor,omitempty"`
	PrevCursor     string   `json:"prev_cursor,omitempty"`
	HasMore        bool     `json:"has_more"`
	EstimatedTotal *int64   `json:"estimated_total,omitempty"`
	Metadata       Metadata `json:"metadata"`
}
