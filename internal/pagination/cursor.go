package pagination

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCursor marks a malformed cursor token. It is a client error:
// retrying the same token can never succeed.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// EncodeCursor builds an opaque token from a sort-key value: unpadded
// URL-safe base64 of {"field": value}. Encoding is deterministic.
func EncodeCursor(field string, value any) (string, error) {
	payload, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// DecodeCursor recovers the field/value map from a token.
func DecodeCursor(token string) (map[string]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return payload, nil
}

// CursorValue extracts the value an item contributes to its cursor.
// Cursor pagination needs this to build NextCursor from the last
// retained row.
type CursorValue[T any] func(item T) any

// FindCursorPaginated resumes a listing at an opaque cursor instead of
// an offset. It fetches limit+1 rows; the extra row only signals
// has_more and is dropped before the cursor is derived.
//
// baseQuery must end in a WHERE clause (use "WHERE true" when there is
// no filter); the cursor predicate is ANDed on with the next positional
// placeholder.
func (p *Paginator[T]) FindCursorPaginated(ctx context.Context, req CursorRequest, baseQuery, cursorField string, args []any, mapper RowMapper[T], cursorValue CursorValue[T]) (*CursorResponse[T], error) {
	recordRequest("cursor", 1)
	start := time.Now()

	if !fieldPattern.MatchString(cursorField) {
		return nil, fmt.Errorf("invalid cursor field %q", cursorField)
	}

	query := baseQuery
	queryArgs := append([]any(nil), args...)

	token := req.CursorAfter()
	comparator := ">"
	if req.CursorBefore() != "" {
		token = req.CursorBefore()
		comparator = "<"
	}
	if token != "" {
		payload, err := DecodeCursor(token)
		if err != nil {
			recordError("cursor_decode")
			return nil, err
		}
		value, ok := payload[cursorField]
		if !ok {
			recordError("cursor_decode")
			return nil, fmt.Errorf("%w: missing field %q", ErrInvalidCursor, cursorField)
		}
		query = fmt.Sprintf("%s AND %s %s $%d", query, cursorField, comparator, len(queryArgs)+1)
		queryArgs = append(queryArgs, value)
	}

	order := Asc
	if comparator == "<" {
		order = Desc
	}
	sortFields := req.SortFields()
	if len(sortFields) == 0 {
		sf, err := NewSortField(cursorField, order)
		if err != nil {
			return nil, err
		}
		sortFields = []SortField{sf}
	}

	query = fmt.Sprintf("%s%s LIMIT %d", query, renderOrderBy(sortFields), req.Limit()+1)

	queryStart := time.Now()
	items, err := p.collect(ctx, query, queryArgs, mapper)
	queryDuration := time.Since(queryStart)
	recordPhase("query", queryDuration.Seconds())
	if err != nil {
		recordError("query")
		return nil, err
	}

	hasMore := len(items) > req.Limit()
	if hasMore {
		items = items[:req.Limit()]
	}

	resp := &CursorResponse[T]{
		Items:   items,
		HasMore: hasMore,
		Metadata: Metadata{
			QueryDurationMS: queryDuration.Milliseconds(),
			TotalDurationMS: time.Since(start).Milliseconds(),
			IndexUsed:       p.config.IndexHint,
		},
	}

	if hasMore && len(items) > 0 {
		next, err := EncodeCursor(cursorField, cursorValue(items[len(items)-1]))
		if err != nil {
			return nil, err
		}
		resp.NextCursor = next
	}
	if token != "" && len(items) > 0 {
		prev, err := EncodeCursor(cursorField, cursorValue(items[0]))
		if err != nil {
			return nil, err
		}
		resp.PrevCursor = prev
	}

	return resp, nil
}

// EstimateTotal runs countQuery as an advisory total for cursor
// responses. Any failure yields nil; an estimate is never worth failing
// the listing for.
func (p *Paginator[T]) EstimateTotal(ctx context.Context, countQuery string, args []any) *int64 {
	countCtx := ctx
	if p.config.MaxCountTime > 0 {
		var cancel context.CancelFunc
		countCtx, cancel = context.WithTimeout(ctx, p.config.MaxCountTime)
		defer cancel()
	}

	var total int64
	if err := p.db.QueryRow(countCtx, countQuery, args...).Scan(&total); err != nil {
		recordError("count")
		return nil
	}
	return &total
}
