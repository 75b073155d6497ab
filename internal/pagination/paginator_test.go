package pagination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		perPage int
		wantErr bool
	}{
		{"valid", 1, 20, false},
		{"max per page", 3, 1000, false},
		{"zero page", 0, 20, true},
		{"negative page", -1, 20, true},
		{"zero per page", 1, 0, true},
		{"per page over max", 1, 1001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOffsetRequest(tt.page, tt.perPage)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOffsetRequestDerived(t *testing.T) {
	req, err := NewOffsetRequest(3, 20)
	require.NoError(t, err)

	assert.Equal(t, 40, req.Offset())
	assert.Equal(t, 20, req.Limit())
}

func TestOffsetResponseNavigation(t *testing.T) {
	// 55 rows at 20 per page: page 3 is the last page.
	resp := &OffsetResponse[testItem]{
		Items:   make([]testItem, 15),
		Total:   55,
		Page:    3,
		PerPage: 20,
	}

	assert.Equal(t, 3, resp.TotalPages())
	assert.False(t, resp.HasNext())
	assert.True(t, resp.HasPrev())
	assert.Equal(t, 40, resp.Offset())
}

func TestOffsetResponseInvariants(t *testing.T) {
	for _, tc := range []struct {
		page     int
		perPage  int
		total    int64
		hasNext  bool
		hasPrev  bool
	}{
		{1, 20, 0, false, false},
		{1, 20, 20, false, false},
		{1, 20, 21, true, false},
		{2, 20, 21, false, true},
		{5, 10, 100, true, true},
		{10, 10, 100, false, true},
	} {
		resp := &OffsetResponse[testItem]{Page: tc.page, PerPage: tc.perPage, Total: tc.total}
		assert.Equal(t, tc.hasNext, resp.HasNext(), "page=%d total=%d", tc.page, tc.total)
		assert.Equal(t, tc.hasPrev, resp.HasPrev(), "page=%d total=%d", tc.page, tc.total)
		assert.Equal(t, (tc.page-1)*tc.perPage, resp.Offset())
	}
}

func TestSortFieldValidation(t *testing.T) {
	valid, err := NewSortField("created_at", Desc)
	require.NoError(t, err)
	assert.Equal(t, "created_at DESC NULLS LAST", valid.render())

	qualified, err := NewSortField("files.name", Asc)
	require.NoError(t, err)
	assert.Equal(t, "files.name ASC NULLS LAST", qualified.render())

	first, err := NewSortField("name", Asc)
	require.NoError(t, err)
	assert.Equal(t, "name ASC NULLS FIRST", first.WithNullsFirst().render())

	_, err = NewSortField("name; DROP TABLE files", Asc)
	require.Error(t, err)

	_, err = NewSortField("name", SortOrder("SIDEWAYS"))
	require.Error(t, err)
}

func TestFindPaginatedBuildsBoundedQuery(t *testing.T) {
	db := &fakeQueryer{rows: makeRows(5, 1), countValue: 55}
	p := NewPaginator[testItem](db, NewMemoryCountCache(8), Config{CountCacheTTL: time.Minute})

	req, err := NewOffsetRequest(3, 20)
	require.NoError(t, err)
	sf, err := NewSortField("id", Asc)
	require.NoError(t, err)
	req = req.WithSortFields(sf)

	resp, err := p.FindPaginated(context.Background(), req,
		"SELECT id, name FROM files WHERE tenant = $1",
		"SELECT COUNT(*) FROM files WHERE tenant = $1",
		[]any{"acme"}, testMapper)
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM files WHERE tenant = $1 ORDER BY id ASC NULLS LAST LIMIT 20 OFFSET 40", db.queries[0])
	assert.Len(t, resp.Items, 5)
	assert.Equal(t, int64(55), resp.Total)
	assert.Equal(t, 3, resp.TotalPages())
	assert.False(t, resp.HasNext())
	assert.True(t, resp.HasPrev())
	assert.False(t, resp.Metadata.CacheHit)
}

func TestFindPaginatedEchoesIndexHint(t *testing.T) {
	db := &fakeQueryer{rows: makeRows(2, 1), countValue: 2}
	p := NewPaginator[testItem](db, NewMemoryCountCache(8), Config{IndexHint: "idx_files_tenant_id"})

	req, err := NewOffsetRequest(1, 10)
	require.NoError(t, err)

	resp, err := p.FindPaginated(context.Background(), req,
		"SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err)
	assert.Equal(t, "idx_files_tenant_id", resp.Metadata.IndexUsed)

	cursorReq, err := NewCursorRequest(10, "", "")
	require.NoError(t, err)
	cursorResp, err := p.FindCursorPaginated(context.Background(), cursorReq,
		"SELECT id, name FROM files WHERE true", "id", nil,
		testMapper, func(item testItem) any { return item.ID })
	require.NoError(t, err)
	assert.Equal(t, "idx_files_tenant_id", cursorResp.Metadata.IndexUsed)
}

func TestFindPaginatedCountCacheReuse(t *testing.T) {
	db := &fakeQueryer{rows: makeRows(3, 1), countValue: 3}
	p := NewPaginator[testItem](db, NewMemoryCountCache(8), Config{CountCacheTTL: time.Minute})

	req, err := NewOffsetRequest(1, 10)
	require.NoError(t, err)

	_, err = p.FindPaginated(context.Background(), req, "SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err)
	require.Equal(t, 1, db.countCalls)

	resp, err := p.FindPaginated(context.Background(), req, "SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err)

	assert.Equal(t, 1, db.countCalls, "cached count must not re-execute")
	assert.True(t, resp.Metadata.CacheHit)
	assert.True(t, resp.Metadata.EstimatedTotal)
	assert.Equal(t, int64(3), resp.Total)
}

func TestFindPaginatedCountCacheExpiry(t *testing.T) {
	cache := NewMemoryCountCache(8)
	now := time.Now()
	cache.now = func() time.Time { return now }

	db := &fakeQueryer{rows: makeRows(3, 1), countValue: 3}
	p := NewPaginator[testItem](db, cache, Config{CountCacheTTL: 10 * time.Second})

	req, err := NewOffsetRequest(1, 10)
	require.NoError(t, err)

	_, err = p.FindPaginated(context.Background(), req, "SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err)
	require.Equal(t, 1, db.countCalls)

	// Entry older than the TTL is not reused.
	now = now.Add(11 * time.Second)

	_, err = p.FindPaginated(context.Background(), req, "SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err)
	assert.Equal(t, 2, db.countCalls)
}

func TestFindPaginatedLazyCountSkip(t *testing.T) {
	db := &fakeQueryer{rows: makeRows(10, 1), countValue: 99}
	p := NewPaginator[testItem](db, NewMemoryCountCache(8), Config{
		LazyCountEnabled:        true,
		LazyCountThresholdPages: 50,
	})

	req, err := NewOffsetRequest(51, 10)
	require.NoError(t, err)

	resp, err := p.FindPaginated(context.Background(), req, "SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err)

	assert.Equal(t, 0, db.countCalls, "deep pages skip the count entirely")
	assert.Equal(t, TotalUnknown, resp.Total)
	assert.True(t, resp.Metadata.CountSkipped)
	assert.True(t, resp.Metadata.EstimatedTotal)
	assert.True(t, resp.HasNext(), "a full page implies more rows when the total is unknown")
}

func TestFindPaginatedCountTimeoutSkips(t *testing.T) {
	db := &fakeQueryer{rows: makeRows(2, 1), countErr: context.DeadlineExceeded}
	p := NewPaginator[testItem](db, NewMemoryCountCache(8), Config{MaxCountTime: time.Millisecond})

	req, err := NewOffsetRequest(1, 10)
	require.NoError(t, err)

	resp, err := p.FindPaginated(context.Background(), req, "SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err, "count timeout never fails the primary query")

	assert.Equal(t, TotalUnknown, resp.Total)
	assert.True(t, resp.Metadata.CountSkipped)
	assert.Len(t, resp.Items, 2)
}

func TestFindPaginatedQueryErrorPropagates(t *testing.T) {
	wantErr := errors.New("relation does not exist")
	db := &fakeQueryer{queryErr: wantErr}
	p := NewPaginator[testItem](db, nil, Config{})

	req, err := NewOffsetRequest(1, 10)
	require.NoError(t, err)

	_, err = p.FindPaginated(context.Background(), req, "SELECT id, name FROM nope", "SELECT COUNT(*) FROM nope", nil, testMapper)
	require.ErrorIs(t, err, wantErr)
}

func TestClearCountCache(t *testing.T) {
	db := &fakeQueryer{rows: makeRows(1, 1), countValue: 1}
	p := NewPaginator[testItem](db, NewMemoryCountCache(8), Config{CountCacheTTL: time.Minute})

	req, err := NewOffsetRequest(1, 10)
	require.NoError(t, err)

	_, err = p.FindPaginated(context.Background(), req, "SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err)
	require.Equal(t, 1, db.countCalls)

	removed := p.ClearCountCache("files")
	assert.Equal(t, 1, removed)

	_, err = p.FindPaginated(context.Background(), req, "SELECT id, name FROM files", "SELECT COUNT(*) FROM files", nil, testMapper)
	require.NoError(t, err)
	assert.Equal(t, 2, db.countCalls)
}
