package pagination

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"
)

// Queryer is the subset of pgx used by the paginator. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RowMapper converts the current row into an item. pgx.RowToStructByName
// and friends fit this signature via pgx.RowToX adapters.
type RowMapper[T any] func(row pgx.CollectableRow) (T, error)

// Config tunes the count-query optimization. Zero values disable lazy
// counting and caching; DefaultConfig matches production defaults.
type Config struct {
	// LazyCountEnabled skips the count entirely past the threshold page.
	LazyCountEnabled        bool
	LazyCountThresholdPages int
	// MaxCountTime bounds the count query; on expiry the count is
	// skipped rather than delaying the response.
	MaxCountTime time.Duration
	// CountCacheTTL is how long a cached total stays valid.
	CountCacheTTL time.Duration
	// IndexHint names the index the paginated queries are written
	// against. Advisory only; it is echoed in response metadata so
	// slow-page reports can be matched to the expected plan.
	IndexHint string
}

func DefaultConfig() Config {
	return Config{
		LazyCountEnabled:        true,
		LazyCountThresholdPages: 100,
		MaxCountTime:            500 * time.Millisecond,
		CountCacheTTL:           30 * time.Second,
	}
}

// Paginator executes bounded queries against a Queryer and assembles
// typed responses. The item query always runs; the total count is
// best-effort and may be cached, stale, or skipped under load.
type Paginator[T any] struct {
	db     Queryer
	cache  CountCache
	config Config
}

func NewPaginator[T any](db Queryer, cache CountCache, config Config) *Paginator[T] {
	if cache == nil {
		cache = NewMemoryCountCache(256)
	}
	return &Paginator[T]{db: db, cache: cache, config: config}
}

// FindPaginated appends ordering and LIMIT/OFFSET to baseQuery, executes
// it, and resolves the total through the count optimization. baseQuery
// and countQuery must not carry their own LIMIT or OFFSET.
func (p *Paginator[T]) FindPaginated(ctx context.Context, req OffsetRequest, baseQuery, countQuery string, args []any, mapper RowMapper[T]) (*OffsetResponse[T], error) {
	recordRequest("offset", req.Page())
	start := time.Now()

	itemsQuery := fmt.Sprintf("%s%s LIMIT %d OFFSET %d",
		baseQuery, renderOrderBy(req.SortFields()), req.Limit(), req.Offset())

	queryStart := time.Now()
	items, err := p.collect(ctx, itemsQuery, args, mapper)
	queryDuration := time.Since(queryStart)
	recordPhase("query", queryDuration.Seconds())
	if err != nil {
		recordError("query")
		return nil, err
	}

	total, meta := p.resolveTotal(ctx, req, countQuery, args)
	meta.QueryDurationMS = queryDuration.Milliseconds()
	meta.TotalDurationMS = time.Since(start).Milliseconds()
	meta.IndexUsed = p.config.IndexHint

	return &OffsetResponse[T]{
		Items:    items,
		Total:    total,
		Page:     req.Page(),
		PerPage:  req.PerPage(),
		Metadata: meta,
	}, nil
}

// resolveTotal applies the count heuristics: lazy skip, cache, then a
// timeout-bounded count query.
func (p *Paginator[T]) resolveTotal(ctx context.Context, req OffsetRequest, countQuery string, args []any) (int64, Metadata) {
	var meta Metadata

	if p.config.LazyCountEnabled && req.Page() > p.config.LazyCountThresholdPages {
		meta.EstimatedTotal = true
		meta.CountSkipped = true
		return TotalUnknown, meta
	}

	key := countCacheKey(countQuery, args)
	if total, ok := p.cache.Get(key); ok {
		recordCacheLookup(true)
		meta.CacheHit = true
		meta.EstimatedTotal = true
		return total, meta
	}
	recordCacheLookup(false)

	countCtx := ctx
	if p.config.MaxCountTime > 0 {
		var cancel context.CancelFunc
		countCtx, cancel = context.WithTimeout(ctx, p.config.MaxCountTime)
		defer cancel()
	}

	countStart := time.Now()
	var total int64
	err := p.db.QueryRow(countCtx, countQuery, args...).Scan(&total)
	meta.CountDurationMS = time.Since(countStart).Milliseconds()
	recordPhase("count", time.Since(countStart).Seconds())

	if err != nil {
		// A slow count never blocks the response; the items already
		// loaded are returned with the total flagged as unknown.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			recordError("count_timeout")
			meta.EstimatedTotal = true
			meta.CountSkipped = true
			return TotalUnknown, meta
		}
		recordError("count")
		meta.EstimatedTotal = true
		meta.CountSkipped = true
		return TotalUnknown, meta
	}

	if p.config.CountCacheTTL > 0 {
		p.cache.Put(key, total, p.config.CountCacheTTL)
	}
	return total, meta
}

// ClearCountCache invalidates cached totals whose key contains pattern.
func (p *Paginator[T]) ClearCountCache(pattern string) int {
	return p.cache.ClearPattern(pattern)
}

// CacheStats exposes count-cache hit-ratio diagnostics.
func (p *Paginator[T]) CacheStats() CacheStats {
	return p.cache.Stats()
}

func (p *Paginator[T]) collect(ctx context.Context, query string, args []any, mapper RowMapper[T]) ([]T, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pagination query failed: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0, 16)
	for rows.Next() {
		item, err := mapper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to map row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pagination rows failed: %w", err)
	}
	return items, nil
}

// countCacheKey hashes the count query and its parameters so distinct
// filter sets cache separately. The raw query text is kept in the key to
// support pattern invalidation by table or fragment.
func countCacheKey(query string, args []any) string {
	h := fnv.New64a()
	fmt.Fprint(h, query)
	for _, arg := range args {
		fmt.Fprintf(h, "|%v", arg)
	}
	return fmt.Sprintf("%s#%x", query, h.Sum64())
}
