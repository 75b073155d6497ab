package pagination

// Metadata carries per-request pagination telemetry. It is built fresh
// for every query and never persisted.
//
// When EstimatedTotal is set the reported total is a hint, not ground
// truth: the count was served stale from cache, skipped past the lazy
// threshold, or abandoned on timeout. Callers that need an exact total
// must re-query with counting forced.
type Metadata struct {
	QueryDurationMS int64  `json:"query_duration_ms"`
	CountDurationMS int64  `json:"count_duration_ms"`
	TotalDurationMS int64  `json:"total_duration_ms"`
	IndexUsed       string `json:"index_used,omitempty"`
	EstimatedTotal  bool   `json:"estimated_total"`
	CacheHit        bool   `json:"cache_hit"`
	CountSkipped    bool   `json:"count_skipped"`
}
