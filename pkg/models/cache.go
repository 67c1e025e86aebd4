package models

import "time"

// AnalysisResult is the structured payload extracted from an analysis response.
// Its schema belongs to the call site; the cache stores it verbatim.
type AnalysisResult map[string]any

// String returns the string value stored under key, or "".
func (r AnalysisResult) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Strings returns the string items of the list stored under key.
// Non-string items are skipped.
func (r AnalysisResult) Strings(key string) []string {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy of r. Nested maps and lists are copied; other
// values are JSON scalars and are shared as is.
func (r AnalysisResult) Clone() AnalysisResult {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case AnalysisResult:
		return t.Clone()
	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = cloneValue(e)
		}
		return l
	default:
		return v
	}
}

// CacheEntry stores a cached analysis result.
type CacheEntry struct {
	Fingerprint string         `json:"fingerprint"`
	Result      AnalysisResult `json:"result"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Backend string `json:"backend"`
	Entries int64  `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Corrupt int64  `json:"corrupt"`
}
