package models

import "time"

// UsageRecord tracks a single analysis call, served from cache or not.
type UsageRecord struct {
	ID               int64     `json:"id"`
	RequestID        string    `json:"request_id"`
	Task             string    `json:"task"`
	Fingerprint      string    `json:"fingerprint"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptChars      int       `json:"prompt_chars"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CacheHit         bool      `json:"cache_hit"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates usage per task.
type UsageSummary struct {
	Task        string `json:"task"`
	Calls       int    `json:"calls"`
	CacheHits   int    `json:"cache_hits"`
	PromptChars int    `json:"prompt_chars"`
	TotalTokens int    `json:"total_tokens"`
}
