package models

import "time"

// Platform identifies where a piece of content is hosted
type Platform string

const (
	PlatformWeb       Platform = "web"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

// Content categories select which scoring rubric applies downstream
const (
	CategoryForum  = "forum"
	CategoryVideo  = "video"
	CategoryDeal   = "deal"
	CategoryGossip = "gossip"
	CategoryNews   = "news"
)

// SourceQuery is a recurring search directive processed by the orchestrator
type SourceQuery struct {
	ID       string        `json:"id"`
	Query    string        `json:"query"`
	Site     string        `json:"site,omitempty"` // optional site: restriction
	Category string        `json:"category"`
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
}

// RawSearchResult is one unprocessed hit from the search provider,
// kept for audit/replay only
type RawSearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Rank    int    `json:"rank"`
	Raw     []byte `json:"raw,omitempty"`
}

// ContentItem is the canonical deduplicated unit of content.
// ContentHash is globally unique: two items with the same hash are the
// same content and must never both exist.
type ContentItem struct {
	ID            string     `json:"id"`
	CanonicalURL  string     `json:"canonical_url"`
	NormalizedURL string     `json:"normalized_url"`
	ContentHash   string     `json:"content_hash"`
	Title         string     `json:"title"`
	Text          string     `json:"text"`
	Summary       string     `json:"summary,omitempty"`
	Entities      []string   `json:"entities,omitempty"`
	Category      string     `json:"category"`
	City          string     `json:"city,omitempty"`
	Platform      Platform   `json:"platform"`
	VideoID       string     `json:"video_id,omitempty"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	FetchedAt     time.Time  `json:"fetched_at"`

	Views int `json:"views"`
	Saves int `json:"saves"`

	// FinalScore is always a deterministic function of the three
	// sub-scores and is recomputed whenever any of them changes.
	SearchRankScore float64 `json:"search_rank_score"`
	FreshnessScore  float64 `json:"freshness_score"`
	EngagementScore float64 `json:"engagement_score"`
	FinalScore      float64 `json:"final_score"`
}

// DealItem is the deal-type content unit with its richer scoring model
type DealItem struct {
	ID           string     `json:"id"`
	CanonicalURL string     `json:"canonical_url"`
	ContentHash  string     `json:"content_hash"`
	Title        string     `json:"title"`
	Text         string     `json:"text"`
	Category     string     `json:"category"` // e.g. "food-fast", "retail-family", "bank"
	BaseScore    float64    `json:"base_score"`
	Score        float64    `json:"score"`        // domain-trust-adjusted, capped at 1.0
	LocaleScore  float64    `json:"locale_score"` // redeemability for the target audience
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

// RunReport summarizes one orchestrator pass
type RunReport struct {
	StartedAt      time.Time `json:"started_at"`
	Duration       string    `json:"duration"`
	QueriesTotal   int       `json:"queries_total"`
	QueriesSkipped int       `json:"queries_skipped"` // lock contention or budget exhausted at entry
	ItemsInserted  int       `json:"items_inserted"`
	ItemsUpdated   int       `json:"items_updated"`
	Duplicates     int       `json:"duplicates"`
	ErrorCount     int       `json:"error_count"`
}
