package store

import (
	"context"
	"time"

	"github.com/feedpulse/feedpulse/internal/models"
)

// ListOptions narrows article listings
type ListOptions struct {
	Category string
	City     string
	Platform models.Platform
	Limit    int
	Since    time.Time
}

// ItemStore is the contract for the persisted item tables. Uniqueness
// of content_hash and canonical_url is enforced here, at the storage
// boundary, as the second line of defense behind the dedup index.
type ItemStore interface {
	// UpsertArticle inserts a new article, or, on a content-hash or
	// canonical-URL conflict, refreshes the existing row's fetched
	// timestamp and scores only when the new occurrence scored higher.
	// Returns true when a new row was inserted.
	UpsertArticle(ctx context.Context, item *models.ContentItem) (bool, error)
	ArticleByID(ctx context.Context, id string) (*models.ContentItem, bool, error)
	ArticleByNormalizedURL(ctx context.Context, normalizedURL string) (*models.ContentItem, bool, error)
	ArticleByContentHash(ctx context.Context, hash string) (*models.ContentItem, bool, error)
	ListArticles(ctx context.Context, opts ListOptions) ([]models.ContentItem, error)
	UpdateArticleScores(ctx context.Context, id string, fetchedAt time.Time, searchRank, freshness, final float64) error
	UpdateEngagement(ctx context.Context, id string, views, saves int, engagement, final float64) error

	UpsertDeal(ctx context.Context, deal *models.DealItem) (bool, error)
	ListDeals(ctx context.Context, limit int) ([]models.DealItem, error)

	// DeleteArticlesBefore is the explicit cleanup path; nothing else
	// hard-deletes items
	DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
