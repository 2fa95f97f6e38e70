package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/feedpulse/feedpulse/internal/models"
)

// uniqueViolation is the Postgres error code for a unique-index conflict
const uniqueViolation = "23505"

// PostgresStore persists items in Postgres. The unique indexes on
// content_hash and canonical_url make a duplicate insert a no-op at
// the storage boundary regardless of what the application checked.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ItemStore = (*PostgresStore)(nil)

// NewPostgresStore opens the database and ensures the schema exists
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			canonical_url TEXT NOT NULL UNIQUE,
			normalized_url TEXT NOT NULL,
			content_hash TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			entities TEXT[] NOT NULL DEFAULT '{}',
			category TEXT NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL DEFAULT 'web',
			video_id TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ,
			fetched_at TIMESTAMPTZ NOT NULL,
			views INTEGER NOT NULL DEFAULT 0,
			saves INTEGER NOT NULL DEFAULT 0,
			search_rank_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			freshness_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			engagement_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			final_score DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_normalized_url ON articles (normalized_url)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_category_score ON articles (category, final_score DESC)`,
		`CREATE TABLE IF NOT EXISTS deals (
			id TEXT PRIMARY KEY,
			canonical_url TEXT NOT NULL UNIQUE,
			content_hash TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			base_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			locale_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			published_at TIMESTAMPTZ,
			fetched_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertArticle inserts the article. On a content-hash conflict the
// existing row keeps its identity and engagement; the fetched
// timestamp and search/freshness/final scores refresh only when the
// new occurrence scored higher. A conflict on canonical_url alone
// (same page, changed content, so a different hash) gets the same
// refresh treatment instead of surfacing the unique violation.
func (s *PostgresStore) UpsertArticle(ctx context.Context, item *models.ContentItem) (bool, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	query := `INSERT INTO articles (
			id, canonical_url, normalized_url, content_hash, title, body, summary, entities,
			category, city, platform, video_id, thumbnail_url, published_at, fetched_at,
			views, saves, search_rank_score, freshness_score, engagement_score, final_score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT (content_hash) DO UPDATE SET
			fetched_at = CASE WHEN EXCLUDED.final_score > articles.final_score
				THEN EXCLUDED.fetched_at ELSE articles.fetched_at END,
			search_rank_score = CASE WHEN EXCLUDED.final_score > articles.final_score
				THEN EXCLUDED.search_rank_score ELSE articles.search_rank_score END,
			freshness_score = CASE WHEN EXCLUDED.final_score > articles.final_score
				THEN EXCLUDED.freshness_score ELSE articles.freshness_score END,
			final_score = GREATEST(articles.final_score, EXCLUDED.final_score)
		RETURNING (xmax = 0)`

	var inserted bool
	err := s.db.QueryRowContext(ctx, query,
		item.ID, item.CanonicalURL, item.NormalizedURL, item.ContentHash,
		item.Title, item.Text, item.Summary, pq.Array(item.Entities),
		item.Category, item.City, string(item.Platform),
		item.VideoID, item.ThumbnailURL, item.PublishedAt, item.FetchedAt,
		item.Views, item.Saves, item.SearchRankScore, item.FreshnessScore,
		item.EngagementScore, item.FinalScore,
	).Scan(&inserted)
	if isUniqueViolation(err) {
		return false, s.refreshByCanonicalURL(ctx, item)
	}
	if err != nil {
		return false, fmt.Errorf("upsert article: %w", err)
	}
	return inserted, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// refreshByCanonicalURL applies the refresh-if-higher policy to the row
// already holding this canonical URL
func (s *PostgresStore) refreshByCanonicalURL(ctx context.Context, item *models.ContentItem) error {
	query := `UPDATE articles SET
			fetched_at = CASE WHEN $2 > final_score THEN $3 ELSE fetched_at END,
			search_rank_score = CASE WHEN $2 > final_score THEN $4 ELSE search_rank_score END,
			freshness_score = CASE WHEN $2 > final_score THEN $5 ELSE freshness_score END,
			final_score = GREATEST(final_score, $2)
		WHERE canonical_url = $1`

	_, err := s.db.ExecContext(ctx, query,
		item.CanonicalURL, item.FinalScore, item.FetchedAt,
		item.SearchRankScore, item.FreshnessScore)
	if err != nil {
		return fmt.Errorf("refresh article on url conflict: %w", err)
	}
	return nil
}

var articleColumns = []string{
	"id", "canonical_url", "normalized_url", "content_hash", "title", "body", "summary", "entities",
	"category", "city", "platform", "video_id", "thumbnail_url", "published_at", "fetched_at",
	"views", "saves", "search_rank_score", "freshness_score", "engagement_score", "final_score",
}

func (s *PostgresStore) scanArticle(row sq.RowScanner) (*models.ContentItem, error) {
	var item models.ContentItem
	var platform string
	var publishedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.CanonicalURL, &item.NormalizedURL, &item.ContentHash,
		&item.Title, &item.Text, &item.Summary, pq.Array(&item.Entities),
		&item.Category, &item.City, &platform,
		&item.VideoID, &item.ThumbnailURL, &publishedAt, &item.FetchedAt,
		&item.Views, &item.Saves, &item.SearchRankScore, &item.FreshnessScore,
		&item.EngagementScore, &item.FinalScore,
	)
	if err != nil {
		return nil, err
	}

	item.Platform = models.Platform(platform)
	if publishedAt.Valid {
		t := publishedAt.Time
		item.PublishedAt = &t
	}
	return &item, nil
}

func (s *PostgresStore) articleWhere(ctx context.Context, pred interface{}, args ...interface{}) (*models.ContentItem, bool, error) {
	row := s.sb.Select(articleColumns...).
		From("articles").
		Where(pred, args...).
		Limit(1).
		RunWith(s.db).
		QueryRowContext(ctx)

	item, err := s.scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query article: %w", err)
	}
	return item, true, nil
}

func (s *PostgresStore) ArticleByID(ctx context.Context, id string) (*models.ContentItem, bool, error) {
	return s.articleWhere(ctx, sq.Eq{"id": id})
}

func (s *PostgresStore) ArticleByNormalizedURL(ctx context.Context, normalizedURL string) (*models.ContentItem, bool, error) {
	return s.articleWhere(ctx, sq.Eq{"normalized_url": normalizedURL})
}

func (s *PostgresStore) ArticleByContentHash(ctx context.Context, hash string) (*models.ContentItem, bool, error) {
	return s.articleWhere(ctx, sq.Eq{"content_hash": hash})
}

func (s *PostgresStore) ListArticles(ctx context.Context, opts ListOptions) ([]models.ContentItem, error) {
	builder := s.sb.Select(articleColumns...).
		From("articles").
		OrderBy("final_score DESC", "fetched_at DESC")

	if opts.Category != "" {
		builder = builder.Where(sq.Eq{"category": opts.Category})
	}
	if opts.City != "" {
		builder = builder.Where(sq.Eq{"city": opts.City})
	}
	if opts.Platform != "" {
		builder = builder.Where(sq.Eq{"platform": string(opts.Platform)})
	}
	if !opts.Since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"fetched_at": opts.Since})
	}
	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit))
	}

	rows, err := builder.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []models.ContentItem
	for rows.Next() {
		item, err := s.scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateArticleScores(ctx context.Context, id string, fetchedAt time.Time, searchRank, freshness, final float64) error {
	_, err := s.sb.Update("articles").
		Set("fetched_at", fetchedAt).
		Set("search_rank_score", searchRank).
		Set("freshness_score", freshness).
		Set("final_score", final).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update article scores: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateEngagement(ctx context.Context, id string, views, saves int, engagement, final float64) error {
	_, err := s.sb.Update("articles").
		Set("views", views).
		Set("saves", saves).
		Set("engagement_score", engagement).
		Set("final_score", final).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update engagement: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertDeal(ctx context.Context, deal *models.DealItem) (bool, error) {
	if deal.ID == "" {
		deal.ID = uuid.NewString()
	}

	query := `INSERT INTO deals (
			id, canonical_url, content_hash, title, body, category,
			base_score, score, locale_score, published_at, fetched_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (canonical_url) DO UPDATE SET
			fetched_at = CASE WHEN EXCLUDED.score > deals.score
				THEN EXCLUDED.fetched_at ELSE deals.fetched_at END,
			base_score = CASE WHEN EXCLUDED.score > deals.score
				THEN EXCLUDED.base_score ELSE deals.base_score END,
			locale_score = CASE WHEN EXCLUDED.score > deals.score
				THEN EXCLUDED.locale_score ELSE deals.locale_score END,
			score = GREATEST(deals.score, EXCLUDED.score)
		RETURNING (xmax = 0)`

	var inserted bool
	err := s.db.QueryRowContext(ctx, query,
		deal.ID, deal.CanonicalURL, deal.ContentHash, deal.Title, deal.Text,
		deal.Category, deal.BaseScore, deal.Score, deal.LocaleScore,
		deal.PublishedAt, deal.FetchedAt,
	).Scan(&inserted)
	if isUniqueViolation(err) {
		// Same content under a different URL: refresh-if-higher on the
		// row holding the hash
		refresh := `UPDATE deals SET
				fetched_at = CASE WHEN $2 > score THEN $3 ELSE fetched_at END,
				base_score = CASE WHEN $2 > score THEN $4 ELSE base_score END,
				locale_score = CASE WHEN $2 > score THEN $5 ELSE locale_score END,
				score = GREATEST(score, $2)
			WHERE content_hash = $1`
		if _, err := s.db.ExecContext(ctx, refresh,
			deal.ContentHash, deal.Score, deal.FetchedAt, deal.BaseScore, deal.LocaleScore); err != nil {
			return false, fmt.Errorf("refresh deal on hash conflict: %w", err)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("upsert deal: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) ListDeals(ctx context.Context, limit int) ([]models.DealItem, error) {
	builder := s.sb.Select(
		"id", "canonical_url", "content_hash", "title", "body", "category",
		"base_score", "score", "locale_score", "published_at", "fetched_at").
		From("deals").
		OrderBy("score DESC", "fetched_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	rows, err := builder.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var out []models.DealItem
	for rows.Next() {
		var deal models.DealItem
		var publishedAt sql.NullTime
		err := rows.Scan(
			&deal.ID, &deal.CanonicalURL, &deal.ContentHash, &deal.Title,
			&deal.Text, &deal.Category, &deal.BaseScore, &deal.Score,
			&deal.LocaleScore, &publishedAt, &deal.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			deal.PublishedAt = &t
		}
		out = append(out, deal)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.sb.Delete("articles").
		Where(sq.Lt{"fetched_at": cutoff}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}
	return res.RowsAffected()
}
