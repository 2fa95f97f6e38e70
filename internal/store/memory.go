package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps items in process memory. It backs tests and
// degraded no-database operation, mirroring the Postgres semantics
// including the conflict behaviour on content hash and canonical URL.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]models.ContentItem // by ID
	deals    map[string]models.DealItem    // by ID
}

var _ ItemStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory item store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]models.ContentItem),
		deals:    make(map[string]models.DealItem),
	}
}

func (s *MemoryStore) UpsertArticle(_ context.Context, item *models.ContentItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.articles {
		if existing.ContentHash == item.ContentHash || existing.CanonicalURL == item.CanonicalURL {
			if item.FinalScore > existing.FinalScore {
				existing.FetchedAt = item.FetchedAt
				existing.SearchRankScore = item.SearchRankScore
				existing.FreshnessScore = item.FreshnessScore
				existing.FinalScore = item.FinalScore
				s.articles[id] = existing
			}
			return false, nil
		}
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.articles[item.ID] = *item
	return true, nil
}

func (s *MemoryStore) ArticleByID(_ context.Context, id string) (*models.ContentItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.articles[id]
	if !ok {
		return nil, false, nil
	}
	return &item, true, nil
}

func (s *MemoryStore) ArticleByNormalizedURL(_ context.Context, normalizedURL string) (*models.ContentItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.articles {
		if item.NormalizedURL == normalizedURL {
			found := item
			return &found, true, nil
		}
	}
	return nil, false, nil
}

func (s *MemoryStore) ArticleByContentHash(_ context.Context, hash string) (*models.ContentItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.articles {
		if item.ContentHash == hash {
			found := item
			return &found, true, nil
		}
	}
	return nil, false, nil
}

func (s *MemoryStore) ListArticles(_ context.Context, opts ListOptions) ([]models.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ContentItem
	for _, item := range s.articles {
		if opts.Category != "" && item.Category != opts.Category {
			continue
		}
		if opts.City != "" && item.City != opts.City {
			continue
		}
		if opts.Platform != "" && item.Platform != opts.Platform {
			continue
		}
		if !opts.Since.IsZero() && item.FetchedAt.Before(opts.Since) {
			continue
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		return out[i].FetchedAt.After(out[j].FetchedAt)
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateArticleScores(_ context.Context, id string, fetchedAt time.Time, searchRank, freshness, final float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.articles[id]
	if !ok {
		return nil
	}
	item.FetchedAt = fetchedAt
	item.SearchRankScore = searchRank
	item.FreshnessScore = freshness
	item.FinalScore = final
	s.articles[id] = item
	return nil
}

func (s *MemoryStore) UpdateEngagement(_ context.Context, id string, views, saves int, engagement, final float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.articles[id]
	if !ok {
		return nil
	}
	item.Views = views
	item.Saves = saves
	item.EngagementScore = engagement
	item.FinalScore = final
	s.articles[id] = item
	return nil
}

func (s *MemoryStore) UpsertDeal(_ context.Context, deal *models.DealItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.deals {
		if existing.ContentHash == deal.ContentHash || existing.CanonicalURL == deal.CanonicalURL {
			if deal.Score > existing.Score {
				existing.FetchedAt = deal.FetchedAt
				existing.BaseScore = deal.BaseScore
				existing.Score = deal.Score
				existing.LocaleScore = deal.LocaleScore
				s.deals[id] = existing
			}
			return false, nil
		}
	}

	if deal.ID == "" {
		deal.ID = uuid.NewString()
	}
	s.deals[deal.ID] = *deal
	return true, nil
}

func (s *MemoryStore) ListDeals(_ context.Context, limit int) ([]models.DealItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DealItem
	for _, deal := range s.deals {
		out = append(out, deal)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].FetchedAt.After(out[j].FetchedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteArticlesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, item := range s.articles {
		if item.FetchedAt.Before(cutoff) {
			delete(s.articles, id)
			deleted++
		}
	}
	return deleted, nil
}
