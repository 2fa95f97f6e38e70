package feeds

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feedpulse/feedpulse/internal/coordination"
	"github.com/feedpulse/feedpulse/internal/judge"
	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/feedpulse/feedpulse/internal/ranking"
	"github.com/feedpulse/feedpulse/internal/scoring"
	"github.com/feedpulse/feedpulse/internal/store"
)

// Data freshness markers surfaced to feed consumers. Stale feeds are
// served from whatever the corpus already holds; the flag lets the
// client display a notice instead of an error.
const (
	FreshnessFresh = "fresh"
	FreshnessStale = "stale_due_to_quota"
)

const (
	defaultLimit  = 20
	defaultWindow = 48 * time.Hour
	widerWindow   = 14 * 24 * time.Hour

	// Soft diversity cap per domain; relaxed before returning a thin feed
	domainCap = 3

	pickLockKey  = "feed:daily-pick"
	pickLockTTL  = 30 * time.Second
	pickLockWait = 500 * time.Millisecond
	pickPoolSize = 20
)

// Request narrows a feed read
type Request struct {
	Category string
	City     string
	Platform models.Platform
	Limit    int
}

// Response is one rendered feed page
type Response struct {
	Items         []models.ContentItem `json:"items"`
	DataFreshness string               `json:"data_freshness"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// DailyPick is the once-a-day editorial highlight
type DailyPick struct {
	Item   *models.ContentItem `json:"item,omitempty"`
	Brief  string              `json:"brief,omitempty"`
	Reason string              `json:"reason,omitempty"`
	Day    string              `json:"day"`
}

// Judge is the subset of the judgment service the daily pick needs
type Judge interface {
	JudgeBatch(ctx context.Context, candidates []judge.Candidate) *judge.Judgment
}

// Service renders feeds from the persisted corpus. Reads never trigger
// external calls; the only provider touch is the daily pick's judgment
// batch, which has its own budget and stampede lock.
type Service struct {
	items  store.ItemStore
	budget *coordination.BudgetTracker
	lock   *coordination.Lock
	judge  Judge

	mu      sync.Mutex
	pick    *DailyPick
	pickDay string

	now   func() time.Time
	sleep func(time.Duration)
}

// NewService creates the feed service. judgeSvc may be nil when no
// judgment provider is configured.
func NewService(items store.ItemStore, budget *coordination.BudgetTracker, lock *coordination.Lock, judgeSvc Judge) *Service {
	return &Service{
		items:  items,
		budget: budget,
		lock:   lock,
		judge:  judgeSvc,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Feed renders one feed page. Tiers widen until a working pool fills:
// recent items first, then a two-week window, then any age without the
// platform narrowing. Category and city are hard dimensions and never
// widen away. The page is cut from the capped full pool so the domain
// cap backfills with diverse lower-ranked items instead of shrinking
// the page. A short feed is returned as-is, never an error.
func (s *Service) Feed(ctx context.Context, req Request) *Response {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	now := s.now()

	listTier := func(opts store.ListOptions) func() []models.ContentItem {
		return func() []models.ContentItem {
			items, err := s.items.ListArticles(ctx, opts)
			if err != nil {
				logrus.Errorf("Feed tier query failed: %v", err)
				return nil
			}
			return items
		}
	}

	pool := ranking.CollectWithFallbacks(3*limit,
		listTier(store.ListOptions{Category: req.Category, City: req.City, Platform: req.Platform, Limit: 3 * limit, Since: now.Add(-defaultWindow)}),
		listTier(store.ListOptions{Category: req.Category, City: req.City, Platform: req.Platform, Limit: 3 * limit, Since: now.Add(-widerWindow)}),
		listTier(store.ListOptions{Category: req.Category, City: req.City, Limit: 3 * limit}),
	)

	var ranked []models.ContentItem
	if req.Category == models.CategoryGossip {
		boosted := map[string]float64{models.CategoryGossip: 1.0}
		ranked = ranking.RankBlended(pool, len(pool), ranking.DefaultBlendWeights, boosted, now)
	} else {
		ranked = ranking.Rank(pool, 0)
	}
	ranked = ranking.ApplyDomainCap(ranked, domainCap, limit)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return &Response{
		Items:         ranked,
		DataFreshness: s.freshness(ctx, req.Category),
		GeneratedAt:   now,
	}
}

// Deals renders the deal feed with the standing priority tiers. A
// storage failure degrades to an empty page, never an error: feed reads
// stay serveable whatever the backend is doing.
func (s *Service) Deals(ctx context.Context, limit int) ([]models.DealItem, string) {
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	freshness := s.freshness(ctx, models.CategoryDeal)

	deals, err := s.items.ListDeals(ctx, 3*limit)
	if err != nil {
		logrus.Errorf("Deal listing failed, serving empty page: %v", err)
		return []models.DealItem{}, freshness
	}
	return ranking.RankDeals(deals, limit, []string{"bank", "food-fast", "retail-family"}), freshness
}

// RecordView bumps the view counter and re-derives the engagement and
// final scores
func (s *Service) RecordView(ctx context.Context, id string) (*models.ContentItem, error) {
	return s.recordEngagement(ctx, id, 1, 0)
}

// RecordSave bumps the save counter and re-derives the engagement and
// final scores
func (s *Service) RecordSave(ctx context.Context, id string) (*models.ContentItem, error) {
	return s.recordEngagement(ctx, id, 0, 1)
}

func (s *Service) recordEngagement(ctx context.Context, id string, views, saves int) (*models.ContentItem, error) {
	item, found, err := s.items.ArticleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("item %s not found", id)
	}

	item.Views += views
	item.Saves += saves
	scoring.RecomputeEngagement(item)

	if err := s.items.UpdateEngagement(ctx, id, item.Views, item.Saves, item.EngagementScore, item.FinalScore); err != nil {
		return nil, err
	}
	return item, nil
}

// Pick returns the day's editorial highlight, computing it at most once
// per calendar day per process, with the stampede lock keeping multiple
// instances from all spending judgment budget on the same day.
func (s *Service) Pick(ctx context.Context) *DailyPick {
	day := s.now().Format("2006-01-02")

	s.mu.Lock()
	if s.pick != nil && s.pickDay == day {
		cached := s.pick
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	if !s.lock.Acquire(ctx, pickLockKey, pickLockTTL) {
		s.sleep(pickLockWait)
		s.mu.Lock()
		if s.pick != nil && s.pickDay == day {
			cached := s.pick
			s.mu.Unlock()
			return cached
		}
		s.mu.Unlock()
		return &DailyPick{Day: day, Reason: "pick in progress elsewhere"}
	}
	defer s.lock.Release(ctx, pickLockKey)

	pick := s.computePick(ctx, day)

	s.mu.Lock()
	s.pick = pick
	s.pickDay = day
	s.mu.Unlock()
	return pick
}

// computePick ranks the last day's news and asks the judgment provider
// to choose; without a verdict it degrades to the top-ranked item.
func (s *Service) computePick(ctx context.Context, day string) *DailyPick {
	now := s.now()
	items, err := s.items.ListArticles(ctx, store.ListOptions{
		Category: models.CategoryNews,
		Limit:    pickPoolSize,
		Since:    now.Add(-24 * time.Hour),
	})
	if err != nil || len(items) == 0 {
		return &DailyPick{Day: day, Reason: "no recent items"}
	}
	ranked := ranking.Rank(items, pickPoolSize)

	if s.judge != nil {
		candidates := make([]judge.Candidate, 0, len(ranked))
		for _, item := range ranked {
			candidates = append(candidates, judge.Candidate{ID: item.ID, Title: item.Title, Snippet: snippet(item.Text)})
		}
		verdict := s.judge.JudgeBatch(ctx, candidates)
		if best := bestJudged(ranked, verdict); best != nil {
			return &DailyPick{Item: best, Brief: verdict.OverallBrief, Day: day}
		}
	}

	return &DailyPick{Item: &ranked[0], Reason: "top ranked (no judgment available)", Day: day}
}

// bestJudged maps the highest-relevance verdict back to its item
func bestJudged(items []models.ContentItem, verdict *judge.Judgment) *models.ContentItem {
	if verdict == nil || len(verdict.Items) == 0 {
		return nil
	}

	byID := make(map[string]*models.ContentItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	var best *models.ContentItem
	bestRelevance := -1.0
	for _, j := range verdict.Items {
		item, ok := byID[j.ID]
		if ok && j.Relevance > bestRelevance {
			best = item
			bestRelevance = j.Relevance
		}
	}
	return best
}

func (s *Service) freshness(ctx context.Context, category string) string {
	source := coordination.SourceSearch
	switch category {
	case models.CategoryDeal:
		source = coordination.SourceDeals
	case models.CategoryGossip:
		source = coordination.SourceGossip
	}
	if s.budget.Exceeded(ctx, source) {
		return FreshnessStale
	}
	return FreshnessFresh
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > 200 {
		return string(runes[:200])
	}
	return text
}
