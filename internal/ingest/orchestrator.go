package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feedpulse/feedpulse/internal/coordination"
	"github.com/feedpulse/feedpulse/internal/dedup"
	"github.com/feedpulse/feedpulse/internal/fetcher"
	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/feedpulse/feedpulse/internal/ranking"
	"github.com/feedpulse/feedpulse/internal/scoring"
	"github.com/feedpulse/feedpulse/internal/search"
	"github.com/feedpulse/feedpulse/internal/store"
	"github.com/feedpulse/feedpulse/internal/urlutil"
)

const (
	queryLockTTL = 30 * time.Second
	maxRank      = 10 // search pages are capped at 10 results

	// Gossip admission threshold: anything the rubric rates below this
	// never enters the corpus
	gossipMinScore = 0.35
)

// PageFetcher is the content-retrieval contract the orchestrator needs
type PageFetcher interface {
	Fetch(ctx context.Context, url string) fetcher.Result
}

// FeedItem is one entry from a non-search source (RSS) routed through
// the same dedup/score pipeline
type FeedItem struct {
	URL         string
	Title       string
	Summary     string
	PublishedAt *time.Time
}

// Orchestrator iterates enabled queries and runs the
// fetch -> dedup -> score -> persist pipeline, respecting budgets and
// per-query locks. Queries are processed sequentially so the shared
// daily budget can be checked synchronously before each external call.
type Orchestrator struct {
	queries []models.SourceQuery
	search  search.Provider
	fetcher PageFetcher
	items   store.ItemStore
	index   *dedup.Index
	budget  *coordination.BudgetTracker
	lock    *coordination.Lock
	enrich  Enricher
	now     func() time.Time

	mu         sync.RWMutex
	lastReport models.RunReport
}

// New creates an orchestrator over the given query set
func New(queries []models.SourceQuery, searchClient search.Provider, pageFetcher PageFetcher,
	items store.ItemStore, budget *coordination.BudgetTracker, lock *coordination.Lock) *Orchestrator {
	return &Orchestrator{
		queries: queries,
		search:  searchClient,
		fetcher: pageFetcher,
		items:   items,
		index:   dedup.NewIndex(items),
		budget:  budget,
		lock:    lock,
		enrich:  keywordEnricher{},
		now:     time.Now,
	}
}

// Run executes one full ingestion pass. A failure in one query is
// logged and never aborts the rest of the run.
func (o *Orchestrator) Run(ctx context.Context) models.RunReport {
	start := o.now()
	logrus.Info("Starting ingestion run")

	report := models.RunReport{StartedAt: start}
	exhausted := make(map[string]bool) // budget sources already known dry this run

	for _, query := range o.queries {
		if !query.Enabled {
			continue
		}
		report.QueriesTotal++

		if err := o.processQuery(ctx, query, &report, exhausted); err != nil {
			logrus.Errorf("Query %q failed: %v", query.Query, err)
			report.ErrorCount++
		}
	}

	report.Duration = o.now().Sub(start).String()
	logrus.Infof("Ingestion run completed in %s: %d inserted, %d updated, %d duplicates, %d skipped queries, %d errors",
		report.Duration, report.ItemsInserted, report.ItemsUpdated, report.Duplicates, report.QueriesSkipped, report.ErrorCount)

	o.mu.Lock()
	o.lastReport = report
	o.mu.Unlock()
	return report
}

// LastReport returns the most recent run's report
func (o *Orchestrator) LastReport() models.RunReport {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastReport
}

func (o *Orchestrator) processQuery(ctx context.Context, query models.SourceQuery,
	report *models.RunReport, exhausted map[string]bool) error {

	budgetSource := budgetSourceFor(query.Category)
	if exhausted[budgetSource] || o.budget.Exceeded(ctx, budgetSource) {
		exhausted[budgetSource] = true
		report.QueriesSkipped++
		logrus.Infof("Skipping query %q: %s budget exhausted", query.Query, budgetSource)
		return nil
	}

	lockKey := "query:" + query.ID
	if !o.lock.Acquire(ctx, lockKey, queryLockTTL) {
		report.QueriesSkipped++
		logrus.Infof("Skipping query %q: already being processed", query.Query)
		return nil
	}
	defer o.lock.Release(ctx, lockKey)

	result := o.search.Search(ctx, search.Request{
		Query:    query.Query,
		Site:     query.Site,
		PageSize: maxRank,
	})
	if result.QuotaExceeded {
		// Provider-side quota reads exactly like local exhaustion
		exhausted[budgetSource] = true
		report.QueriesSkipped++
		logrus.Warnf("Search provider quota exceeded on %q", query.Query)
		return nil
	}
	if result.Err != nil {
		return result.Err
	}
	o.budget.Increment(ctx, budgetSource)

	for _, raw := range result.Items {
		o.processResult(ctx, query, raw, report)
	}
	return nil
}

// processResult runs one raw hit through canonicalize -> known-URL
// check -> fetch -> hash dedup -> score -> persist. Every failure
// affects only this single result.
func (o *Orchestrator) processResult(ctx context.Context, query models.SourceQuery,
	raw models.RawSearchResult, report *models.RunReport) {

	canonical := urlutil.Canonicalize(raw.URL)
	if !isContentURL(canonical) {
		return
	}

	// Known page refetched: refresh its scores and move on
	if existing, found, err := o.items.ArticleByNormalizedURL(ctx, canonical); err == nil && found {
		o.refreshScores(ctx, existing, raw.Rank, report)
		return
	}

	title, text, publishedAt := o.fetchContent(ctx, canonical, raw)
	if title == "" && text == "" {
		return
	}

	if query.Category == models.CategoryDeal {
		o.persistDeal(ctx, query, canonical, title, text, publishedAt, report)
		return
	}

	if query.Category == models.CategoryGossip {
		if s := scoring.GossipScore(title, raw.Snippet, ranking.Domain(canonical)); s < gossipMinScore {
			return
		}
	}

	hash := dedup.ContentHash(title, text)
	if existing, err := o.index.FindDuplicate(ctx, canonical, hash); err == nil && existing != nil {
		o.refreshScores(ctx, existing, raw.Rank, report)
		report.Duplicates++
		return
	}

	platform := urlutil.DetectPlatform(canonical)
	videoID := urlutil.ExtractVideoID(canonical, platform)
	enrichment := o.enrich.Enrich(ctx, title, text)

	item := &models.ContentItem{
		CanonicalURL:  canonical,
		NormalizedURL: canonical,
		ContentHash:   hash,
		Title:         title,
		Text:          text,
		Summary:       enrichment.Summary,
		Entities:      enrichment.Entities,
		Category:      query.Category,
		City:          enrichment.City,
		Platform:      platform,
		VideoID:       videoID,
		ThumbnailURL:  urlutil.ExtractThumbnailURL(canonical, platform, videoID),
		PublishedAt:   publishedAt,
		FetchedAt:     o.now(),
	}
	scoring.Score(item, raw.Rank, maxRank, o.now())

	inserted, err := o.items.UpsertArticle(ctx, item)
	if err != nil {
		logrus.Errorf("Persist failed for %s: %v", canonical, err)
		report.ErrorCount++
		return
	}
	if inserted {
		report.ItemsInserted++
	} else {
		report.Duplicates++
	}
}

// fetchContent extracts the page, falling back to the search snippet
// when the page is unusable. Empty return means skip this URL.
func (o *Orchestrator) fetchContent(ctx context.Context, canonical string, raw models.RawSearchResult) (string, string, *time.Time) {
	result := o.fetcher.Fetch(ctx, canonical)
	if result.Outcome == fetcher.OutcomeSuccess {
		title := result.Title
		if title == "" {
			title = raw.Title
		}
		return title, result.Text, result.PublishedAt
	}

	if raw.Snippet != "" {
		return raw.Title, raw.Snippet, nil
	}
	return "", "", nil
}

// refreshScores applies the duplicate-hit policy: recency-derived
// fields refresh only when the new occurrence scores higher
func (o *Orchestrator) refreshScores(ctx context.Context, existing *models.ContentItem, rank int, report *models.RunReport) {
	now := o.now()
	searchRank := scoring.SearchRankScore(rank, maxRank)
	freshness := scoring.FreshnessScore(existing.PublishedAt, existing.FetchedAt, now)
	final := scoring.FinalScore(searchRank, freshness, existing.EngagementScore)

	if final <= existing.FinalScore {
		return
	}
	if err := o.items.UpdateArticleScores(ctx, existing.ID, now, searchRank, freshness, final); err != nil {
		logrus.Errorf("Score refresh failed for %s: %v", existing.CanonicalURL, err)
		report.ErrorCount++
		return
	}
	report.ItemsUpdated++
}

func (o *Orchestrator) persistDeal(ctx context.Context, query models.SourceQuery,
	canonical, title, text string, publishedAt *time.Time, report *models.RunReport) {

	now := o.now()
	relevance := scoring.DealRelevanceScore(title, text, ranking.Domain(canonical), publishedAt, now)
	locale := scoring.LocaleFriendlinessScore(title, text)

	deal := &models.DealItem{
		CanonicalURL: canonical,
		ContentHash:  dedup.ContentHash(title, text),
		Title:        title,
		Text:         text,
		Category:     dealCategory(query, title, text),
		BaseScore:    relevance,
		Score:        scoring.DealScore(relevance, locale),
		LocaleScore:  locale,
		PublishedAt:  publishedAt,
		FetchedAt:    now,
	}

	inserted, err := o.items.UpsertDeal(ctx, deal)
	if err != nil {
		logrus.Errorf("Deal persist failed for %s: %v", canonical, err)
		report.ErrorCount++
		return
	}
	if inserted {
		report.ItemsInserted++
	} else {
		report.Duplicates++
	}
}

// IngestFeedItems routes non-search items (RSS) through the same
// canonicalize -> dedup -> score -> persist pipeline. Feed entries
// carry their own text, so there is no page fetch and no budget spend.
func (o *Orchestrator) IngestFeedItems(ctx context.Context, items []FeedItem, category string) models.RunReport {
	report := models.RunReport{StartedAt: o.now()}

	for rank, feedItem := range items {
		raw := models.RawSearchResult{
			URL:     feedItem.URL,
			Title:   feedItem.Title,
			Snippet: feedItem.Summary,
			Rank:    rank + 1,
		}

		canonical := urlutil.Canonicalize(raw.URL)
		if !isContentURL(canonical) {
			continue
		}
		if existing, found, err := o.items.ArticleByNormalizedURL(ctx, canonical); err == nil && found {
			o.refreshScores(ctx, existing, raw.Rank, &report)
			continue
		}

		hash := dedup.ContentHash(feedItem.Title, feedItem.Summary)
		if existing, err := o.index.FindDuplicate(ctx, canonical, hash); err == nil && existing != nil {
			o.refreshScores(ctx, existing, raw.Rank, &report)
			report.Duplicates++
			continue
		}

		enrichment := o.enrich.Enrich(ctx, feedItem.Title, feedItem.Summary)
		item := &models.ContentItem{
			CanonicalURL:  canonical,
			NormalizedURL: canonical,
			ContentHash:   hash,
			Title:         feedItem.Title,
			Text:          feedItem.Summary,
			Summary:       enrichment.Summary,
			Entities:      enrichment.Entities,
			Category:      category,
			City:          enrichment.City,
			Platform:      urlutil.DetectPlatform(canonical),
			PublishedAt:   feedItem.PublishedAt,
			FetchedAt:     o.now(),
		}
		scoring.Score(item, raw.Rank, maxRank, o.now())

		inserted, err := o.items.UpsertArticle(ctx, item)
		if err != nil {
			logrus.Errorf("Persist failed for %s: %v", canonical, err)
			report.ErrorCount++
			continue
		}
		if inserted {
			report.ItemsInserted++
		} else {
			report.Duplicates++
		}
	}

	report.Duration = o.now().Sub(report.StartedAt).String()
	return report
}

// Cleanup deletes items older than the retention window
func (o *Orchestrator) Cleanup(ctx context.Context, retention time.Duration) {
	cutoff := o.now().Add(-retention)
	deleted, err := o.items.DeleteArticlesBefore(ctx, cutoff)
	if err != nil {
		logrus.Errorf("Cleanup failed: %v", err)
		return
	}
	logrus.Infof("Cleanup removed %d items fetched before %s", deleted, cutoff.Format(time.RFC3339))
}

func budgetSourceFor(category string) string {
	switch category {
	case models.CategoryDeal:
		return coordination.SourceDeals
	case models.CategoryGossip:
		return coordination.SourceGossip
	default:
		return coordination.SourceSearch
	}
}

func isContentURL(raw string) bool {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}
	for _, ext := range []string{".pdf", ".jpg", ".png", ".gif", ".zip"} {
		if strings.HasSuffix(strings.ToLower(raw), ext) {
			return false
		}
	}
	return true
}

func dealCategory(query models.SourceQuery, title, text string) string {
	content := strings.ToLower(title + " " + text)
	switch {
	case strings.Contains(content, "mcdonald") || strings.Contains(content, "starbucks") ||
		strings.Contains(content, "taco bell") || strings.Contains(content, "pizza"):
		return "food-fast"
	case strings.Contains(content, "costco") || strings.Contains(content, "walmart") ||
		strings.Contains(content, "target"):
		return "retail-family"
	case strings.Contains(content, "bank") || strings.Contains(content, "checking") ||
		strings.Contains(content, "savings"):
		return "bank"
	default:
		if query.Site != "" {
			return query.Site
		}
		return "general"
	}
}
