package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedpulse/feedpulse/internal/coordination"
	"github.com/feedpulse/feedpulse/internal/fetcher"
	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/feedpulse/feedpulse/internal/search"
	"github.com/feedpulse/feedpulse/internal/store"
)

type stubSearch struct {
	calls   int
	results map[string]search.Result // keyed by query text
}

func (s *stubSearch) Search(_ context.Context, req search.Request) search.Result {
	s.calls++
	return s.results[req.Query]
}

type stubFetcher struct {
	results map[string]fetcher.Result // keyed by URL; missing means success with canned text
}

func (s stubFetcher) Fetch(_ context.Context, url string) fetcher.Result {
	if r, ok := s.results[url]; ok {
		return r
	}
	return fetcher.Result{
		Outcome: fetcher.OutcomeSuccess,
		Title:   "Fetched: " + url,
		Text:    strings.Repeat("pho and banh mi in little saigon ", 20),
	}
}

func newTestOrchestrator(queries []models.SourceQuery, searchStub *stubSearch, fetchStub stubFetcher, budgets map[string]int) (*Orchestrator, *store.MemoryStore) {
	items := store.NewMemoryStore()
	coord := coordination.NewMemoryStore()
	if budgets == nil {
		budgets = map[string]int{
			coordination.SourceSearch: 100,
			coordination.SourceDeals:  100,
			coordination.SourceGossip: 100,
		}
	}
	tracker := coordination.NewBudgetTracker(coord, time.UTC, budgets)
	o := New(queries, searchStub, fetchStub, items, tracker, coordination.NewLock(coord))
	return o, items
}

func hits(urls ...string) search.Result {
	var r search.Result
	for i, u := range urls {
		r.Items = append(r.Items, models.RawSearchResult{
			URL:     u,
			Title:   "Result " + u,
			Snippet: "snippet for " + u,
			Rank:    i + 1,
		})
	}
	return r
}

func TestRunInsertsNewItems(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "little saigon news", Category: models.CategoryNews, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"little saigon news": hits("https://nguoi-viet.com/a", "https://vietbao.com/b"),
	}}

	o, items := newTestOrchestrator(queries, searchStub, stubFetcher{}, nil)
	report := o.Run(context.Background())

	assert.Equal(t, 2, report.ItemsInserted)
	assert.Equal(t, 0, report.ErrorCount)

	stored, err := items.ListArticles(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	for _, item := range stored {
		assert.Equal(t, models.CategoryNews, item.Category)
		assert.Greater(t, item.FinalScore, 0.0)
		assert.NotEmpty(t, item.ContentHash)
		assert.NotEmpty(t, item.Summary, "items persist enriched, not raw")
		assert.Contains(t, item.Entities, "little saigon")
	}
}

func TestRunSkipsDisabledQueries(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "off", Category: models.CategoryNews, Enabled: false},
	}
	searchStub := &stubSearch{results: map[string]search.Result{}}

	o, _ := newTestOrchestrator(queries, searchStub, stubFetcher{}, nil)
	report := o.Run(context.Background())

	assert.Equal(t, 0, report.QueriesTotal)
	assert.Equal(t, 0, searchStub.calls)
}

func TestRunBudgetExhaustedSkipsRemaining(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "one", Category: models.CategoryNews, Enabled: true},
		{ID: "q2", Query: "two", Category: models.CategoryNews, Enabled: true},
		{ID: "q3", Query: "three", Category: models.CategoryNews, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"one":   hits("https://example.com/1"),
		"two":   hits("https://example.com/2"),
		"three": hits("https://example.com/3"),
	}}

	o, _ := newTestOrchestrator(queries, searchStub, stubFetcher{}, map[string]int{
		coordination.SourceSearch: 1,
	})
	report := o.Run(context.Background())

	// Query one spends the whole budget; two and three are skipped and
	// the provider is never called for them
	assert.Equal(t, 1, searchStub.calls)
	assert.Equal(t, 2, report.QueriesSkipped)
	assert.Equal(t, 1, report.ItemsInserted)
}

func TestRunProviderQuotaTreatedAsExhaustion(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "one", Category: models.CategoryNews, Enabled: true},
		{ID: "q2", Query: "two", Category: models.CategoryNews, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"one": {QuotaExceeded: true},
		"two": hits("https://example.com/2"),
	}}

	o, _ := newTestOrchestrator(queries, searchStub, stubFetcher{}, nil)
	report := o.Run(context.Background())

	assert.Equal(t, 1, searchStub.calls, "no further calls after the provider reports quota")
	assert.Equal(t, 2, report.QueriesSkipped)
	assert.Equal(t, 0, report.ErrorCount, "quota exhaustion is not an error")
}

func TestRunLockedQuerySkipped(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "one", Category: models.CategoryNews, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"one": hits("https://example.com/1"),
	}}

	items := store.NewMemoryStore()
	coord := coordination.NewMemoryStore()
	tracker := coordination.NewBudgetTracker(coord, time.UTC, map[string]int{coordination.SourceSearch: 100})
	lock := coordination.NewLock(coord)
	o := New(queries, searchStub, stubFetcher{}, items, tracker, lock)

	require.True(t, lock.Acquire(context.Background(), "query:q1", time.Minute))
	report := o.Run(context.Background())

	assert.Equal(t, 1, report.QueriesSkipped)
	assert.Equal(t, 0, searchStub.calls)
}

func TestRunSearchErrorIsolated(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "broken", Category: models.CategoryNews, Enabled: true},
		{ID: "q2", Query: "fine", Category: models.CategoryNews, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"broken": {Err: assert.AnError},
		"fine":   hits("https://example.com/ok"),
	}}

	o, _ := newTestOrchestrator(queries, searchStub, stubFetcher{}, nil)
	report := o.Run(context.Background())

	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 1, report.ItemsInserted, "failure of one query must not abort the rest")
}

func TestRunSameContentTwoURLsIsOneItem(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "syndicated", Category: models.CategoryNews, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"syndicated": hits("https://a.example.com/story", "https://b.example.com/story"),
	}}
	// Both URLs resolve to identical content
	body := fetcher.Result{
		Outcome: fetcher.OutcomeSuccess,
		Title:   "Same Story",
		Text:    strings.Repeat("identical body text ", 30),
	}
	fetchStub := stubFetcher{results: map[string]fetcher.Result{
		"https://a.example.com/story": body,
		"https://b.example.com/story": body,
	}}

	o, items := newTestOrchestrator(queries, searchStub, fetchStub, nil)
	report := o.Run(context.Background())

	assert.Equal(t, 1, report.ItemsInserted)
	assert.Equal(t, 1, report.Duplicates)

	stored, err := items.ListArticles(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRunFetchFailureFallsBackToSnippet(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "walled", Category: models.CategoryForum, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"walled": hits("https://voz.vn/t/thread.123"),
	}}
	fetchStub := stubFetcher{results: map[string]fetcher.Result{
		"https://voz.vn/t/thread.123": {Outcome: fetcher.OutcomeNetworkError},
	}}

	o, items := newTestOrchestrator(queries, searchStub, fetchStub, nil)
	report := o.Run(context.Background())

	require.Equal(t, 1, report.ItemsInserted)
	stored, err := items.ListArticles(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, "snippet for https://voz.vn/t/thread.123", stored[0].Text)
}

func TestRunRefetchRefreshesOnlyWhenImproved(t *testing.T) {
	ctx := context.Background()
	queries := []models.SourceQuery{
		{ID: "q1", Query: "repeat", Category: models.CategoryNews, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"repeat": hits("https://example.com/page"),
	}}

	o, items := newTestOrchestrator(queries, searchStub, stubFetcher{}, nil)
	o.Run(ctx)

	stored, _ := items.ListArticles(ctx, store.ListOptions{})
	require.Len(t, stored, 1)
	firstScore := stored[0].FinalScore

	// The same page seen again at the same rank scores no higher, so
	// nothing refreshes
	report := o.Run(ctx)
	assert.Equal(t, 0, report.ItemsInserted)
	assert.Equal(t, 0, report.ItemsUpdated)

	after, _ := items.ListArticles(ctx, store.ListOptions{})
	assert.Equal(t, firstScore, after[0].FinalScore)
}

func TestRunDealQueryPersistsDeal(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "d1", Query: "chase bonus", Category: models.CategoryDeal, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"chase bonus": hits("https://doctorofcredit.com/chase-300"),
	}}
	fetchStub := stubFetcher{results: map[string]fetcher.Result{
		"https://doctorofcredit.com/chase-300": {
			Outcome: fetcher.OutcomeSuccess,
			Title:   "Chase $300 Checking Bonus",
			Text:    strings.Repeat("open a chase checking account, set up direct deposit, confirmed working ", 10),
		},
	}}

	o, items := newTestOrchestrator(queries, searchStub, fetchStub, nil)
	report := o.Run(context.Background())

	assert.Equal(t, 1, report.ItemsInserted)

	deals, err := items.ListDeals(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "bank", deals[0].Category)
	assert.Greater(t, deals[0].Score, 0.5)

	// Deal queries never touch the articles table
	articles, _ := items.ListArticles(context.Background(), store.ListOptions{})
	assert.Empty(t, articles)
}

func TestRunGossipBelowThresholdDropped(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "g1", Query: "showbiz", Category: models.CategoryGossip, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"showbiz": {Items: []models.RawSearchResult{{
			URL:     "https://tin-sao.blogspot.com/post",
			Title:   "celebrity item",
			Snippet: "short",
			Rank:    1,
		}}},
	}}
	fetchStub := stubFetcher{results: map[string]fetcher.Result{
		"https://tin-sao.blogspot.com/post": {
			Outcome: fetcher.OutcomeSuccess,
			Title:   "celebrity item",
			Text:    strings.Repeat("gossip ", 40),
		},
	}}

	o, items := newTestOrchestrator(queries, searchStub, fetchStub, nil)
	report := o.Run(context.Background())

	assert.Equal(t, 0, report.ItemsInserted)
	articles, _ := items.ListArticles(context.Background(), store.ListOptions{})
	assert.Empty(t, articles)
}

func TestRunSkipsNonContentURLs(t *testing.T) {
	queries := []models.SourceQuery{
		{ID: "q1", Query: "mixed", Category: models.CategoryNews, Enabled: true},
	}
	searchStub := &stubSearch{results: map[string]search.Result{
		"mixed": hits("https://example.com/doc.pdf", "ftp://example.com/file", "https://example.com/ok"),
	}}

	o, _ := newTestOrchestrator(queries, searchStub, stubFetcher{}, nil)
	report := o.Run(context.Background())

	assert.Equal(t, 1, report.ItemsInserted)
}

func TestIngestFeedItems(t *testing.T) {
	o, items := newTestOrchestrator(nil, &stubSearch{}, stubFetcher{}, nil)
	published := time.Now().Add(-3 * time.Hour)

	report := o.IngestFeedItems(context.Background(), []FeedItem{
		{URL: "https://nguoi-viet.com/rss-1", Title: "Feed One", Summary: "summary one", PublishedAt: &published},
		{URL: "https://nguoi-viet.com/rss-1?utm_source=rss", Title: "Feed One", Summary: "summary one", PublishedAt: &published},
	}, models.CategoryNews)

	assert.Equal(t, 1, report.ItemsInserted)
	assert.Equal(t, 0, report.ErrorCount)

	stored, err := items.ListArticles(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://nguoi-viet.com/rss-1", stored[0].CanonicalURL)
	assert.InDelta(t, 1.0, stored[0].FreshnessScore, 1e-9, "three-hour-old entry is fully fresh")
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	o, items := newTestOrchestrator(nil, &stubSearch{}, stubFetcher{}, nil)

	old := &models.ContentItem{
		CanonicalURL: "https://example.com/old", NormalizedURL: "https://example.com/old",
		ContentHash: "h-old", Title: "old", FetchedAt: time.Now().Add(-100 * 24 * time.Hour),
	}
	fresh := &models.ContentItem{
		CanonicalURL: "https://example.com/new", NormalizedURL: "https://example.com/new",
		ContentHash: "h-new", Title: "new", FetchedAt: time.Now(),
	}
	_, err := items.UpsertArticle(ctx, old)
	require.NoError(t, err)
	_, err = items.UpsertArticle(ctx, fresh)
	require.NoError(t, err)

	o.Cleanup(ctx, 90*24*time.Hour)

	stored, err := items.ListArticles(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://example.com/new", stored[0].CanonicalURL)
}
