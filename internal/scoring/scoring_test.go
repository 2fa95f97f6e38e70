package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSearchRankScore(t *testing.T) {
	testCases := []struct {
		rank     int
		maxRank  int
		expected float64
	}{
		{1, 100, 0.99},
		{100, 100, 0.0},
		{150, 100, 0.0},
		{50, 100, 0.5},
		{0, 100, 1.0},
		{5, 0, 0.0},
	}

	for _, tc := range testCases {
		got := SearchRankScore(tc.rank, tc.maxRank)
		assert.InDelta(t, tc.expected, got, 1e-9, "rank=%d maxRank=%d", tc.rank, tc.maxRank)
	}
}

func TestFreshnessScoreShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		ageHours float64
		expected float64
	}{
		{0, 1.0},
		{12, 1.0},
		{23.99, 1.0},
		{168, 1.0 - (168-24)/312.0}, // 7 days, ~0.538
		{336, 0.0},
		{400, 0.0},
	}

	for _, tc := range testCases {
		published := now.Add(-time.Duration(tc.ageHours * float64(time.Hour)))
		got := FreshnessScore(&published, time.Time{}, now)
		assert.InDelta(t, tc.expected, got, 1e-9, "age=%vh", tc.ageHours)
	}
}

func TestFreshnessMonotonicity(t *testing.T) {
	published := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	prev := math.Inf(1)
	for h := 0; h <= 400; h++ {
		now := published.Add(time.Duration(h) * time.Hour)
		score := FreshnessScore(&published, time.Time{}, now)
		if score > prev {
			t.Fatalf("freshness increased at age %dh: %f > %f", h, score, prev)
		}
		prev = score
	}
}

func TestFreshnessFallbacks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Published timestamp wins over fetched
	published := now.Add(-400 * time.Hour)
	fetched := now.Add(-time.Hour)
	assert.Equal(t, 0.0, FreshnessScore(&published, fetched, now))

	// Fetched used when published unknown
	assert.Equal(t, 1.0, FreshnessScore(nil, fetched, now))

	// Neither known: maximally fresh
	assert.Equal(t, 1.0, FreshnessScore(nil, time.Time{}, now))
}

func TestEngagementScore(t *testing.T) {
	assert.InDelta(t, 15.0, EngagementScore(50, 10), 1e-9)
	assert.Equal(t, 0.0, EngagementScore(0, 0))
	assert.InDelta(t, 1.0, EngagementScore(0, 1), 1e-9)
	assert.InDelta(t, 0.1, EngagementScore(1, 0), 1e-9)
}

func TestFinalScoreDeterminism(t *testing.T) {
	a, b, c := 0.8, 0.6, 2.5
	expected := 0.45*a + 0.35*b + 0.20*c

	first := FinalScore(a, b, c)
	second := FinalScore(a, b, c)

	assert.InDelta(t, expected, first, 1e-9)
	assert.Equal(t, first, second)
}

func TestRecomputeEngagement(t *testing.T) {
	item := &models.ContentItem{
		SearchRankScore: 0.9,
		FreshnessScore:  1.0,
		Views:           50,
		Saves:           10,
	}

	RecomputeEngagement(item)

	assert.InDelta(t, 15.0, item.EngagementScore, 1e-9)
	assert.InDelta(t, 0.45*0.9+0.35*1.0+0.20*15.0, item.FinalScore, 1e-9)

	// A save event must immediately flow into the final score
	item.Saves++
	RecomputeEngagement(item)
	assert.InDelta(t, 16.0, item.EngagementScore, 1e-9)
	assert.InDelta(t, 0.45*0.9+0.35*1.0+0.20*16.0, item.FinalScore, 1e-9)
}

func TestScoreFillsQuadruple(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	published := now.Add(-12 * time.Hour)
	item := &models.ContentItem{
		PublishedAt: &published,
		FetchedAt:   now,
	}

	Score(item, 1, 100, now)

	assert.InDelta(t, 0.99, item.SearchRankScore, 1e-9)
	assert.Equal(t, 1.0, item.FreshnessScore)
	assert.Equal(t, 0.0, item.EngagementScore)
	assert.InDelta(t, 0.45*0.99+0.35*1.0, item.FinalScore, 1e-9)
}
