package scoring

import (
	"time"

	"github.com/feedpulse/feedpulse/internal/models"
)

// Final-score blend. The 45/35/20 split is editorial policy: relevance
// and freshness outweigh raw popularity.
const (
	weightSearchRank = 0.45
	weightFreshness  = 0.35
	weightEngagement = 0.20
)

// Engagement weighting: a save is worth ten views
const (
	viewWeight = 0.1
	saveWeight = 1.0
)

// Freshness knees: full score under 24h, linear decay to zero at 14 days
const (
	freshFullHours = 24.0
	freshZeroHours = 336.0
)

// SearchRankScore is max(0, (maxRank-rank)/maxRank): linear decay with
// rank position, flooring at zero for ranks at or beyond maxRank.
func SearchRankScore(rank, maxRank int) float64 {
	if maxRank <= 0 || rank >= maxRank {
		return 0
	}
	if rank < 0 {
		rank = 0
	}
	return float64(maxRank-rank) / float64(maxRank)
}

// FreshnessScore is piecewise linear over content age in hours:
// 1.0 under 24h, decaying to 0.0 at 336h (14 days). The published
// timestamp wins over the fetched one; with neither known the content
// counts as maximally fresh.
func FreshnessScore(publishedAt *time.Time, fetchedAt time.Time, now time.Time) float64 {
	var ref time.Time
	switch {
	case publishedAt != nil && !publishedAt.IsZero():
		ref = *publishedAt
	case !fetchedAt.IsZero():
		ref = fetchedAt
	default:
		return 1.0
	}

	ageHours := now.Sub(ref).Hours()
	switch {
	case ageHours < freshFullHours:
		return 1.0
	case ageHours >= freshZeroHours:
		return 0.0
	default:
		return 1.0 - (ageHours-freshFullHours)/(freshZeroHours-freshFullHours)
	}
}

// EngagementScore derives from interaction events
func EngagementScore(views, saves int) float64 {
	return float64(views)*viewWeight + float64(saves)*saveWeight
}

// FinalScore blends the three sub-scores with the fixed editorial weights
func FinalScore(searchRank, freshness, engagement float64) float64 {
	return weightSearchRank*searchRank + weightFreshness*freshness + weightEngagement*engagement
}

// Score fills the score quadruple on a content item from its search
// rank and timestamps
func Score(item *models.ContentItem, rank, maxRank int, now time.Time) {
	item.SearchRankScore = SearchRankScore(rank, maxRank)
	item.FreshnessScore = FreshnessScore(item.PublishedAt, item.FetchedAt, now)
	item.EngagementScore = EngagementScore(item.Views, item.Saves)
	item.FinalScore = FinalScore(item.SearchRankScore, item.FreshnessScore, item.EngagementScore)
}

// RecomputeEngagement refreshes the engagement score after a view or
// save event and immediately re-derives the final score
func RecomputeEngagement(item *models.ContentItem) {
	item.EngagementScore = EngagementScore(item.Views, item.Saves)
	item.FinalScore = FinalScore(item.SearchRankScore, item.FreshnessScore, item.EngagementScore)
}
