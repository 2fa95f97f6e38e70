package ranking

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/feedpulse/feedpulse/internal/scoring"
)

// Rank orders items by final score descending, breaking ties on the
// fetched timestamp (newer first), and truncates to limit.
func Rank(items []models.ContentItem, limit int) []models.ContentItem {
	out := make([]models.ContentItem, len(items))
	copy(out, items)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		return out[i].FetchedAt.After(out[j].FetchedAt)
	})

	return truncate(out, limit)
}

// RankDeals orders deals with priority categories sorted to the front
// regardless of score, then by score, then by recency within a tier.
func RankDeals(deals []models.DealItem, limit int, priorityCategories []string) []models.DealItem {
	out := make([]models.DealItem, len(deals))
	copy(out, deals)

	tier := func(d models.DealItem) int {
		for i, cat := range priorityCategories {
			if d.Category == cat {
				return i
			}
		}
		return len(priorityCategories)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := tier(out[i]), tier(out[j])
		if ti != tj {
			return ti < tj
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].FetchedAt.After(out[j].FetchedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// BlendWeights drives the request-time blend used by gossip-style feeds
type BlendWeights struct {
	Relevance     float64
	Freshness     float64
	Engagement    float64
	Diversity     float64
	CategoryBoost float64
}

// DefaultBlendWeights is the standing gossip-feed blend
var DefaultBlendWeights = BlendWeights{
	Relevance:     0.35,
	Freshness:     0.25,
	Engagement:    0.20,
	Diversity:     0.10,
	CategoryBoost: 0.10,
}

// RankBlended re-sorts a candidate pool twice the output limit by an
// ephemeral blend computed at request time. The blend is display-only:
// the persisted final score on the inputs is never modified.
func RankBlended(items []models.ContentItem, limit int, weights BlendWeights, boosted map[string]float64, now time.Time) []models.ContentItem {
	pool := Rank(items, 2*limit)

	domainSeen := make(map[string]int)
	blend := make([]float64, len(pool))
	for i, item := range pool {
		freshness := scoring.FreshnessScore(item.PublishedAt, item.FetchedAt, now)
		engagement := item.EngagementScore / (1 + item.EngagementScore)
		diversity := 1.0 / float64(1+domainSeen[Domain(item.CanonicalURL)])
		domainSeen[Domain(item.CanonicalURL)]++

		blend[i] = weights.Relevance*item.SearchRankScore +
			weights.Freshness*freshness +
			weights.Engagement*engagement +
			weights.Diversity*diversity +
			weights.CategoryBoost*boosted[item.Category]
	}

	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return blend[order[a]] > blend[order[b]]
	})

	out := make([]models.ContentItem, 0, len(pool))
	for _, idx := range order {
		out = append(out, pool[idx])
	}
	return truncate(out, limit)
}

// ApplyDomainCap enforces a per-domain cap on a ranked pool. Diversity
// is a soft constraint: when capping would leave fewer than minCount
// items, capped-out items are re-admitted in rank order.
func ApplyDomainCap(items []models.ContentItem, perDomain, minCount int) []models.ContentItem {
	if perDomain <= 0 {
		return items
	}

	counts := make(map[string]int)
	var kept, overflow []models.ContentItem
	for _, item := range items {
		d := Domain(item.CanonicalURL)
		if counts[d] < perDomain {
			counts[d]++
			kept = append(kept, item)
		} else {
			overflow = append(overflow, item)
		}
	}

	for len(kept) < minCount && len(overflow) > 0 {
		kept = append(kept, overflow[0])
		overflow = overflow[1:]
	}

	return kept
}

// CollectWithFallbacks runs progressively broader tiers until minCount
// items are gathered or the tiers run out, deduplicating by content
// hash across tiers. It always returns what it has, even short.
func CollectWithFallbacks(minCount int, tiers ...func() []models.ContentItem) []models.ContentItem {
	var out []models.ContentItem
	seen := make(map[string]bool)

	for _, tier := range tiers {
		if len(out) >= minCount {
			break
		}
		for _, item := range tier() {
			key := item.ContentHash
			if key == "" {
				key = item.CanonicalURL
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, item)
		}
	}

	return out
}

// Domain extracts the registrable-ish host used for diversity capping
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

func truncate(items []models.ContentItem, limit int) []models.ContentItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
