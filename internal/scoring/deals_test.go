package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDealRelevanceBonuses(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-24 * time.Hour)

	plain := DealRelevanceScore("some deal", "nothing special here", "example.com", &fresh, now)
	assert.InDelta(t, dealBaseConfidence, plain, 1e-9)

	bank := DealRelevanceScore("Chase $300 checking bonus", "confirmed DP: direct deposit required", "example.com", &fresh, now)
	// base + bank 0.15 + amount 0.20 + confirmed 0.15 + direct deposit 0.10
	assert.InDelta(t, 0.30+0.15+0.20+0.15+0.10, bank, 1e-9)
}

func TestDealAgeDecay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	title, text := "Chase $300 bonus", "new customer offer"

	fresh := now.Add(-10 * 24 * time.Hour)
	stale := now.Add(-45 * 24 * time.Hour)
	dead := now.Add(-90 * 24 * time.Hour)

	freshScore := DealRelevanceScore(title, text, "example.com", &fresh, now)
	staleScore := DealRelevanceScore(title, text, "example.com", &stale, now)
	deadScore := DealRelevanceScore(title, text, "example.com", &dead, now)

	assert.InDelta(t, freshScore*0.75, staleScore, 1e-9)
	assert.InDelta(t, freshScore*0.5, deadScore, 1e-9)
}

func TestDealDomainTrust(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Hour)
	title, text := "Chase $300 bonus", "plain terms"

	neutral := DealRelevanceScore(title, text, "example.com", &fresh, now)
	trusted := DealRelevanceScore(title, text, "doctorofcredit.com", &fresh, now)
	lowTrust := DealRelevanceScore(title, text, "retailmenot.com", &fresh, now)

	assert.InDelta(t, neutral*1.2, trusted, 1e-9)
	assert.InDelta(t, neutral*0.8, lowTrust, 1e-9)
	assert.Greater(t, trusted, neutral)
	assert.Less(t, lowTrust, neutral)
}

func TestLocaleFriendliness(t *testing.T) {
	easy := LocaleFriendlinessScore("McDonald's BOGO", "order online in the app, no minimum, all customers")
	hard := LocaleFriendlinessScore("Targeted offer", "YMMV, manual approval, mail-in rebate, must combine with coupon")

	assert.Greater(t, easy, localeBaseline)
	assert.Less(t, hard, localeBaseline)
}

// No input combination of bonuses may ever escape [0,1]
func TestDealScoresAlwaysCapped(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Hour)

	everything := "Chase wells fargo citi $500 bonus confirmed DP direct deposit ssn required " +
		"new customer promo code early termination clawback in the app order online % off bogo " +
		"no minimum everyone costco walmart target starbucks"

	rel := DealRelevanceScore(everything, everything, "doctorofcredit.com", &fresh, now)
	loc := LocaleFriendlinessScore(everything, everything)

	assert.GreaterOrEqual(t, rel, 0.0)
	assert.LessOrEqual(t, rel, 1.0)
	assert.GreaterOrEqual(t, loc, 0.0)
	assert.LessOrEqual(t, loc, 1.0)

	allPenalties := "ymmv manual approval stack with rebate multiple locations targeted offer invite only"
	locLow := LocaleFriendlinessScore(allPenalties, allPenalties)
	assert.GreaterOrEqual(t, locLow, 0.0)

	assert.LessOrEqual(t, DealScore(rel, loc), 1.0)
	assert.GreaterOrEqual(t, DealScore(0, 0), 0.0)
}

func TestDealScoreBlend(t *testing.T) {
	assert.InDelta(t, 0.7*0.8+0.3*0.5, DealScore(0.8, 0.5), 1e-9)
	// Relevance dominates but poor redeemability drags, never disqualifies
	assert.Greater(t, DealScore(1.0, 0.0), 0.5)
}
