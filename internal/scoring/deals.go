package scoring

import (
	"regexp"
	"strings"
	"time"
)

// Deal scoring: an additive relevance rubric, age-decayed and
// domain-trust-adjusted, blended 70/30 with a locale-friendliness
// score. Relevance dominates, but a deal that is hard to actually
// redeem is down-weighted, never disqualified.
const (
	dealBaseConfidence = 0.30
	dealWeightBase     = 0.7
	dealWeightLocale   = 0.3
	localeBaseline     = 0.5
)

// Deals decay on a coarser clock than articles: stale after a month,
// mostly dead after two.
const (
	dealStaleDays = 30
	dealDeadDays  = 60
)

var bonusAmountPattern = regexp.MustCompile(`\$\d{2,}`)

var dealRelevanceRules = []keywordRule{
	{keywords: []string{"chase", "wells fargo", "bank of america", "citi", "discover", "amex", "capital one", "sofi", "us bank"}, weight: 0.15},
	{keywords: []string{"confirmed", "dp:", "data point", "datapoint"}, weight: 0.15},
	{keywords: []string{"direct deposit", "dd required", "payroll deposit"}, weight: 0.10},
	{keywords: []string{"ssn required", "itin", "id verification", "identity verification"}, weight: 0.10},
	{keywords: []string{"new customer", "new member", "first time", "new account"}, weight: 0.05},
	{keywords: []string{"in-branch", "online only", "in app", "promo code", "referral link"}, weight: 0.05},
	{keywords: []string{"early termination", "clawback", "account must remain open", "keep the account open"}, weight: 0.05},
}

var localeFriendlyRules = []keywordRule{
	{keywords: []string{"in the app", "app only", "order online", "online order", "mobile order"}, weight: 0.15},
	{keywords: []string{"% off", "percent off", "free with purchase", "bogo", "buy one get one"}, weight: 0.15},
	{keywords: []string{"no minimum", "no purchase necessary"}, weight: 0.10},
	{keywords: []string{"minimum purchase", "min purchase"}, weight: 0.05},
	{keywords: []string{"everyone", "all customers", "no membership", "no coupon needed"}, weight: 0.10},
	{keywords: []string{"costco", "walmart", "target", "cvs", "walgreens", "mcdonald's", "starbucks", "h mart", "99 ranch"}, weight: 0.10},
	{keywords: []string{"ymmv", "your mileage may vary", "targeted offer", "select accounts"}, weight: -0.20},
	{keywords: []string{"manual approval", "call to apply", "branch manager", "invite only"}, weight: -0.15},
	{keywords: []string{"stack with", "stacking", "combine with coupon", "must combine"}, weight: -0.15},
	{keywords: []string{"rebate", "mail-in", "cashback portal", "paid out in", "statement credit after"}, weight: -0.10},
	{keywords: []string{"multiple locations", "per location", "each store", "every branch"}, weight: -0.10},
}

// Curated deal communities and first-party bank domains are boosted;
// scraped coupon aggregators are discounted.
var trustedDealDomains = []string{
	"doctorofcredit.com", "nerdwallet.com", "bankrate.com",
	"chase.com", "wellsfargo.com", "bankofamerica.com", "citi.com", "discover.com",
}

var lowTrustDealDomains = []string{
	"retailmenot.com", "couponbirds.com", "dealsea.com", "coupert.com", "promocodes.com",
}

// DealRelevanceScore accumulates the additive relevance bonuses, then
// applies age decay and the domain-trust multiplier, capped at 1.0
func DealRelevanceScore(title, text, domain string, publishedAt *time.Time, now time.Time) float64 {
	content := title + " " + text

	score := dealBaseConfidence + applyRules(content, dealRelevanceRules)
	if bonusAmountPattern.MatchString(content) {
		score += 0.20
	}

	if publishedAt != nil {
		ageDays := now.Sub(*publishedAt).Hours() / 24
		if ageDays > dealDeadDays {
			score *= 0.5
		} else if ageDays > dealStaleDays {
			score *= 0.75
		}
	}

	domain = strings.ToLower(domain)
	if matchesDomain(domain, trustedDealDomains) {
		score *= 1.2
	} else if matchesDomain(domain, lowTrustDealDomains) {
		score *= 0.8
	}

	return clamp01(score)
}

// LocaleFriendlinessScore estimates how easily the target audience can
// actually redeem a deal, from a neutral 0.5 baseline
func LocaleFriendlinessScore(title, text string) float64 {
	content := title + " " + text
	return clamp01(localeBaseline + applyRules(content, localeFriendlyRules))
}

// DealScore is the persisted 70/30 blend of relevance and
// locale-friendliness, capped at 1.0
func DealScore(relevance, locale float64) float64 {
	return clamp01(dealWeightBase*relevance + dealWeightLocale*locale)
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
