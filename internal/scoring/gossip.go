package scoring

import "strings"

// Gossip scoring is its own rubric: topical categories earn fixed
// bonuses, while celebrity-only content, wire-service phrasing, junk
// domains and thin snippets are penalized.
const gossipBaseline = 0.4

var gossipTopicRules = []keywordRule{
	{keywords: []string{"concert", "tour", "show", "liveshow", "music night"}, weight: 0.15},
	{keywords: []string{"dating", "breakup", "wedding", "divorce", "relationship"}, weight: 0.15},
	{keywords: []string{"scandal", "controversy", "lawsuit", "exposed", "drama"}, weight: 0.20},
	{keywords: []string{"community", "fundraiser", "festival", "tet", "lunar new year"}, weight: 0.15},
}

var celebrityTerms = []string{
	"singer", "actor", "actress", "celebrity", "idol", "star", "mc",
}

var gossipLocaleTerms = []string{
	"little saigon", "orange county", "san jose", "houston", "westminster",
	"viet", "vietnamese", "overseas", "hai ngoai",
}

var newsWireTerms = []string{
	"according to reports", "a press release", "officials said", "the ministry",
	"correspondent", "reuters", "associated press",
}

var lowTrustGossipDomains = []string{
	"blogspot.com", "wordpress.com", "weebly.com", "tumblr.com",
}

const gossipMinSnippetLen = 80

// GossipScore rates gossip-type content for the target audience,
// clamped to [0,1]
func GossipScore(title, snippet, domain string) float64 {
	content := title + " " + snippet

	score := gossipBaseline + applyRules(content, gossipTopicRules)

	// Celebrity coverage only counts when it touches the community
	if containsAny(content, celebrityTerms) && !containsAny(content, gossipLocaleTerms) {
		score -= 0.15
	}

	if containsAny(content, newsWireTerms) {
		score -= 0.10
	}

	if matchesDomain(strings.ToLower(domain), lowTrustGossipDomains) {
		score -= 0.20
	}

	if len(snippet) < gossipMinSnippetLen {
		score -= 0.10
	}

	return clamp01(score)
}
