package scoring

import "strings"

// keywordRule pairs a trigger keyword set with a weight. A rule fires
// at most once no matter how many of its keywords match.
type keywordRule struct {
	keywords []string
	weight   float64
}

// applyRules lowercases the text and sums the weight of every rule
// with at least one matching keyword
func applyRules(text string, rules []keywordRule) float64 {
	text = strings.ToLower(text)
	total := 0.0
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				total += rule.weight
				break
			}
		}
	}
	return total
}

func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
