package ingest

import (
	"context"
	"strings"
)

// Enrichment is the condensed form of an item computed before persistence
type Enrichment struct {
	Summary  string
	Entities []string
	City     string
}

// Enricher condenses extracted text into a summary, named entities and
// a city tag. The pipeline treats it as a black box so a provider-backed
// implementation can replace the in-process default.
type Enricher interface {
	Enrich(ctx context.Context, title, text string) Enrichment
}

// summaryMaxRunes bounds the leading-sentence summary
const summaryMaxRunes = 280

// Entities the corpus cares about: banks, stores and community anchors
// that feed the deal and locale rubrics downstream
var knownEntities = []string{
	"chase", "wells fargo", "bank of america", "citi", "capital one",
	"costco", "walmart", "target", "h mart", "99 ranch",
	"mcdonald's", "starbucks", "taco bell",
	"little saigon", "phuoc loc tho", "asian garden mall",
}

// Cities with sizable Vietnamese-American communities, checked in order
var knownCities = []string{
	"westminster", "garden grove", "san jose", "houston",
	"orange county", "seattle", "philadelphia", "atlanta", "dallas",
}

// keywordEnricher is the in-process default: leading-sentence summary
// plus curated entity and city spotting
type keywordEnricher struct{}

var _ Enricher = keywordEnricher{}

func (keywordEnricher) Enrich(_ context.Context, title, text string) Enrichment {
	content := strings.ToLower(title + " " + text)

	var entities []string
	for _, entity := range knownEntities {
		if strings.Contains(content, entity) {
			entities = append(entities, entity)
		}
	}

	var city string
	for _, candidate := range knownCities {
		if strings.Contains(content, candidate) {
			city = candidate
			break
		}
	}

	return Enrichment{
		Summary:  summarize(text),
		Entities: entities,
		City:     city,
	}
}

// summarize keeps leading whole sentences up to the rune bound, cutting
// mid-sentence only when the first sentence alone is too long
func summarize(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= summaryMaxRunes {
		return string(runes)
	}

	window := string(runes[:summaryMaxRunes])
	if idx := strings.LastIndexAny(window, ".!?"); idx > 0 {
		return strings.TrimSpace(window[:idx+1])
	}
	return strings.TrimSpace(window)
}
