package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGossipScoreTopics(t *testing.T) {
	snippet := strings.Repeat("x", gossipMinSnippetLen) // avoid the thin-snippet penalty

	base := GossipScore("plain title", snippet, "example.com")
	drama := GossipScore("Scandal erupts over community fundraiser", snippet, "example.com")

	assert.InDelta(t, gossipBaseline, base, 1e-9)
	assert.InDelta(t, gossipBaseline+0.20+0.15, drama, 1e-9)
}

func TestGossipCelebrityNeedsLocale(t *testing.T) {
	snippet := strings.Repeat("x", gossipMinSnippetLen)

	celebrityOnly := GossipScore("Famous singer spotted", snippet, "example.com")
	celebrityLocal := GossipScore("Famous singer spotted in Little Saigon", snippet, "example.com")

	assert.InDelta(t, gossipBaseline-0.15, celebrityOnly, 1e-9)
	assert.InDelta(t, gossipBaseline, celebrityLocal, 1e-9)
}

func TestGossipPenalties(t *testing.T) {
	snippet := strings.Repeat("x", gossipMinSnippetLen)

	wire := GossipScore("Event coverage", "officials said the event went well "+snippet, "example.com")
	assert.InDelta(t, gossipBaseline-0.10, wire, 1e-9)

	junk := GossipScore("Event coverage", snippet, "somegossip.blogspot.com")
	assert.InDelta(t, gossipBaseline-0.20, junk, 1e-9)

	thin := GossipScore("Event coverage", "too short", "example.com")
	assert.InDelta(t, gossipBaseline-0.10, thin, 1e-9)
}

func TestGossipScoreClamped(t *testing.T) {
	worst := GossipScore("singer", "short", "x.blogspot.com")
	assert.GreaterOrEqual(t, worst, 0.0)

	best := GossipScore(
		"Scandal: dating drama at the Little Saigon concert and Tet festival",
		strings.Repeat("community lunar new year ", 10),
		"example.com",
	)
	assert.LessOrEqual(t, best, 1.0)
}
