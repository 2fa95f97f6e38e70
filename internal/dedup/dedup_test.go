package dedup

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/feedpulse/feedpulse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash("Title", "body text")
	b := ContentHash("Title", "body text")
	c := ContentHash("Other", "body text")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestContentHashPrefixTruncation(t *testing.T) {
	prefix := strings.Repeat("a", textPrefixLen)

	// Long articles differing only past the prefix collapse together
	assert.Equal(t,
		ContentHash("T", prefix+"trailing section one"),
		ContentHash("T", prefix+"completely different ending"),
	)

	// A difference inside the prefix still separates them
	assert.NotEqual(t,
		ContentHash("T", "x"+prefix),
		ContentHash("T", "y"+prefix),
	)
}

func TestFindDuplicateTwoTier(t *testing.T) {
	ctx := context.Background()
	itemStore := store.NewMemoryStore()
	index := NewIndex(itemStore)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	existing := &models.ContentItem{
		CanonicalURL:  "https://a.com/post",
		NormalizedURL: "https://a.com/post",
		ContentHash:   ContentHash("Post", "body"),
		Title:         "Post",
		Category:      models.CategoryForum,
		FetchedAt:     base,
	}
	_, err := itemStore.UpsertArticle(ctx, existing)
	require.NoError(t, err)

	// Tier one: same normalized URL
	dup, err := index.FindDuplicate(ctx, "https://a.com/post", "different-hash")
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, existing.ID, dup.ID)

	// Tier two: same content republished under a different URL
	dup, err = index.FindDuplicate(ctx, "https://mirror.com/post", ContentHash("Post", "body"))
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, existing.ID, dup.ID)

	// Genuinely new content
	dup, err = index.FindDuplicate(ctx, "https://new.com/x", ContentHash("New", "thing"))
	require.NoError(t, err)
	assert.Nil(t, dup)
}
