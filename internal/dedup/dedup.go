package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/feedpulse/feedpulse/internal/models"
	"github.com/feedpulse/feedpulse/internal/store"
)

// textPrefixLen bounds hash computation cost. Long articles differing
// only in a trailing section deliberately collapse to the same hash:
// fewer duplicates beats exact-content fidelity here.
const textPrefixLen = 2000

// ContentHash is SHA-256 over the title and the leading text prefix,
// the strong dedup key
func ContentHash(title, text string) string {
	runes := []rune(text)
	if len(runes) > textPrefixLen {
		text = string(runes[:textPrefixLen])
	}
	sum := sha256.Sum256([]byte(title + text))
	return hex.EncodeToString(sum[:])
}

// Index answers duplicate checks against persisted items
type Index struct {
	store store.ItemStore
}

// NewIndex creates a dedup index over the item store
func NewIndex(itemStore store.ItemStore) *Index {
	return &Index{store: itemStore}
}

// FindDuplicate runs the two-tier check: normalized URL first (cheap,
// catches refetches of the same page), then content hash (catches the
// same content republished under a different URL). Returns the
// existing item, or nil when the candidate is new.
func (i *Index) FindDuplicate(ctx context.Context, normalizedURL, contentHash string) (*models.ContentItem, error) {
	if normalizedURL != "" {
		existing, found, err := i.store.ArticleByNormalizedURL(ctx, normalizedURL)
		if err != nil {
			return nil, err
		}
		if found {
			return existing, nil
		}
	}

	if contentHash != "" {
		existing, found, err := i.store.ArticleByContentHash(ctx, contentHash)
		if err != nil {
			return nil, err
		}
		if found {
			return existing, nil
		}
	}

	return nil, nil
}
