package sources

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/feedpulse/feedpulse/internal/ingest"
)

// RSS pulls configured feeds as a secondary source. Feed entries carry
// their own title, summary and timestamp, so they bypass the page
// fetcher entirely.
type RSS struct {
	parser   *gofeed.Parser
	feedURLs []string
	timeout  time.Duration
}

// NewRSS creates an RSS source over the given feed URLs
func NewRSS(feedURLs []string, timeout time.Duration) *RSS {
	return &RSS{
		parser:   gofeed.NewParser(),
		feedURLs: feedURLs,
		timeout:  timeout,
	}
}

// FetchAll parses every configured feed and returns the combined
// entries. A feed that fails to parse is logged and skipped.
func (r *RSS) FetchAll(ctx context.Context) []ingest.FeedItem {
	var items []ingest.FeedItem

	for _, feedURL := range r.feedURLs {
		feedCtx, cancel := context.WithTimeout(ctx, r.timeout)
		feed, err := r.parser.ParseURLWithContext(feedURL, feedCtx)
		cancel()
		if err != nil {
			logrus.Errorf("RSS parse failed for %s: %v", feedURL, err)
			continue
		}

		for _, entry := range feed.Items {
			if entry.Link == "" {
				continue
			}
			summary := entry.Description
			if summary == "" {
				summary = entry.Content
			}
			items = append(items, ingest.FeedItem{
				URL:         entry.Link,
				Title:       entry.Title,
				Summary:     summary,
				PublishedAt: entry.PublishedParsed,
			})
		}
		logrus.Debugf("RSS feed %s yielded %d entries", feedURL, len(feed.Items))
	}

	return items
}
