package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Tin Cộng Đồng</title>
    <item>
      <title>Hội chợ Tết Westminster</title>
      <link>https://example.com/tet-festival</link>
      <description>Hội chợ Tết năm nay tại Westminster mở cửa ba ngày.</description>
      <pubDate>Mon, 02 Feb 2026 08:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No link entry</title>
      <description>dropped</description>
    </item>
  </channel>
</rss>`

func TestFetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleFeed)
	}))
	defer server.Close()

	items := NewRSS([]string{server.URL}, 5*time.Second).FetchAll(context.Background())

	require.Len(t, items, 1, "entries without a link are dropped")
	assert.Equal(t, "https://example.com/tet-festival", items[0].URL)
	assert.Equal(t, "Hội chợ Tết Westminster", items[0].Title)
	assert.Contains(t, items[0].Summary, "Westminster")
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, 2026, items[0].PublishedAt.Year())
}

func TestFetchAllSkipsBrokenFeeds(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not xml at all")
	}))
	defer broken.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleFeed)
	}))
	defer good.Close()

	items := NewRSS([]string{broken.URL, good.URL}, 5*time.Second).FetchAll(context.Background())

	assert.Len(t, items, 1, "one broken feed must not block the others")
}
