package fetcher

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	readability "github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"
)

// Outcome makes every fallback branch of a fetch explicit
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeLoginWalled
	OutcomeTooShort
	OutcomeNetworkError
)

// Result is what a fetch produced. Anything but OutcomeSuccess carries
// no usable content.
type Result struct {
	Outcome     Outcome
	Title       string
	Text        string
	PublishedAt *time.Time
}

// minTextLen is the shortest extraction considered usable
const minTextLen = 200

// loginWallRatio rejects pages whose extraction is mostly sign-in boilerplate
const loginWallRatio = 0.25

// Site-specific content selectors tried before the generic ones
var siteSelectors = map[string][]string{
	"voz.vn":             {".message-body .bbWrapper"},
	"reddit.com":         {"shreddit-post", ".md"},
	"nguoi-viet.com":     {".entry-content"},
	"vietbao.com":        {".article-body"},
	"doctorofcredit.com": {".entry-content"},
}

var genericSelectors = []string{
	"article", "main", ".post-content", ".entry-content", "#content",
}

// Fetcher retrieves pages and extracts readable text. It never returns
// an error: every failure mode collapses into a Result outcome.
type Fetcher struct {
	client       *resty.Client
	loginPhrases []string
}

// New creates a fetcher with a bounded request timeout
func New(timeout time.Duration, loginPhrases []string) *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "feedpulse/1.0"),
		loginPhrases: loginPhrases,
	}
}

// Fetch downloads the page and runs readability extraction first,
// falling back to structural selectors and finally whole-body text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		logrus.Debugf("Fetch failed for %s: %v", rawURL, err)
		return Result{Outcome: OutcomeNetworkError}
	}
	if resp.StatusCode() != 200 {
		logrus.Debugf("Fetch for %s returned status %d", rawURL, resp.StatusCode())
		return Result{Outcome: OutcomeNetworkError}
	}

	return f.Extract(string(resp.Body()), rawURL)
}

// Extract runs the extraction chain over already-downloaded HTML
func (f *Fetcher) Extract(html, rawURL string) Result {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	var title, text string
	var publishedAt *time.Time

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err == nil {
		title = strings.TrimSpace(article.Title)
		text = strings.TrimSpace(article.TextContent)
		publishedAt = article.PublishedTime
	}

	if len(text) < minTextLen {
		if fallbackText := f.extractBySelectors(html, pageURL.Host); fallbackText != "" {
			text = fallbackText
		}
		if title == "" {
			title = extractTitle(html)
		}
	}

	return f.classify(title, text, publishedAt)
}

func (f *Fetcher) extractBySelectors(html, host string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	selectors := append(append([]string{}, siteSelectors[host]...), genericSelectors...)

	for _, selector := range selectors {
		if text := collapseWhitespace(doc.Find(selector).Text()); len(text) >= minTextLen {
			return text
		}
	}

	// Last resort: whole-body text
	return collapseWhitespace(doc.Find("body").Text())
}

// classify applies the login-wall and length checks to an extraction
func (f *Fetcher) classify(title, text string, publishedAt *time.Time) Result {
	if text == "" {
		return Result{Outcome: OutcomeTooShort}
	}

	lower := strings.ToLower(text)
	phraseChars := 0
	phraseHit := false
	for _, phrase := range f.loginPhrases {
		p := strings.ToLower(phrase)
		if n := strings.Count(lower, p); n > 0 {
			phraseHit = true
			phraseChars += n * len(p)
		}
	}

	if phraseHit && float64(phraseChars)/float64(len(text)) > loginWallRatio {
		return Result{Outcome: OutcomeLoginWalled}
	}
	if len(text) < minTextLen {
		if phraseHit {
			return Result{Outcome: OutcomeLoginWalled}
		}
		return Result{Outcome: OutcomeTooShort}
	}

	return Result{
		Outcome:     OutcomeSuccess,
		Title:       title,
		Text:        text,
		PublishedAt: publishedAt,
	}
}

func extractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
