package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/feedpulse/feedpulse/internal/models"
)

// maxPageSize is the provider's hard page-size ceiling
const maxPageSize = 10

// Request describes one search call
type Request struct {
	Query        string
	Site         string // optional site: restriction
	PageSize     int
	DateRestrict string // provider syntax, e.g. "d7" for the last week
}

// Result is the tagged outcome of a search call. A provider-side quota
// response surfaces as QuotaExceeded, to be handled exactly like a
// local budget short-circuit.
type Result struct {
	Items         []models.RawSearchResult
	QuotaExceeded bool
	Err           error
}

// Provider is the search collaborator contract
type Provider interface {
	Search(ctx context.Context, req Request) Result
}

// Client calls the HTTP search provider
type Client struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

var _ Provider = (*Client)(nil)

// NewClient creates a search client with a bounded timeout
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "feedpulse/1.0"),
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

// wire shapes; every field may be absent in a malformed response
type searchResponse struct {
	Items []searchItem `json:"items"`
	Error string       `json:"error"`
}

type searchItem struct {
	URL     string `json:"url"`
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func (c *Client) Search(ctx context.Context, req Request) Result {
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	query := req.Query
	if req.Site != "" {
		query = fmt.Sprintf("site:%s %s", req.Site, req.Query)
	}

	r := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("num", fmt.Sprintf("%d", pageSize)).
		SetQueryParam("key", c.apiKey)
	if req.DateRestrict != "" {
		r.SetQueryParam("dateRestrict", req.DateRestrict)
	}

	resp, err := r.Get(c.endpoint)
	if err != nil {
		return Result{Err: fmt.Errorf("search request: %w", err)}
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return Result{QuotaExceeded: true}
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return Result{Err: fmt.Errorf("parse search response: %w", err)}
	}

	if parsed.Error == "quota_exceeded" {
		return Result{QuotaExceeded: true}
	}
	if parsed.Error != "" {
		return Result{Err: fmt.Errorf("search provider: %s", parsed.Error)}
	}
	if resp.StatusCode() != http.StatusOK {
		return Result{Err: fmt.Errorf("search provider returned status %d", resp.StatusCode())}
	}

	items := make([]models.RawSearchResult, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		link := item.URL
		if link == "" {
			link = item.Link
		}
		if link == "" {
			// Malformed entry degrades that single item, not the call
			logrus.Debugf("Search item %d for %q has no URL, skipping", i, req.Query)
			continue
		}
		raw, _ := json.Marshal(item)
		items = append(items, models.RawSearchResult{
			URL:     link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Rank:    i + 1,
			Raw:     raw,
		})
	}

	return Result{Items: items}
}
