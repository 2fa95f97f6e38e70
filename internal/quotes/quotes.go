package quotes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Provider is the quote collaborator contract
type Provider interface {
	// GetPrice returns the current price; false means unavailable
	GetPrice(ctx context.Context, ticker string) (float64, bool)
}

// Client fetches spot prices from the quote provider
type Client struct {
	client   *resty.Client
	endpoint string
}

var _ Provider = (*Client)(nil)

// NewClient creates a quote client
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "feedpulse/1.0"),
		endpoint: endpoint,
	}
}

type quoteResponse struct {
	Price float64 `json:"price"`
}

func (c *Client) GetPrice(ctx context.Context, ticker string) (float64, bool) {
	if c.endpoint == "" {
		return 0, false
	}

	var parsed quoteResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", strings.ToUpper(ticker)).
		SetResult(&parsed).
		Get(c.endpoint)
	if err != nil {
		logrus.Debugf("Quote fetch for %s failed: %v", ticker, err)
		return 0, false
	}
	if resp.StatusCode() != http.StatusOK || parsed.Price <= 0 {
		return 0, false
	}
	return parsed.Price, true
}

// CurrentValue prices a position, degrading to its cost basis when the
// provider cannot supply a price
func CurrentValue(ctx context.Context, provider Provider, ticker string, shares, costBasis float64) float64 {
	price, ok := provider.GetPrice(ctx, ticker)
	if !ok {
		return costBasis
	}
	return price * shares
}
