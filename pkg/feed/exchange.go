package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultExchangeBaseURL is the regulated exchange API endpoint.
const DefaultExchangeBaseURL = "https://api.exchange-venue.com/trade-api/v2"

// ExchangePosition is an open position on the regulated exchange.
// Prices are quoted in cents per share. AvgPriceCents is the average
// fill price of the held side, in that side's own space: a no position
// filled at 60c reports 60, not 40. LastPriceCents is always the yes
// side's last trade, the exchange's market quote.
type ExchangePosition struct {
	Ticker         string    `json:"ticker"`
	Title          string    `json:"title"`
	Side           string    `json:"side"` // "yes" or "no"
	Quantity       int       `json:"quantity"`
	AvgPriceCents  int       `json:"avg_price_cents"`  // held side's space
	LastPriceCents int       `json:"last_price_cents"` // yes space
	CloseTime      time.Time `json:"close_time"`
}

// ExchangeClient reads a connected account's positions from the
// regulated exchange. The API key is a decrypted per-user credential
// supplied by the caller; this package never handles encryption.
type ExchangeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ExchangeOption configures the client.
type ExchangeOption func(*ExchangeClient)

// WithExchangeBaseURL sets a custom base URL.
func WithExchangeBaseURL(url string) ExchangeOption {
	return func(c *ExchangeClient) {
		c.baseURL = url
	}
}

// WithExchangeHTTPClient sets a custom HTTP client.
func WithExchangeHTTPClient(hc *http.Client) ExchangeOption {
	return func(c *ExchangeClient) {
		c.httpClient = hc
	}
}

// NewExchangeClient creates an exchange client authenticated with the
// given API key.
func NewExchangeClient(apiKey string, opts ...ExchangeOption) *ExchangeClient {
	c := &ExchangeClient{
		baseURL:    DefaultExchangeBaseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Positions fetches the account's open positions.
func (c *ExchangeClient) Positions(ctx context.Context) ([]ExchangePosition, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("exchange api key is required")
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp struct {
		Positions []ExchangePosition `json:"positions"`
	}
	if err := getJSON(ctx, c.httpClient, c.limiter, c.baseURL, "/portfolio/positions", nil, headers, &resp); err != nil {
		return nil, fmt.Errorf("exchange positions: %w", err)
	}
	return resp.Positions, nil
}
