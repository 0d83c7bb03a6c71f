package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"
)

// DefaultAMMBaseURL is the decentralized venue's data API endpoint.
const DefaultAMMBaseURL = "https://data-api.amm-venue.com"

// AMMPosition is an open position on the decentralized venue, keyed by
// the wallet that holds it.
type AMMPosition struct {
	ConditionID string    `json:"condition_id"`
	TokenID     string    `json:"token_id"`
	Question    string    `json:"question"`
	Outcome     string    `json:"outcome"` // "Yes" or "No"
	Shares      float64   `json:"shares"`
	AvgPrice    float64   `json:"avg_price"`
	CurPrice    float64   `json:"cur_price"`
	EndDate     time.Time `json:"end_date"`
}

// BookTop is the top of an order book for one token.
type BookTop struct {
	TokenID string  `json:"token_id"`
	BestBid float64 `json:"best_bid"`
	BestAsk float64 `json:"best_ask"`
}

// Mid returns the mid price, or 0 when either side is empty.
func (b BookTop) Mid() float64 {
	if b.BestBid <= 0 || b.BestAsk <= 0 {
		return 0
	}
	return (b.BestBid + b.BestAsk) / 2
}

// AMMClient reads wallet positions and book tops from the decentralized
// venue's data API.
type AMMClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// AMMOption configures the client.
type AMMOption func(*AMMClient)

// WithAMMBaseURL sets a custom base URL.
func WithAMMBaseURL(url string) AMMOption {
	return func(c *AMMClient) {
		c.baseURL = url
	}
}

// WithAMMHTTPClient sets a custom HTTP client.
func WithAMMHTTPClient(hc *http.Client) AMMOption {
	return func(c *AMMClient) {
		c.httpClient = hc
	}
}

// NewAMMClient creates a client for the decentralized venue.
func NewAMMClient(opts ...AMMOption) *AMMClient {
	c := &AMMClient{
		baseURL:    DefaultAMMBaseURL,
		httpClient: newHTTPClient(),
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeAddress validates a wallet address and returns its checksum
// form. Rejecting bad addresses here keeps garbage out of position
// queries.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid wallet address %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// Positions fetches the open positions held by a wallet.
func (c *AMMClient) Positions(ctx context.Context, address string) ([]AMMPosition, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("user", addr)

	var positions []AMMPosition
	if err := getJSON(ctx, c.httpClient, c.limiter, c.baseURL, "/positions", params, nil, &positions); err != nil {
		return nil, fmt.Errorf("amm positions %s: %w", addr, err)
	}
	return positions, nil
}

// BookTop fetches the top of book for a token.
func (c *AMMClient) BookTop(ctx context.Context, tokenID string) (*BookTop, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("token id is required")
	}

	params := url.Values{}
	params.Set("token_id", tokenID)

	var top BookTop
	if err := getJSON(ctx, c.httpClient, c.limiter, c.baseURL, "/book/top", params, nil, &top); err != nil {
		return nil, fmt.Errorf("amm book top %s: %w", tokenID, err)
	}
	return &top, nil
}
