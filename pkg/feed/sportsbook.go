package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultSportsbookBaseURL is the default odds feed endpoint.
const DefaultSportsbookBaseURL = "https://api.the-odds-feed.com/v4"

// Game is one upcoming or live game with its quoted markets.
type Game struct {
	ID           string       `json:"id"`
	Sport        string       `json:"sport_key"`
	AwayTeam     string       `json:"away_team"`
	HomeTeam     string       `json:"home_team"`
	CommenceTime time.Time    `json:"commence_time"`
	Markets      []GameMarket `json:"markets"`
}

// GameMarket is one market on a game: moneyline, spread or total.
type GameMarket struct {
	Key      string        `json:"key"`
	Outcomes []GameOutcome `json:"outcomes"`
}

// GameOutcome is one priced outcome. Price is decimal odds as quoted;
// Point is present for spreads and totals only.
type GameOutcome struct {
	Key   string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// SportsbookClient fetches game odds from the sportsbook feed.
type SportsbookClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// SportsbookOption configures the client.
type SportsbookOption func(*SportsbookClient)

// WithSportsbookBaseURL sets a custom base URL.
func WithSportsbookBaseURL(url string) SportsbookOption {
	return func(c *SportsbookClient) {
		c.baseURL = url
	}
}

// WithSportsbookHTTPClient sets a custom HTTP client.
func WithSportsbookHTTPClient(hc *http.Client) SportsbookOption {
	return func(c *SportsbookClient) {
		c.httpClient = hc
	}
}

// WithSportsbookRateLimit sets custom rate limiting.
func WithSportsbookRateLimit(rps float64, burst int) SportsbookOption {
	return func(c *SportsbookClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewSportsbookClient creates a sportsbook feed client. The API key is
// passed as a query parameter on every request, matching the feed's
// auth scheme.
func NewSportsbookClient(apiKey string, opts ...SportsbookOption) *SportsbookClient {
	c := &SportsbookClient{
		baseURL:    DefaultSportsbookBaseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Slate fetches all quoted games for a sport.
func (c *SportsbookClient) Slate(ctx context.Context, sport string) ([]Game, error) {
	if sport == "" {
		return nil, fmt.Errorf("sport is required")
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("markets", "h2h,spreads,totals")

	var games []Game
	if err := getJSON(ctx, c.httpClient, c.limiter, c.baseURL, "/sports/"+sport+"/odds", params, nil, &games); err != nil {
		return nil, fmt.Errorf("sportsbook slate %s: %w", sport, err)
	}
	return games, nil
}

// GameOdds fetches the current odds for a single game.
func (c *SportsbookClient) GameOdds(ctx context.Context, gameID string) (*Game, error) {
	if gameID == "" {
		return nil, fmt.Errorf("game id is required")
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)

	var game Game
	if err := getJSON(ctx, c.httpClient, c.limiter, c.baseURL, "/games/"+gameID+"/odds", params, nil, &game); err != nil {
		return nil, fmt.Errorf("sportsbook game %s: %w", gameID, err)
	}
	return &game, nil
}
