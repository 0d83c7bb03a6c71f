package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oddsroom/riskcore/pkg/cache"
	"github.com/oddsroom/riskcore/pkg/feed"
	"github.com/oddsroom/riskcore/pkg/metrics"
	"github.com/oddsroom/riskcore/pkg/risk"
)

func h2hGame(id, away, home string, awayOdds, homeOdds float64, commence time.Time) feed.Game {
	return feed.Game{
		ID:           id,
		Sport:        "nfl",
		AwayTeam:     away,
		HomeTeam:     home,
		CommenceTime: commence,
		Markets: []feed.GameMarket{
			{Key: "h2h", Outcomes: []feed.GameOutcome{
				{Key: away, Price: awayOdds},
				{Key: home, Price: homeOdds},
			}},
		},
	}
}

// newTestServer serves a slate (games stripped of markets, like the
// real list endpoint) and full per-game odds, counting game fetches.
func newTestServer(t *testing.T, games map[string]feed.Game, fail map[string]bool, fetches *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/sports/"):
			var slate []feed.Game
			for _, g := range games {
				thin := g
				thin.Markets = nil
				slate = append(slate, thin)
			}
			json.NewEncoder(w).Encode(slate)
		case strings.HasPrefix(r.URL.Path, "/games/"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/games/"), "/odds")
			fetches.Add(1)
			if fail[id] {
				http.Error(w, "upstream unavailable", http.StatusInternalServerError)
				return
			}
			g, ok := games[id]
			if !ok {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(g)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
}

func newTestAggregator(srvURL string) (*Aggregator, *cache.Cache[feed.Game]) {
	oddsCache := cache.New[feed.Game](time.Minute, 2*time.Minute)
	client := feed.NewSportsbookClient("test-key",
		feed.WithSportsbookBaseURL(srvURL),
		feed.WithSportsbookRateLimit(1000, 100),
	)
	return NewAggregator(oddsCache, client, risk.NewEngine(0.5), metrics.NewPipelineMetrics()), oddsCache
}

func TestRecommendedBetsValidation(t *testing.T) {
	agg, _ := newTestAggregator("http://127.0.0.1:0")

	if _, err := agg.RecommendedBets(context.Background(), "", 5); err == nil {
		t.Error("expected error for empty domain")
	}
	if _, err := agg.RecommendedBets(context.Background(), "nfl", 0); err == nil {
		t.Error("expected error for zero limit")
	}
	if _, err := agg.RecommendedBets(context.Background(), "nfl", -3); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestRecommendedBetsRanking(t *testing.T) {
	commence := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	games := map[string]feed.Game{
		// No overround: fair price equals the quote, edge 0.
		"fair": h2hGame("fair", "Jets", "Bills", 2.0, 2.0, commence),
		// Heavy vig: every outcome costs more than fair, edge < 0.
		"vig": h2hGame("vig", "Eagles", "Cowboys", 1.8, 1.8, commence.Add(time.Hour)),
	}
	var fetches atomic.Int64
	srv := newTestServer(t, games, nil, &fetches)
	defer srv.Close()

	agg, _ := newTestAggregator(srv.URL)
	opps, err := agg.RecommendedBets(context.Background(), "nfl", 10)
	if err != nil {
		t.Fatalf("RecommendedBets: %v", err)
	}
	if len(opps) != 4 {
		t.Fatalf("expected 4 opportunities, got %d", len(opps))
	}

	for i, opp := range opps[:2] {
		if !strings.Contains(opp.Contract.ID, ":fair:") {
			t.Errorf("rank %d: expected zero-vig game first, got %s", i, opp.Contract.ID)
		}
		if !opp.EdgePerShare.IsZero() {
			t.Errorf("rank %d: expected zero edge, got %s", i, opp.EdgePerShare)
		}
	}
	for i, opp := range opps[2:] {
		if !strings.Contains(opp.Contract.ID, ":vig:") {
			t.Errorf("rank %d: expected vigged game last, got %s", i+2, opp.Contract.ID)
		}
		if !opp.EdgePerShare.IsNegative() {
			t.Errorf("rank %d: expected negative edge under vig, got %s", i+2, opp.EdgePerShare)
		}
	}
}

func TestRecommendedBetsTieBreakAndLimit(t *testing.T) {
	early := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	late := early.Add(6 * time.Hour)
	games := map[string]feed.Game{
		"later":  h2hGame("later", "Chiefs", "Raiders", 2.0, 2.0, late),
		"sooner": h2hGame("sooner", "Jets", "Bills", 2.0, 2.0, early),
	}
	var fetches atomic.Int64
	srv := newTestServer(t, games, nil, &fetches)
	defer srv.Close()

	agg, _ := newTestAggregator(srv.URL)
	opps, err := agg.RecommendedBets(context.Background(), "nfl", 2)
	if err != nil {
		t.Fatalf("RecommendedBets: %v", err)
	}
	if len(opps) != 2 {
		t.Fatalf("expected limit to truncate to 2, got %d", len(opps))
	}
	// All edges tie at zero, so the sooner-resolving game wins.
	for i, opp := range opps {
		if !strings.Contains(opp.Contract.ID, ":sooner:") {
			t.Errorf("rank %d: expected sooner game on tie, got %s", i, opp.Contract.ID)
		}
		if !opp.Contract.ResolutionTime.Equal(early) {
			t.Errorf("rank %d: resolution time = %v, want %v", i, opp.Contract.ResolutionTime, early)
		}
	}
}

func TestRecommendedBetsPartialFailure(t *testing.T) {
	commence := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	games := map[string]feed.Game{
		"good": h2hGame("good", "Jets", "Bills", 2.0, 2.0, commence),
		"bad":  h2hGame("bad", "Eagles", "Cowboys", 1.9, 1.9, commence),
	}
	var fetches atomic.Int64
	srv := newTestServer(t, games, map[string]bool{"bad": true}, &fetches)
	defer srv.Close()

	agg, _ := newTestAggregator(srv.URL)
	opps, err := agg.RecommendedBets(context.Background(), "nfl", 10)
	if err != nil {
		t.Fatalf("one failed game must not abort the batch: %v", err)
	}
	if len(opps) != 2 {
		t.Fatalf("expected 2 opportunities from the surviving game, got %d", len(opps))
	}
	for _, opp := range opps {
		if strings.Contains(opp.Contract.ID, ":bad:") {
			t.Errorf("failed game leaked into results: %s", opp.Contract.ID)
		}
	}
}

func TestRecommendedBetsCacheHit(t *testing.T) {
	commence := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	games := map[string]feed.Game{
		"g1": h2hGame("g1", "Jets", "Bills", 2.0, 2.0, commence),
	}
	var fetches atomic.Int64
	srv := newTestServer(t, games, nil, &fetches)
	defer srv.Close()

	agg, oddsCache := newTestAggregator(srv.URL)

	for i := 0; i < 3; i++ {
		opps, err := agg.RecommendedBets(context.Background(), "nfl", 10)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if len(opps) != 2 {
			t.Fatalf("call %d: expected 2 opportunities, got %d", i, len(opps))
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("expected 1 upstream game fetch across repeat calls, got %d", got)
	}
	if _, err := oddsCache.Get("g1"); err != nil {
		t.Errorf("expected fetched game in cache: %v", err)
	}
}

func TestRecommendedBetsEmptySlate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	agg, _ := newTestAggregator(srv.URL)
	opps, err := agg.RecommendedBets(context.Background(), "nfl", 5)
	if err != nil {
		t.Fatalf("empty slate is not an error: %v", err)
	}
	if len(opps) != 0 {
		t.Errorf("expected no opportunities, got %d", len(opps))
	}
}
