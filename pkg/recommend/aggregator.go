// Package recommend ranks current sportsbook opportunities by their
// mark-to-market edge against de-vigged fair prices. It sits above the
// odds cache, the venue adapters and the risk engine; nothing here
// talks to a venue directly except through the feed clients.
package recommend

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsroom/riskcore/pkg/adapter"
	"github.com/oddsroom/riskcore/pkg/cache"
	"github.com/oddsroom/riskcore/pkg/feed"
	"github.com/oddsroom/riskcore/pkg/market"
	"github.com/oddsroom/riskcore/pkg/metrics"
	"github.com/oddsroom/riskcore/pkg/odds"
	"github.com/oddsroom/riskcore/pkg/risk"
)

// fetchTimeout bounds each detached per-game fetch. Detached because a
// completed fetch still populates the cache for the next caller even
// when this caller has gone away.
const fetchTimeout = 15 * time.Second

// Opportunity is one ranked bet candidate: a notional position against
// the quoted contract, scored by per-share edge relative to the
// de-vigged fair price of its outcome.
type Opportunity struct {
	Contract     market.Contract `json:"contract"`
	Position     market.Position `json:"position"`
	FairPrice    decimal.Decimal `json:"fair_price"`
	EdgePerShare decimal.Decimal `json:"edge_per_share"`
	MarkToMarket decimal.Decimal `json:"mark_to_market"`
}

// Aggregator assembles ranked opportunities from the live slate.
type Aggregator struct {
	cache      *cache.Cache[feed.Game]
	sportsbook *feed.SportsbookClient
	engine     *risk.Engine
	metrics    *metrics.PipelineMetrics
}

// NewAggregator builds an aggregator. A nil metrics collector falls
// back to the default instance.
func NewAggregator(oddsCache *cache.Cache[feed.Game], sportsbook *feed.SportsbookClient, engine *risk.Engine, pm *metrics.PipelineMetrics) *Aggregator {
	if pm == nil {
		pm = metrics.Default()
	}
	return &Aggregator{
		cache:      oddsCache,
		sportsbook: sportsbook,
		engine:     engine,
		metrics:    pm,
	}
}

// RecommendedBets returns up to limit opportunities for the domain,
// best edge first. Per-game fetch failures degrade to an empty result
// for that game; only a failed slate listing is fatal.
func (a *Aggregator) RecommendedBets(ctx context.Context, domain string, limit int) ([]Opportunity, error) {
	if domain == "" {
		return nil, fmt.Errorf("recommend: domain is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("recommend: limit must be positive, got %d", limit)
	}

	slate, err := a.sportsbook.Slate(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("recommend: list slate for %s: %w", domain, err)
	}
	if len(slate) == 0 {
		return nil, nil
	}

	games := a.collectGames(ctx, slate)

	var opps []Opportunity
	for _, g := range games {
		opps = append(opps, a.gameOpportunities(domain, g)...)
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if !opps[i].EdgePerShare.Equal(opps[j].EdgePerShare) {
			return opps[i].EdgePerShare.GreaterThan(opps[j].EdgePerShare)
		}
		return opps[i].Contract.ResolutionTime.Before(opps[j].Contract.ResolutionTime)
	})

	if len(opps) > limit {
		opps = opps[:limit]
	}
	a.metrics.Recommendations.WithLabelValues(domain).Add(float64(len(opps)))
	return opps, nil
}

// collectGames resolves full odds for every game on the slate,
// cache-first, fetching misses concurrently. Partial results are kept:
// a game whose fetch fails is logged and skipped.
func (a *Aggregator) collectGames(ctx context.Context, slate []feed.Game) []feed.Game {
	games := make([]feed.Game, len(slate))
	hit := make([]bool, len(slate))

	for i, g := range slate {
		cached, err := a.cache.Get(g.ID)
		if err == nil {
			games[i] = cached
			hit[i] = true
		}
		a.metrics.RecordCacheLookup("game", err == nil)
	}

	var wg sync.WaitGroup
	for i := range slate {
		if hit[i] {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Detach from the caller so a completed fetch still lands in
			// the cache after cancellation.
			fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
			defer cancel()

			start := time.Now()
			full, err := a.sportsbook.GameOdds(fetchCtx, slate[i].ID)
			a.metrics.RecordFetch("sportsbook", time.Since(start).Seconds(), err)
			if err != nil {
				log.Printf("[recommend] game %s odds fetch failed: %v", slate[i].ID, err)
				return
			}
			a.cache.Set(full.ID, *full)
			games[i] = *full
			hit[i] = true
		}(i)
	}
	wg.Wait()

	out := games[:0]
	for i := range games {
		if hit[i] && len(games[i].Markets) > 0 {
			out = append(out, games[i])
		}
	}
	return out
}

// gameOpportunities scores every recognized outcome of one game. Each
// outcome is analyzed as its own single-position portfolio: a notional
// position at the quoted price, marked against the de-vigged fair
// price of that outcome.
func (a *Aggregator) gameOpportunities(domain string, g feed.Game) []Opportunity {
	var opps []Opportunity
	for _, gm := range g.Markets {
		mt, ok := adapter.MarketTypeForKey(gm.Key)
		if !ok || len(gm.Outcomes) != 2 {
			continue
		}
		fair := fairPrices(gm.Outcomes)
		for i, out := range gm.Outcomes {
			opp, err := a.scoreOutcome(domain, g, mt, out, fair[i])
			if err != nil {
				log.Printf("[recommend] skip %s %s %s: %v", g.ID, gm.Key, out.Key, err)
				continue
			}
			opps = append(opps, opp)
		}
	}
	return opps
}

// fairPrices de-vigs a two-way book multiplicatively.
func fairPrices(outcomes []feed.GameOutcome) [2]float64 {
	p0 := odds.CostPerShare(outcomes[0].Price)
	p1 := odds.CostPerShare(outcomes[1].Price)
	return [2]float64{
		odds.ImpliedFromBook(p0, p1),
		odds.ImpliedFromBook(p1, p0),
	}
}

func (a *Aggregator) scoreOutcome(domain string, g feed.Game, mt adapter.MarketType, out feed.GameOutcome, fair float64) (Opportunity, error) {
	key, ok := adapter.OutcomeKeyForGame(g, out.Key)
	if !ok {
		return Opportunity{}, fmt.Errorf("unrecognized outcome %q", out.Key)
	}

	pos := adapter.OutcomeToPosition(domain, g.ID, mt, key, out.Price, adapter.DefaultPositionSize)
	contract := adapter.OutcomeToContract(domain, g.ID, g.AwayTeam, g.HomeTeam, mt, key, out.Price, out.Point)
	contract.ResolutionTime = g.CommenceTime

	// Mark the notional position against the fair price, not the quote,
	// so the mark-to-market delta is the vig-adjusted edge.
	marked := contract
	marked.Price = decimal.NewFromFloat(fair)

	report, err := a.engine.Analyze(market.Portfolio{
		Positions: []market.Position{pos},
		Contracts: []market.Contract{marked},
	})
	if err != nil {
		return Opportunity{}, err
	}

	return Opportunity{
		Contract:     contract,
		Position:     pos,
		FairPrice:    marked.Price,
		EdgePerShare: report.MarkToMarketPnl.Div(pos.Size),
		MarkToMarket: report.MarkToMarketPnl,
	}, nil
}
