package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/oddsroom/riskcore/pkg/feed"
	"github.com/oddsroom/riskcore/pkg/market"
	"github.com/oddsroom/riskcore/pkg/odds"
)

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// MarketTypeForKey maps a feed market key to the unified market type.
// Unknown keys are skipped by callers.
func MarketTypeForKey(key string) (MarketType, bool) {
	switch key {
	case "h2h", "moneyline":
		return Moneyline, true
	case "spreads", "spread":
		return Spread, true
	case "totals", "total":
		return Total, true
	default:
		return "", false
	}
}

// OutcomeKeyForGame normalizes a feed outcome name against the game's
// teams. Totals use over/under directly.
func OutcomeKeyForGame(g feed.Game, name string) (OutcomeKey, bool) {
	switch strings.ToLower(name) {
	case "over":
		return OutcomeOver, true
	case "under":
		return OutcomeUnder, true
	case strings.ToLower(g.AwayTeam), "away":
		return OutcomeAway, true
	case strings.ToLower(g.HomeTeam), "home":
		return OutcomeHome, true
	default:
		return "", false
	}
}

// GameContracts converts one game's quoted markets into unified
// contracts. Unrecognized market keys or outcome names are dropped, not
// errors: the feed is trusted only as far as it parses.
func GameContracts(domain string, g feed.Game) []market.Contract {
	var contracts []market.Contract
	for _, gm := range g.Markets {
		mt, ok := MarketTypeForKey(gm.Key)
		if !ok {
			continue
		}
		for _, out := range gm.Outcomes {
			key, ok := OutcomeKeyForGame(g, out.Key)
			if !ok {
				continue
			}
			c := OutcomeToContract(domain, g.ID, g.AwayTeam, g.HomeTeam, mt, key, out.Price, out.Point)
			c.ResolutionTime = g.CommenceTime
			contracts = append(contracts, c)
		}
	}
	return contracts
}

// SportsbookAdapter normalizes the sportsbook odds feed. It carries no
// account, so it yields quote-only contracts and no positions.
type SportsbookAdapter struct {
	Domain string
	Client *feed.SportsbookClient
}

func (a *SportsbookAdapter) Source() market.Source { return market.SourceSportsbook }

func (a *SportsbookAdapter) Positions(ctx context.Context) ([]market.Position, []market.Contract, error) {
	games, err := a.Client.Slate(ctx, a.Domain)
	if err != nil {
		return nil, nil, fmt.Errorf("sportsbook adapter: %w", err)
	}
	var contracts []market.Contract
	for _, g := range games {
		contracts = append(contracts, GameContracts(a.Domain, g)...)
	}
	return nil, contracts, nil
}

// ExchangeAdapter normalizes the regulated exchange's cents-per-share
// positions.
type ExchangeAdapter struct {
	Client *feed.ExchangeClient
}

func (a *ExchangeAdapter) Source() market.Source { return market.SourceExchange }

func (a *ExchangeAdapter) Positions(ctx context.Context) ([]market.Position, []market.Contract, error) {
	raw, err := a.Client.Positions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange adapter: %w", err)
	}

	positions := make([]market.Position, 0, len(raw))
	contracts := make([]market.Contract, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, ExchangePosition(p))
		contracts = append(contracts, market.Contract{
			ID:             exchangeContractID(p.Ticker),
			Source:         market.SourceExchange,
			Title:          p.Title,
			Price:          decimalFromFloat(odds.FromCents(p.LastPriceCents)),
			ResolutionTime: p.CloseTime,
			Meta:           market.PredictionMeta{ConditionID: p.Ticker},
		})
	}
	return positions, contracts, nil
}

// ExchangePosition converts a single exchange position into the unified
// shape. The exchange reports fills in the held side's own space while
// positions carry cost in yes space, so a no-side fill price becomes
// its yes-space complement before the sign-aware mark.
func ExchangePosition(p feed.ExchangePosition) market.Position {
	side := market.SideYes
	cost := odds.FromCents(p.AvgPriceCents)
	if strings.EqualFold(p.Side, "no") {
		side = market.SideNo
		cost = odds.Clamp(1 - cost)
	}
	size := p.Quantity
	if size <= 0 {
		size = 1
	}
	return market.Position{
		ContractID:   exchangeContractID(p.Ticker),
		Side:         side,
		Size:         decimal.NewFromInt(int64(size)),
		CostPerShare: decimalFromFloat(cost),
	}
}

func exchangeContractID(ticker string) string {
	return idNamespace + ":exchange:" + ticker
}

// AMMAdapter normalizes wallet positions on the decentralized venue.
// The wallet address is a caller-supplied credential.
type AMMAdapter struct {
	Client  *feed.AMMClient
	Address string
}

func (a *AMMAdapter) Source() market.Source { return market.SourceAMM }

func (a *AMMAdapter) Positions(ctx context.Context) ([]market.Position, []market.Contract, error) {
	raw, err := a.Client.Positions(ctx, a.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("amm adapter: %w", err)
	}

	positions := make([]market.Position, 0, len(raw))
	contracts := make([]market.Contract, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, AMMPosition(p))
		contracts = append(contracts, market.Contract{
			ID:             ammContractID(p.ConditionID, p.TokenID),
			Source:         market.SourceAMM,
			Title:          p.Question,
			Price:          decimalFromFloat(odds.Clamp(p.CurPrice)),
			ResolutionTime: p.EndDate,
			Meta:           market.PredictionMeta{ConditionID: p.ConditionID, TokenID: p.TokenID},
		})
	}
	return positions, contracts, nil
}

// AMMPosition converts a single wallet position into the unified shape.
// Venue positions are per-token: AvgPrice and CurPrice are quoted in
// the held token's own price space, and the contract minted alongside
// carries that same space. Holding a No token is therefore a yes-side
// exposure on the No token's contract; tagging it SideNo would invert
// the mark against a price that already moves with the holder.
func AMMPosition(p feed.AMMPosition) market.Position {
	size := p.Shares
	if size <= 0 {
		size = 1
	}
	return market.Position{
		ContractID:   ammContractID(p.ConditionID, p.TokenID),
		Side:         market.SideYes,
		Size:         decimalFromFloat(size),
		CostPerShare: decimalFromFloat(odds.Clamp(p.AvgPrice)),
	}
}

func ammContractID(conditionID, tokenID string) string {
	return idNamespace + ":amm:" + conditionID + ":" + tokenID
}
