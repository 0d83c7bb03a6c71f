package adapter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsroom/riskcore/pkg/feed"
	"github.com/oddsroom/riskcore/pkg/market"
	"github.com/oddsroom/riskcore/pkg/risk"
)

func floatPtr(f float64) *float64 { return &f }

func TestContractIDDeterminism(t *testing.T) {
	a := ContractID("nfl", "game-42", Moneyline, OutcomeAway)
	b := ContractID("nfl", "game-42", Moneyline, OutcomeAway)
	if a != b {
		t.Fatalf("ids differ: %q vs %q", a, b)
	}
	if a != "rc:nfl:game-42:moneyline:away" {
		t.Errorf("unexpected id shape: %q", a)
	}
}

func TestOutcomeToPositionIdempotent(t *testing.T) {
	p1 := OutcomeToPosition("nfl", "game-42", Moneyline, OutcomeAway, 2.0, 0)
	p2 := OutcomeToPosition("nfl", "game-42", Moneyline, OutcomeAway, 2.0, 0)

	if p1.ContractID != p2.ContractID {
		t.Errorf("contract ids differ: %q vs %q", p1.ContractID, p2.ContractID)
	}
	if !p1.CostPerShare.Equal(p2.CostPerShare) {
		t.Errorf("normalized prices differ: %s vs %s", p1.CostPerShare, p2.CostPerShare)
	}
	if !p1.CostPerShare.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("cost per share = %s, want 0.5", p1.CostPerShare)
	}
	if !p1.Size.Equal(decimal.NewFromFloat(DefaultPositionSize)) {
		t.Errorf("default size = %s, want %v", p1.Size, DefaultPositionSize)
	}
}

func TestTitleSynthesis(t *testing.T) {
	tests := []struct {
		name  string
		mt    MarketType
		ok    OutcomeKey
		point *float64
		want  string
	}{
		{"moneyline away", Moneyline, OutcomeAway, nil, "Buffalo ML"},
		{"moneyline home", Moneyline, OutcomeHome, nil, "Miami ML"},
		{"spread positive point", Spread, OutcomeAway, floatPtr(3.5), "Buffalo +3.5"},
		{"spread negative point", Spread, OutcomeHome, floatPtr(-3.5), "Miami -3.5"},
		{"spread zero point keeps sign", Spread, OutcomeHome, floatPtr(0), "Miami +0"},
		{"spread missing point", Spread, OutcomeAway, nil, "Buffalo"},
		{"total over", Total, OutcomeOver, floatPtr(44.5), "Over 44.5"},
		{"total under", Total, OutcomeUnder, floatPtr(44.5), "Under 44.5"},
		{"total missing point", Total, OutcomeOver, nil, "Over"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := OutcomeToContract("nfl", "game-42", "BUFFALO", "MIAMI", tt.mt, tt.ok, 2.0, tt.point)
			if c.Title != tt.want {
				t.Errorf("title = %q, want %q", c.Title, tt.want)
			}
		})
	}
}

func TestOutcomeToContractMeta(t *testing.T) {
	c := OutcomeToContract("nfl", "game-42", "Buffalo", "Miami", Spread, OutcomeHome, 1.9, floatPtr(-3.5))

	meta, ok := c.Meta.(market.SportsbookMeta)
	if !ok {
		t.Fatalf("meta is %T, want SportsbookMeta", c.Meta)
	}
	if !meta.HasPoint || meta.Point != -3.5 {
		t.Errorf("meta point = %+v, want -3.5", meta)
	}
	if meta.MarketType != "spread" || meta.OutcomeKey != "home" {
		t.Errorf("meta classification = %+v", meta)
	}
	if c.Source != market.SourceSportsbook {
		t.Errorf("source = %q, want sportsbook", c.Source)
	}
}

func TestGameContracts(t *testing.T) {
	commence := time.Date(2026, 9, 13, 17, 0, 0, 0, time.UTC)
	g := feed.Game{
		ID:           "game-42",
		Sport:        "nfl",
		AwayTeam:     "Buffalo",
		HomeTeam:     "Miami",
		CommenceTime: commence,
		Markets: []feed.GameMarket{
			{Key: "h2h", Outcomes: []feed.GameOutcome{
				{Key: "Buffalo", Price: 2.0},
				{Key: "Miami", Price: 1.9},
			}},
			{Key: "totals", Outcomes: []feed.GameOutcome{
				{Key: "Over", Price: 1.95, Point: floatPtr(44.5)},
				{Key: "Under", Price: 1.95, Point: floatPtr(44.5)},
			}},
			{Key: "exotic", Outcomes: []feed.GameOutcome{{Key: "whatever", Price: 5}}},
		},
	}

	contracts := GameContracts("nfl", g)
	if len(contracts) != 4 {
		t.Fatalf("got %d contracts, want 4 (exotic market dropped)", len(contracts))
	}
	for _, c := range contracts {
		if !c.ResolutionTime.Equal(commence) {
			t.Errorf("%s resolution time = %v, want %v", c.ID, c.ResolutionTime, commence)
		}
	}
	if contracts[0].ID != "rc:nfl:game-42:moneyline:away" {
		t.Errorf("first contract id = %q", contracts[0].ID)
	}
}

func TestExchangePositionAdapts(t *testing.T) {
	p := ExchangePosition(feed.ExchangePosition{
		Ticker:        "FED-26DEC-T425",
		Side:          "NO",
		Quantity:      40,
		AvgPriceCents: 25,
	})

	if p.ContractID != "rc:exchange:FED-26DEC-T425" {
		t.Errorf("contract id = %q", p.ContractID)
	}
	if p.Side != market.SideNo {
		t.Errorf("side = %q, want no", p.Side)
	}
	// A no fill at 25c is a yes-space cost of 0.75.
	if !p.CostPerShare.Equal(decimal.NewFromFloat(0.75)) {
		t.Errorf("cost per share = %s, want 0.75", p.CostPerShare)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("adapted position invalid: %v", err)
	}
}

// A no position profits when the yes price falls below its yes-space
// entry, and its worst case is the no-space capital it paid.
func TestExchangeNoPositionMarkToMarket(t *testing.T) {
	raw := feed.ExchangePosition{
		Ticker:         "FED-26DEC-T425",
		Side:           "no",
		Quantity:       100,
		AvgPriceCents:  75, // no space: paid 75c per share
		LastPriceCents: 20, // yes space
	}
	pos := ExchangePosition(raw)

	portfolio := market.Portfolio{
		Positions: []market.Position{pos},
		Contracts: []market.Contract{{
			ID:     pos.ContractID,
			Source: market.SourceExchange,
			Price:  decimal.NewFromFloat(0.20),
		}},
	}
	report, err := risk.NewEngine(1).Analyze(portfolio)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// Yes-space cost 0.25, yes mark 0.20: the no holder is up
	// 100 * (0.25 - 0.20) = 5.
	if !report.MarkToMarketPnl.Equal(decimal.NewFromInt(5)) {
		t.Errorf("mark-to-market P&L = %s, want 5", report.MarkToMarketPnl)
	}
	// Counterpart resolving yes loses the 75c per share actually paid.
	if !report.WorstCaseDrawdown.Equal(decimal.NewFromInt(75)) {
		t.Errorf("worst-case drawdown = %s, want 75", report.WorstCaseDrawdown)
	}
}

func TestAMMPositionAdapts(t *testing.T) {
	p := AMMPosition(feed.AMMPosition{
		ConditionID: "0xc0ffee",
		TokenID:     "123456",
		Outcome:     "Yes",
		Shares:      250,
		AvgPrice:    0.62,
	})

	if p.ContractID != "rc:amm:0xc0ffee:123456" {
		t.Errorf("contract id = %q", p.ContractID)
	}
	if p.Side != market.SideYes {
		t.Errorf("side = %q, want yes", p.Side)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("adapted position invalid: %v", err)
	}
}

// A held No token is a yes-side exposure on its own token contract:
// its price already moves with the holder, so no sign flip applies.
func TestAMMNoTokenMarkToMarket(t *testing.T) {
	raw := feed.AMMPosition{
		ConditionID: "0xc0ffee",
		TokenID:     "no-token",
		Outcome:     "No",
		Shares:      100,
		AvgPrice:    0.40,
		CurPrice:    0.46,
	}
	pos := AMMPosition(raw)
	if pos.Side != market.SideYes {
		t.Fatalf("side = %q, want yes for a held token", pos.Side)
	}

	portfolio := market.Portfolio{
		Positions: []market.Position{pos},
		Contracts: []market.Contract{{
			ID:     pos.ContractID,
			Source: market.SourceAMM,
			Price:  decimal.NewFromFloat(0.46),
		}},
	}
	report, err := risk.NewEngine(1).Analyze(portfolio)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// Bought at 0.40, trading at 0.46: the holder is up 6.
	if !report.MarkToMarketPnl.Equal(decimal.NewFromInt(6)) {
		t.Errorf("mark-to-market P&L = %s, want 6", report.MarkToMarketPnl)
	}
	// The token resolving worthless loses only what it cost.
	if !report.WorstCaseDrawdown.Equal(decimal.NewFromInt(40)) {
		t.Errorf("worst-case drawdown = %s, want 40", report.WorstCaseDrawdown)
	}
}

func TestAMMPositionClampsPrice(t *testing.T) {
	// A resolved-looking price of 1.0 must clamp below certainty.
	p := AMMPosition(feed.AMMPosition{ConditionID: "c", TokenID: "t", Outcome: "Yes", Shares: 10, AvgPrice: 1.0})
	if !p.CostPerShare.Equal(decimal.NewFromFloat(0.99)) {
		t.Errorf("cost per share = %s, want 0.99", p.CostPerShare)
	}
}
