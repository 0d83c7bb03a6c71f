// Package risk aggregates a unified portfolio into an exposure,
// concentration and worst-case report. Analyze is deterministic and
// performs no I/O: it only transforms the portfolio it is handed.
package risk

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/oddsroom/riskcore/pkg/market"
)

// DefaultConcentrationThreshold flags any source holding more than this
// fraction of total exposure.
const DefaultConcentrationThreshold = 0.5

// Engine computes portfolio risk reports.
type Engine struct {
	concentrationThreshold decimal.Decimal
}

// NewEngine creates a risk engine. A non-positive threshold falls back
// to the default.
func NewEngine(concentrationThreshold float64) *Engine {
	if concentrationThreshold <= 0 {
		concentrationThreshold = DefaultConcentrationThreshold
	}
	return &Engine{concentrationThreshold: decimal.NewFromFloat(concentrationThreshold)}
}

// PositionRisk is the per-position breakdown inside a report.
type PositionRisk struct {
	ContractID   string          `json:"contract_id"`
	Side         market.Side     `json:"side"`
	Exposure     decimal.Decimal `json:"exposure"`       // size * costPerShare
	MarkPrice    decimal.Decimal `json:"mark_price"`     // contract price, or own cost when stale
	MarkToMarket decimal.Decimal `json:"mark_to_market"` // signed unrealized P&L
	WorstCase    decimal.Decimal `json:"worst_case"`     // loss under maximally adverse resolution
	Stale        bool            `json:"stale"`
}

// Report is the aggregate risk view over one portfolio.
type Report struct {
	TotalExposure         decimal.Decimal                   `json:"total_exposure"`
	MarkToMarketPnl       decimal.Decimal                   `json:"mark_to_market_pnl"`
	ConcentrationBySource map[market.Source]decimal.Decimal `json:"concentration_by_source"`
	ConcentrationFlags    []market.Source                   `json:"concentration_flags,omitempty"`
	WorstCaseDrawdown     decimal.Decimal                   `json:"worst_case_drawdown"`
	StaleFlags            []string                          `json:"stale_flags,omitempty"`
	Positions             []PositionRisk                    `json:"positions"`
}

// EmptyReport is the zero-exposure report for a portfolio with no
// positions, distinguishable from a failed analysis by its empty but
// non-nil collections.
func EmptyReport() *Report {
	return &Report{
		ConcentrationBySource: map[market.Source]decimal.Decimal{},
		Positions:             []PositionRisk{},
	}
}

// Analyze computes the risk report for a portfolio. An empty position
// list is a caller error; every other degradation (unresolvable
// contract ids) is absorbed into the report.
func (e *Engine) Analyze(p market.Portfolio) (*Report, error) {
	if len(p.Positions) == 0 {
		return nil, fmt.Errorf("risk: portfolio has no positions")
	}
	for _, pos := range p.Positions {
		if err := pos.Validate(); err != nil {
			return nil, fmt.Errorf("risk: %w", err)
		}
	}

	contracts := p.ContractIndex()
	one := decimal.NewFromInt(1)

	report := &Report{
		ConcentrationBySource: make(map[market.Source]decimal.Decimal),
		Positions:             make([]PositionRisk, 0, len(p.Positions)),
	}
	exposureBySource := make(map[market.Source]decimal.Decimal)

	for _, pos := range p.Positions {
		contract, resolved := contracts[pos.ContractID]

		mark := pos.CostPerShare
		source := market.Source("unknown")
		if resolved {
			mark = contract.Price
			source = contract.Source
		}

		exposure := pos.Size.Mul(pos.CostPerShare)

		// Unrealized P&L under current quotes. A "no" position gains
		// when the yes price falls, so the sign flips.
		mtm := pos.Size.Mul(mark.Sub(pos.CostPerShare))
		if pos.Side == market.SideNo {
			mtm = mtm.Neg()
		}

		// Maximally adverse resolution: a yes position goes to zero and
		// loses its cost; a no position's counterpart resolves against
		// it and it loses size*(1-cost).
		worst := exposure
		if pos.Side == market.SideNo {
			worst = pos.Size.Mul(one.Sub(pos.CostPerShare))
		}

		report.TotalExposure = report.TotalExposure.Add(exposure)
		report.MarkToMarketPnl = report.MarkToMarketPnl.Add(mtm)
		report.WorstCaseDrawdown = report.WorstCaseDrawdown.Add(worst)
		exposureBySource[source] = exposureBySource[source].Add(exposure)

		if !resolved {
			report.StaleFlags = append(report.StaleFlags, pos.ContractID)
		}

		report.Positions = append(report.Positions, PositionRisk{
			ContractID:   pos.ContractID,
			Side:         pos.Side,
			Exposure:     exposure,
			MarkPrice:    mark,
			MarkToMarket: mtm,
			WorstCase:    worst,
			Stale:        !resolved,
		})
	}

	if report.TotalExposure.IsPositive() {
		for source, exp := range exposureBySource {
			frac := exp.Div(report.TotalExposure)
			report.ConcentrationBySource[source] = frac
			if frac.GreaterThan(e.concentrationThreshold) {
				report.ConcentrationFlags = append(report.ConcentrationFlags, source)
			}
		}
	}
	sort.Slice(report.ConcentrationFlags, func(i, j int) bool {
		return report.ConcentrationFlags[i] < report.ConcentrationFlags[j]
	})
	sort.Strings(report.StaleFlags)

	return report, nil
}
