// Package adapter converts venue-native payloads into the unified
// position/contract model. Each venue has its own variant behind the
// one Adapter interface; all of them produce the same shape, so the
// risk engine never sees venue-specific data.
package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oddsroom/riskcore/pkg/market"
	"github.com/oddsroom/riskcore/pkg/odds"
)

// MarketType classifies a derived sports contract.
type MarketType string

const (
	Moneyline MarketType = "moneyline"
	Spread    MarketType = "spread"
	Total     MarketType = "total"
)

// OutcomeKey identifies which side of a sports market an outcome is.
type OutcomeKey string

const (
	OutcomeAway  OutcomeKey = "away"
	OutcomeHome  OutcomeKey = "home"
	OutcomeOver  OutcomeKey = "over"
	OutcomeUnder OutcomeKey = "under"
)

// idNamespace prefixes every contract id this system mints.
const idNamespace = "rc"

// DefaultPositionSize is the notional size used when a caller does not
// specify one.
const DefaultPositionSize = 100.0

var titleCaser = cases.Title(language.English)

// ContractID builds the deterministic id for a derived sports contract.
// The same logical outcome always maps to the same id.
func ContractID(domain, gameID string, mt MarketType, ok OutcomeKey) string {
	return strings.Join([]string{idNamespace, domain, gameID, string(mt), string(ok)}, ":")
}

// Adapter is the venue-polymorphic capability: fetch whatever the venue
// knows and return it in the unified shape.
type Adapter interface {
	// Source identifies the venue class this adapter normalizes.
	Source() market.Source

	// Positions returns the venue's open positions and the current
	// contracts backing them.
	Positions(ctx context.Context) ([]market.Position, []market.Contract, error)
}

// FormatPoint renders a point value with an explicit sign for
// non-negative values. A missing point renders as the empty string, not
// an error.
func FormatPoint(point *float64) string {
	if point == nil {
		return ""
	}
	s := strconv.FormatFloat(*point, 'f', -1, 64)
	if *point >= 0 {
		return "+" + s
	}
	return s
}

// synthesizeTitle builds the display title for a derived sports
// contract. Moneyline: "<Team> ML"; spread: "<Team> <signed point>";
// total: "Over <point>" / "Under <point>".
func synthesizeTitle(away, home string, mt MarketType, ok OutcomeKey, point *float64) string {
	team := away
	if ok == OutcomeHome {
		team = home
	}
	team = titleCaser.String(strings.ToLower(team))

	switch mt {
	case Moneyline:
		return team + " ML"
	case Spread:
		return strings.TrimSpace(team + " " + FormatPoint(point))
	case Total:
		word := "Over"
		if ok == OutcomeUnder {
			word = "Under"
		}
		if point == nil {
			return word
		}
		return word + " " + strconv.FormatFloat(*point, 'f', -1, 64)
	default:
		return team
	}
}

// OutcomeToPosition builds a unified position for one sports outcome at
// the given decimal odds. A non-positive size falls back to
// DefaultPositionSize; a malformed price normalizes to the neutral 0.5.
func OutcomeToPosition(domain, gameID string, mt MarketType, ok OutcomeKey, decimalOdds, size float64) market.Position {
	if size <= 0 {
		size = DefaultPositionSize
	}
	return market.Position{
		ContractID:   ContractID(domain, gameID, mt, ok),
		Side:         market.SideYes,
		Size:         decimalFromFloat(size),
		CostPerShare: decimalFromFloat(odds.CostPerShare(decimalOdds)),
	}
}

// OutcomeToContract builds the unified contract for one sports outcome.
func OutcomeToContract(domain, gameID, away, home string, mt MarketType, ok OutcomeKey, decimalOdds float64, point *float64) market.Contract {
	meta := market.SportsbookMeta{
		League:     domain,
		MarketType: string(mt),
		OutcomeKey: string(ok),
	}
	if point != nil {
		meta.Point = *point
		meta.HasPoint = true
	}
	return market.Contract{
		ID:       ContractID(domain, gameID, mt, ok),
		Source:   market.SourceSportsbook,
		Title:    synthesizeTitle(away, home, mt, ok, point),
		Subtitle: fmt.Sprintf("%s @ %s", titleCaser.String(strings.ToLower(away)), titleCaser.String(strings.ToLower(home))),
		Price:    decimalFromFloat(odds.CostPerShare(decimalOdds)),
		Meta:     meta,
	}
}
