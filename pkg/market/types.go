// Package market defines the unified position/contract model that the
// risk pipeline consumes. Every venue adapter normalizes into these
// types; nothing downstream knows where a position came from beyond
// its Source tag.
package market

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is which side of a binary contract a position holds.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Source identifies the venue class a contract was quoted on.
type Source string

const (
	// SourceSportsbook is a traditional odds feed (derived contracts).
	SourceSportsbook Source = "sportsbook"
	// SourceExchange is a regulated prediction-market exchange quoting
	// in cents per share.
	SourceExchange Source = "exchange"
	// SourceAMM is a decentralized prediction market quoted from its
	// order book.
	SourceAMM Source = "amm"
)

// Position is a held exposure against a contract id.
type Position struct {
	ContractID   string          `json:"contract_id"`
	Side         Side            `json:"side"`
	Size         decimal.Decimal `json:"size"`           // shares/units, > 0
	CostPerShare decimal.Decimal `json:"cost_per_share"` // in [0.01, 0.99]
}

// Validate checks the position invariants.
func (p Position) Validate() error {
	if p.ContractID == "" {
		return fmt.Errorf("position missing contract id")
	}
	if p.Side != SideYes && p.Side != SideNo {
		return fmt.Errorf("position %s: invalid side %q", p.ContractID, p.Side)
	}
	if p.Size.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("position %s: size must be positive", p.ContractID)
	}
	min := decimal.NewFromFloat(0.01)
	max := decimal.NewFromFloat(0.99)
	if p.CostPerShare.LessThan(min) || p.CostPerShare.GreaterThan(max) {
		return fmt.Errorf("position %s: cost per share %s outside [0.01, 0.99]", p.ContractID, p.CostPerShare)
	}
	return nil
}

// Contract is the current market quote for an instrument. A contract can
// exist with zero positions against it (quote-only).
type Contract struct {
	ID             string          `json:"id"`
	Source         Source          `json:"source"`
	Title          string          `json:"title"`
	Subtitle       string          `json:"subtitle,omitempty"`
	Price          decimal.Decimal `json:"price"` // in [0, 1]
	ResolutionTime time.Time       `json:"resolution_time,omitempty"`
	Meta           Meta            `json:"meta,omitempty"`
}

// MarshalJSON encodes Meta through its tagged envelope so the variant
// survives a round trip.
func (c Contract) MarshalJSON() ([]byte, error) {
	type alias Contract
	var meta json.RawMessage
	if c.Meta != nil {
		b, err := MarshalMeta(c.Meta)
		if err != nil {
			return nil, err
		}
		meta = b
	}
	return json.Marshal(struct {
		alias
		Meta json.RawMessage `json:"meta,omitempty"`
	}{alias(c), meta})
}

// UnmarshalJSON decodes Meta from its tagged envelope. A contract with
// no meta stays nil.
func (c *Contract) UnmarshalJSON(b []byte) error {
	type alias Contract
	aux := struct {
		*alias
		Meta json.RawMessage `json:"meta"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m, err := UnmarshalMeta(aux.Meta)
	if err != nil {
		return err
	}
	c.Meta = m
	return nil
}

// Portfolio pairs held positions with the current quotes for their
// contracts. Positions whose contract id resolves to nothing are still
// legal; the risk engine marks them stale.
type Portfolio struct {
	Positions []Position `json:"positions"`
	Contracts []Contract `json:"contracts"`
}

// ContractIndex returns contracts keyed by id. Later duplicates win,
// matching the last-write-wins convention of the odds cache.
func (p Portfolio) ContractIndex() map[string]Contract {
	idx := make(map[string]Contract, len(p.Contracts))
	for _, c := range p.Contracts {
		idx[c.ID] = c
	}
	return idx
}
