package market

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func validPosition() Position {
	return Position{
		ContractID:   "rc:nfl:g1:moneyline:away",
		Side:         SideYes,
		Size:         decimal.NewFromInt(100),
		CostPerShare: decimal.NewFromFloat(0.5),
	}
}

func TestPositionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Position)
		wantErr bool
	}{
		{"valid yes", func(p *Position) {}, false},
		{"valid no", func(p *Position) { p.Side = SideNo }, false},
		{"at lower bound", func(p *Position) { p.CostPerShare = decimal.NewFromFloat(0.01) }, false},
		{"at upper bound", func(p *Position) { p.CostPerShare = decimal.NewFromFloat(0.99) }, false},
		{"missing id", func(p *Position) { p.ContractID = "" }, true},
		{"bad side", func(p *Position) { p.Side = "maybe" }, true},
		{"zero size", func(p *Position) { p.Size = decimal.Zero }, true},
		{"negative size", func(p *Position) { p.Size = decimal.NewFromInt(-5) }, true},
		{"price zero", func(p *Position) { p.CostPerShare = decimal.Zero }, true},
		{"price one", func(p *Position) { p.CostPerShare = decimal.NewFromInt(1) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPosition()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContractIndexLastWins(t *testing.T) {
	p := Portfolio{Contracts: []Contract{
		{ID: "a", Price: decimal.NewFromFloat(0.4)},
		{ID: "b", Price: decimal.NewFromFloat(0.6)},
		{ID: "a", Price: decimal.NewFromFloat(0.45)},
	}}
	idx := p.ContractIndex()
	if len(idx) != 2 {
		t.Fatalf("index size = %d, want 2", len(idx))
	}
	if !idx["a"].Price.Equal(decimal.NewFromFloat(0.45)) {
		t.Errorf("duplicate id: price = %s, want the later 0.45", idx["a"].Price)
	}
}

func TestContractMetaRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		meta Meta
	}{
		{"sportsbook", SportsbookMeta{League: "nfl", MarketType: "spread", OutcomeKey: "home", Point: -3.5, HasPoint: true}},
		{"prediction", PredictionMeta{ConditionID: "cond1", TokenID: "tok1"}},
		{"opaque", OpaqueMeta{"book": "pinnacle"}},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Contract{ID: "c1", Source: SourceSportsbook, Title: "Bills -3.5", Price: decimal.NewFromFloat(0.55), Meta: tt.meta}
			b, err := json.Marshal(in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var out Contract
			if err := json.Unmarshal(b, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out.ID != in.ID || !out.Price.Equal(in.Price) {
				t.Errorf("contract fields lost: %+v", out)
			}
			switch want := tt.meta.(type) {
			case nil:
				if out.Meta != nil {
					t.Errorf("expected nil meta, got %#v", out.Meta)
				}
			case SportsbookMeta:
				got, ok := out.Meta.(SportsbookMeta)
				if !ok || got != want {
					t.Errorf("meta = %#v, want %#v", out.Meta, want)
				}
			case PredictionMeta:
				got, ok := out.Meta.(PredictionMeta)
				if !ok || got != want {
					t.Errorf("meta = %#v, want %#v", out.Meta, want)
				}
			case OpaqueMeta:
				got, ok := out.Meta.(OpaqueMeta)
				if !ok || got["book"] != want["book"] {
					t.Errorf("meta = %#v, want %#v", out.Meta, want)
				}
			}
		})
	}
}

func TestUnmarshalMetaUnknownKind(t *testing.T) {
	m, err := UnmarshalMeta([]byte(`{"kind":"exotic","data":{"venue":"offshore"}}`))
	if err != nil {
		t.Fatalf("UnmarshalMeta: %v", err)
	}
	opaque, ok := m.(OpaqueMeta)
	if !ok {
		t.Fatalf("expected opaque fallback, got %#v", m)
	}
	if opaque["venue"] != "offshore" {
		t.Errorf("opaque content lost: %#v", opaque)
	}
}
