package market

import "encoding/json"

// Meta carries producer-specific contract detail as a closed set of
// variants instead of an untyped bag, so consumers reading e.g. the
// point spread stay type-safe. Unknown producers fall back to
// OpaqueMeta.
type Meta interface {
	metaKind() string
}

// SportsbookMeta describes a contract derived from a sportsbook
// game/market/outcome triple.
type SportsbookMeta struct {
	League     string  `json:"league,omitempty"`
	MarketType string  `json:"market_type"`
	OutcomeKey string  `json:"outcome_key"`
	Point      float64 `json:"point,omitempty"`
	HasPoint   bool    `json:"has_point"`
}

func (SportsbookMeta) metaKind() string { return "sportsbook" }

// PredictionMeta describes a contract native to a prediction-market
// venue.
type PredictionMeta struct {
	ConditionID string `json:"condition_id,omitempty"`
	TokenID     string `json:"token_id,omitempty"`
}

func (PredictionMeta) metaKind() string { return "prediction" }

// OpaqueMeta preserves key/value detail from producers the model does
// not know. It is carried through reports untouched.
type OpaqueMeta map[string]string

func (OpaqueMeta) metaKind() string { return "opaque" }

// metaEnvelope is the wire form: a kind tag plus the raw variant.
type metaEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalMeta encodes a Meta variant with its kind tag. Nil meta encodes
// as null.
func MarshalMeta(m Meta) ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(metaEnvelope{Kind: m.metaKind(), Data: data})
}

// UnmarshalMeta decodes a tagged Meta variant. Unrecognized kinds decode
// into OpaqueMeta rather than failing.
func UnmarshalMeta(b []byte) (Meta, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var env metaEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "sportsbook":
		var m SportsbookMeta
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "prediction":
		var m PredictionMeta
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		var m OpaqueMeta
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
}
