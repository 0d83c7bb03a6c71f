// Package odds converts venue price representations into a normalized
// cost-per-share probability. Every function here is total: malformed
// upstream prices come out as the neutral 0.5, never as an error, so
// bad feed data cannot crash the risk pipeline.
package odds

import "math"

const (
	// MinPrice and MaxPrice bound every normalized price. Exactly 0 or 1
	// implies certainty and breaks log-odds and division downstream.
	MinPrice = 0.01
	MaxPrice = 0.99

	// Neutral is the coin-flip default for unknown or invalid prices.
	Neutral = 0.5
)

// Clamp forces p into [MinPrice, MaxPrice]. Non-finite input returns
// Neutral: venue adapters feed raw upstream floats straight in here,
// and NaN would otherwise slip through both bound checks.
func Clamp(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return Neutral
	}
	if p < MinPrice {
		return MinPrice
	}
	if p > MaxPrice {
		return MaxPrice
	}
	return p
}

// CostPerShare converts decimal odds into a cost-per-share probability.
// Non-finite or non-positive odds return Neutral.
func CostPerShare(decimalOdds float64) float64 {
	if math.IsNaN(decimalOdds) || math.IsInf(decimalOdds, 0) || decimalOdds <= 0 {
		return Neutral
	}
	return Clamp(1 / decimalOdds)
}

// FromCents converts an exchange cents-per-share quote (1..99) into a
// cost-per-share probability. Out-of-range quotes return Neutral.
func FromCents(cents int) float64 {
	if cents <= 0 || cents >= 100 {
		return Neutral
	}
	return Clamp(float64(cents) / 100)
}

// FromAmerican converts American odds into a cost-per-share probability.
// Zero (unquoted) returns Neutral; the magnitude floor of 100 is the
// smallest line books post.
func FromAmerican(american int) float64 {
	if american == 0 {
		return Neutral
	}
	var dec float64
	if american > 0 {
		dec = 1 + float64(american)/100
	} else {
		dec = 1 + 100/float64(-american)
	}
	return CostPerShare(dec)
}

// ImpliedFromBook removes the vig from a two-way book multiplicatively
// and returns the fair probability of the first outcome. If the book
// carries no overround the input probability comes back unchanged
// (modulo clamping). Invalid sides degrade to Neutral.
func ImpliedFromBook(yes, no float64) float64 {
	if math.IsNaN(yes) || math.IsNaN(no) || yes <= 0 || no <= 0 {
		return Neutral
	}
	total := yes + no
	if total <= 0 {
		return Neutral
	}
	return Clamp(yes / total)
}
