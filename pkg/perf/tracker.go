// Package perf computes regret and drawdown statistics over historical
// automated-decision runs. The tracker is read-only over the durable
// store: it never mutates a run.
package perf

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsroom/riskcore/pkg/store"
)

// BreakevenATS is the against-the-spread win fraction needed to break
// even at standard -110 pricing.
const BreakevenATS = 0.524

// RunSource is the slice of the durable store the tracker needs.
type RunSource interface {
	FindRuns(ctx context.Context, filter store.RunFilter) ([]store.DecisionEngineRun, error)
}

// Benchmark supplies the baseline outcome a run is regretted against.
type Benchmark interface {
	// NetUnits returns the baseline's net units for the same
	// period/selections as the run.
	NetUnits(run store.DecisionEngineRun) float64
}

// FlatBaseline is a fixed per-run baseline. The zero value is the
// no-action strategy (zero net units per run).
type FlatBaseline struct {
	UnitsPerRun float64
}

func (b FlatBaseline) NetUnits(store.DecisionEngineRun) float64 { return b.UnitsPerRun }

// Report is the aggregate performance view for one config version over
// a time window. A SampleSize of zero means "no signal": all other
// fields are zero and callers must not read them as a measured result.
type Report struct {
	ConfigVersion int       `json:"config_version"`
	WindowDays    int       `json:"window_days"`
	GeneratedAt   time.Time `json:"generated_at"`

	SampleSize            int             `json:"sample_size"`
	MeanRegret            decimal.Decimal `json:"mean_regret"`
	WinRate               decimal.Decimal `json:"win_rate"`
	AvgNetUnits           decimal.Decimal `json:"avg_net_units"`
	TotalNetUnits         decimal.Decimal `json:"total_net_units"`
	WorstDrawdownObserved decimal.Decimal `json:"worst_drawdown_observed"`
	// MaxEquityDrawdown is the peak-to-trough fall of cumulative net
	// units across the window, run by run in time order.
	MaxEquityDrawdown decimal.Decimal `json:"max_equity_drawdown"`
}

// Tracker computes performance reports over decision runs.
type Tracker struct {
	source    RunSource
	benchmark Benchmark

	// now is swappable for window tests.
	now func() time.Time
}

// NewTracker creates a tracker. A nil benchmark falls back to the
// zero-unit flat baseline.
func NewTracker(source RunSource, benchmark Benchmark) *Tracker {
	if benchmark == nil {
		benchmark = FlatBaseline{}
	}
	return &Tracker{source: source, benchmark: benchmark, now: time.Now}
}

// CalculateRegret returns benchmark minus actual net units for a run.
// Positive regret means the engine underperformed the benchmark.
func CalculateRegret(run store.DecisionEngineRun, benchmarkNetUnits float64) decimal.Decimal {
	return decimal.NewFromFloat(benchmarkNetUnits).Sub(decimal.NewFromFloat(run.ActualNetUnits))
}

// AnalyzePerformance reports on validated runs of the given config
// version inside the trailing window. No matching runs is not an error:
// the report comes back with SampleSize zero.
func (t *Tracker) AnalyzePerformance(ctx context.Context, configVersion, windowDays int) (*Report, error) {
	if configVersion <= 0 {
		return nil, fmt.Errorf("perf: config version must be positive")
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("perf: window days must be positive")
	}

	now := t.now()
	runs, err := t.source.FindRuns(ctx, store.RunFilter{
		ConfigVersion: configVersion,
		Validated:     true,
		Since:         now.Add(-time.Duration(windowDays) * 24 * time.Hour),
	})
	if err != nil {
		return nil, fmt.Errorf("perf: load runs: %w", err)
	}

	report := &Report{
		ConfigVersion: configVersion,
		WindowDays:    windowDays,
		GeneratedAt:   now,
		SampleSize:    len(runs),
	}
	if len(runs) == 0 {
		return report, nil
	}

	// Oldest first for the equity walk.
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	var (
		totalRegret decimal.Decimal
		wins        int
		equity      decimal.Decimal
		peak        decimal.Decimal
	)
	for _, run := range runs {
		totalRegret = totalRegret.Add(CalculateRegret(run, t.benchmark.NetUnits(run)))
		if run.ActualATS > BreakevenATS {
			wins++
		}

		units := decimal.NewFromFloat(run.ActualNetUnits)
		report.TotalNetUnits = report.TotalNetUnits.Add(units)

		equity = equity.Add(units)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if dd := peak.Sub(equity); dd.GreaterThan(report.MaxEquityDrawdown) {
			report.MaxEquityDrawdown = dd
		}

		if dd := decimal.NewFromFloat(run.MaxDrawdown); dd.GreaterThan(report.WorstDrawdownObserved) {
			report.WorstDrawdownObserved = dd
		}
	}

	n := decimal.NewFromInt(int64(len(runs)))
	report.MeanRegret = totalRegret.Div(n)
	report.AvgNetUnits = report.TotalNetUnits.Div(n)
	report.WinRate = decimal.NewFromInt(int64(wins)).Div(n)

	return report, nil
}
