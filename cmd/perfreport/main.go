// perfreport prints a decision-performance report for one config
// version over a trailing window.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/oddsroom/riskcore/pkg/perf"
	"github.com/oddsroom/riskcore/pkg/store"
)

var hundred = decimal.NewFromInt(100)

var (
	dsn      = flag.String("dsn", "riskcore.db", "SQLite path, or :memory:")
	version  = flag.Int("version", 1, "Decision engine config version")
	window   = flag.Int("window", 30, "Trailing window in days")
	baseline = flag.Float64("baseline", 0, "Flat benchmark net units per run")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime)

	st, err := store.NewSQLiteStore(*dsn)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	tracker := perf.NewTracker(st, perf.FlatBaseline{UnitsPerRun: *baseline})
	report, err := tracker.AnalyzePerformance(context.Background(), *version, *window)
	if err != nil {
		log.Fatalf("Performance analysis failed: %v", err)
	}

	fmt.Printf("\nConfig version %d, trailing %d days (generated %s)\n\n",
		report.ConfigVersion, report.WindowDays, report.GeneratedAt.Format("2006-01-02 15:04"))

	if report.SampleSize == 0 {
		fmt.Println("No validated runs in window - insufficient data.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	table.Append("Sample size", fmt.Sprintf("%d", report.SampleSize))
	table.Append("Mean regret", report.MeanRegret.StringFixed(4))
	table.Append("Win rate", report.WinRate.Mul(hundred).StringFixed(1)+"%")
	table.Append("Avg net units", report.AvgNetUnits.StringFixed(4))
	table.Append("Total net units", report.TotalNetUnits.StringFixed(4))
	table.Append("Worst run drawdown", report.WorstDrawdownObserved.StringFixed(4))
	table.Append("Max equity drawdown", report.MaxEquityDrawdown.StringFixed(4))
	table.Render()

	if report.MeanRegret.IsPositive() {
		fmt.Println("\nPositive mean regret: the engine underperformed the benchmark.")
	}
}
