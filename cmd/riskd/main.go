// riskd is the market risk daemon. It normalizes positions from the
// connected venues, serves risk and performance reports over HTTP and
// keeps a short-lived odds cache warm for recommendations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oddsroom/riskcore/pkg/adapter"
	"github.com/oddsroom/riskcore/pkg/cache"
	"github.com/oddsroom/riskcore/pkg/config"
	"github.com/oddsroom/riskcore/pkg/feed"
	"github.com/oddsroom/riskcore/pkg/market"
	"github.com/oddsroom/riskcore/pkg/metrics"
	"github.com/oddsroom/riskcore/pkg/perf"
	"github.com/oddsroom/riskcore/pkg/recommend"
	"github.com/oddsroom/riskcore/pkg/risk"
	"github.com/oddsroom/riskcore/pkg/store"
)

var (
	// Flags
	configPath = flag.String("config", "riskd.yaml", "Path to YAML config")
	httpAddr   = flag.String("http", "", "HTTP listen address (overrides config)")
	domain     = flag.String("domain", "", "Default sport domain (overrides config)")
	verbose    = flag.Bool("verbose", false, "Verbose logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting riskd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.Server.Addr = *httpAddr
	}
	if *domain != "" {
		cfg.Feeds.Domain = *domain
	}

	d, err := newDaemon(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := d.oddsCache.Start(ctx); err != nil {
		log.Fatalf("Failed to start cache sweep: %v", err)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      d.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Printf("riskd running (domain=%s, dsn=%s)", cfg.Feeds.Domain, cfg.Storage.DSN)
	<-sigCh
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	d.oddsCache.Stop()
	cancel()
	if err := d.store.Close(); err != nil {
		log.Printf("Store close error: %v", err)
	}
	log.Println("Goodbye!")
}

type daemon struct {
	cfg       *config.Config
	store     store.Store
	oddsCache *cache.Cache[feed.Game]
	engine    *risk.Engine
	tracker   *perf.Tracker
	agg       *recommend.Aggregator
	adapters  []adapter.Adapter
	metrics   *metrics.PipelineMetrics
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{
		cfg:       cfg,
		oddsCache: cache.New[feed.Game](cfg.CacheTTL(), cfg.CacheSweep()),
		engine:    risk.NewEngine(cfg.Risk.ConcentrationThreshold),
		metrics:   metrics.NewPipelineMetrics(),
	}

	st, err := store.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	d.store = st
	d.tracker = perf.NewTracker(st, perf.FlatBaseline{UnitsPerRun: cfg.Perf.BaselineUnits})

	var sbOpts []feed.SportsbookOption
	if cfg.Feeds.SportsbookBaseURL != "" {
		sbOpts = append(sbOpts, feed.WithSportsbookBaseURL(cfg.Feeds.SportsbookBaseURL))
	}
	if cfg.Feeds.SportsbookRPS > 0 {
		sbOpts = append(sbOpts, feed.WithSportsbookRateLimit(cfg.Feeds.SportsbookRPS, 5))
	}
	sportsbook := feed.NewSportsbookClient(cfg.Feeds.SportsbookKey, sbOpts...)
	d.agg = recommend.NewAggregator(d.oddsCache, sportsbook, d.engine, d.metrics)

	d.adapters = append(d.adapters, &adapter.SportsbookAdapter{Domain: cfg.Feeds.Domain, Client: sportsbook})

	if cfg.Feeds.ExchangeKey != "" {
		var exOpts []feed.ExchangeOption
		if cfg.Feeds.ExchangeBaseURL != "" {
			exOpts = append(exOpts, feed.WithExchangeBaseURL(cfg.Feeds.ExchangeBaseURL))
		}
		d.adapters = append(d.adapters, &adapter.ExchangeAdapter{
			Client: feed.NewExchangeClient(cfg.Feeds.ExchangeKey, exOpts...),
		})
	} else {
		log.Println("No exchange API key - exchange positions disabled")
	}

	if cfg.Feeds.AMMWallet != "" {
		addr, err := feed.NormalizeAddress(cfg.Feeds.AMMWallet)
		if err != nil {
			return nil, fmt.Errorf("amm wallet: %w", err)
		}
		var ammOpts []feed.AMMOption
		if cfg.Feeds.AMMBaseURL != "" {
			ammOpts = append(ammOpts, feed.WithAMMBaseURL(cfg.Feeds.AMMBaseURL))
		}
		d.adapters = append(d.adapters, &adapter.AMMAdapter{
			Client:  feed.NewAMMClient(ammOpts...),
			Address: addr,
		})
		log.Printf("AMM positions enabled for %s", addr)
	} else {
		log.Println("No AMM wallet - on-chain positions disabled")
	}

	return d, nil
}

func (d *daemon) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/risk", d.handleRisk)
	mux.HandleFunc("/portfolio", d.handlePortfolio)
	mux.HandleFunc("/performance", d.handlePerformance)
	mux.HandleFunc("/recommended", d.handleRecommended)
	mux.HandleFunc("/jobs", d.handleJobs)

	mux.Handle("/metrics", promhttp.HandlerFor(d.metrics.Registry(), promhttp.HandlerOpts{}))

	return mux
}

// handleRisk analyzes a caller-supplied portfolio.
func (d *daemon) handleRisk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var portfolio market.Portfolio
	if err := json.NewDecoder(r.Body).Decode(&portfolio); err != nil {
		http.Error(w, fmt.Sprintf("bad portfolio: %v", err), http.StatusBadRequest)
		return
	}

	start := time.Now()
	report, err := d.engine.Analyze(portfolio)
	if err != nil {
		d.metrics.RecordRiskReport("error", time.Since(start).Seconds(), 0, 0)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d.metrics.RecordRiskReport("ok", time.Since(start).Seconds(),
		len(report.StaleFlags), report.TotalExposure.InexactFloat64())
	writeJSON(w, report)
}

// handlePortfolio assembles the live portfolio from every connected
// venue and analyzes it. Per-venue failures degrade to empty results;
// no venue contributing anything yields an empty report, not an error.
func (d *daemon) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	portfolio := d.assemblePortfolio(r.Context())

	if len(portfolio.Positions) == 0 {
		d.recordJob(r.Context(), "portfolio_risk", start, nil)
		d.metrics.RecordRiskReport("empty", time.Since(start).Seconds(), 0, 0)
		writeJSON(w, risk.EmptyReport())
		return
	}

	report, err := d.engine.Analyze(portfolio)
	d.recordJob(r.Context(), "portfolio_risk", start, err)
	if err != nil {
		d.metrics.RecordRiskReport("error", time.Since(start).Seconds(), 0, 0)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d.metrics.RecordRiskReport("ok", time.Since(start).Seconds(),
		len(report.StaleFlags), report.TotalExposure.InexactFloat64())
	writeJSON(w, report)
}

func (d *daemon) handlePerformance(w http.ResponseWriter, r *http.Request) {
	version := queryInt(r, "version", d.cfg.Perf.ConfigVersion)
	window := queryInt(r, "window", d.cfg.Perf.WindowDays)

	start := time.Now()
	report, err := d.tracker.AnalyzePerformance(r.Context(), version, window)
	d.recordJob(r.Context(), "performance_report", start, err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d.metrics.ReportDuration.WithLabelValues("performance").Observe(time.Since(start).Seconds())
	writeJSON(w, report)
}

func (d *daemon) handleRecommended(w http.ResponseWriter, r *http.Request) {
	dom := r.URL.Query().Get("domain")
	if dom == "" {
		dom = d.cfg.Feeds.Domain
	}
	limit := queryInt(r, "limit", 10)

	start := time.Now()
	opps, err := d.agg.RecommendedBets(r.Context(), dom, limit)
	d.recordJob(r.Context(), "recommended_bets", start, err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if opps == nil {
		opps = []recommend.Opportunity{}
	}
	writeJSON(w, opps)
}

func (d *daemon) handleJobs(w http.ResponseWriter, r *http.Request) {
	execs, err := d.store.RecentJobExecutions(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, execs)
}

// assemblePortfolio gathers positions and quotes from every adapter
// concurrently. A failed venue contributes nothing; the batch never
// aborts.
func (d *daemon) assemblePortfolio(ctx context.Context) market.Portfolio {
	type result struct {
		source    market.Source
		positions []market.Position
		contracts []market.Contract
		err       error
	}

	results := make(chan result, len(d.adapters))
	for _, a := range d.adapters {
		go func(a adapter.Adapter) {
			start := time.Now()
			positions, contracts, err := a.Positions(ctx)
			d.metrics.RecordFetch(string(a.Source()), time.Since(start).Seconds(), err)
			results <- result{a.Source(), positions, contracts, err}
		}(a)
	}

	var portfolio market.Portfolio
	for range d.adapters {
		res := <-results
		if res.err != nil {
			log.Printf("[%s] venue fetch failed: %v", res.source, res.err)
			continue
		}
		if *verbose {
			log.Printf("[%s] %d positions, %d contracts", res.source, len(res.positions), len(res.contracts))
		}
		portfolio.Positions = append(portfolio.Positions, res.positions...)
		portfolio.Contracts = append(portfolio.Contracts, res.contracts...)
	}
	return portfolio
}

// recordJob persists one pipeline invocation; failures to record are
// logged, never surfaced.
func (d *daemon) recordJob(ctx context.Context, job string, start time.Time, jobErr error) {
	exec := store.JobExecution{
		ID:        uuid.NewString(),
		Job:       job,
		StartedAt: start,
		Duration:  time.Since(start),
		Success:   jobErr == nil,
	}
	if jobErr != nil {
		exec.Error = jobErr.Error()
	}
	d.metrics.RecordJob(job, exec.Success, exec.Duration.Seconds())
	if err := d.store.CreateJobExecution(ctx, exec); err != nil {
		log.Printf("Failed to record job %s: %v", job, err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
