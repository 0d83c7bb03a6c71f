// Package metrics provides Prometheus metrics for the risk pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics collects and exposes pipeline-level Prometheus
// metrics.
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Fetch metrics
	FetchesTotal  *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Report metrics
	RiskReports     *prometheus.CounterVec
	ReportDuration  *prometheus.HistogramVec
	StalePositions  prometheus.Gauge
	TotalExposure   prometheus.Gauge
	Recommendations *prometheus.CounterVec

	// Job metrics
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

// NewPipelineMetrics creates a pipeline metrics collector with its own
// registry.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	pm := &PipelineMetrics{
		registry: registry,

		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskcore_fetches_total",
				Help: "Total upstream fetches by source",
			},
			[]string{"source"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskcore_fetch_errors_total",
				Help: "Upstream fetch failures by source (absorbed, never fatal)",
			},
			[]string{"source"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskcore_fetch_duration_seconds",
				Help:    "Upstream fetch latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"source"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskcore_cache_hits_total",
				Help: "Odds cache hits by resource class",
			},
			[]string{"resource"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskcore_cache_misses_total",
				Help: "Odds cache misses by resource class",
			},
			[]string{"resource"},
		),

		RiskReports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskcore_risk_reports_total",
				Help: "Risk reports produced, by status",
			},
			[]string{"status"},
		),
		ReportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskcore_report_duration_seconds",
				Help:    "Report computation latency by kind",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"kind"},
		),
		StalePositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskcore_stale_positions",
				Help: "Positions without a resolvable live quote in the last report",
			},
		),
		TotalExposure: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskcore_total_exposure_usd",
				Help: "Total exposure in the last risk report",
			},
		),
		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskcore_recommendations_total",
				Help: "Recommended opportunities served, by domain",
			},
			[]string{"domain"},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskcore_job_runs_total",
				Help: "Scheduled pipeline invocations by job and status",
			},
			[]string{"job", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskcore_job_duration_seconds",
				Help:    "Scheduled pipeline invocation duration",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"job"},
		),
	}

	registry.MustRegister(
		pm.FetchesTotal,
		pm.FetchErrors,
		pm.FetchDuration,
		pm.CacheHits,
		pm.CacheMisses,
		pm.RiskReports,
		pm.ReportDuration,
		pm.StalePositions,
		pm.TotalExposure,
		pm.Recommendations,
		pm.JobRuns,
		pm.JobDuration,
	)

	return pm
}

// Registry returns the prometheus registry.
func (pm *PipelineMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// RecordFetch records one upstream fetch attempt.
func (pm *PipelineMetrics) RecordFetch(source string, durationSec float64, err error) {
	pm.FetchesTotal.WithLabelValues(source).Inc()
	pm.FetchDuration.WithLabelValues(source).Observe(durationSec)
	if err != nil {
		pm.FetchErrors.WithLabelValues(source).Inc()
	}
}

// RecordCacheLookup records a cache hit or miss.
func (pm *PipelineMetrics) RecordCacheLookup(resource string, hit bool) {
	if hit {
		pm.CacheHits.WithLabelValues(resource).Inc()
	} else {
		pm.CacheMisses.WithLabelValues(resource).Inc()
	}
}

// RecordRiskReport records a produced (or failed) risk report.
func (pm *PipelineMetrics) RecordRiskReport(status string, durationSec float64, staleCount int, exposure float64) {
	pm.RiskReports.WithLabelValues(status).Inc()
	pm.ReportDuration.WithLabelValues("risk").Observe(durationSec)
	if status == "ok" {
		pm.StalePositions.Set(float64(staleCount))
		pm.TotalExposure.Set(exposure)
	}
}

// RecordJob records one scheduled job invocation.
func (pm *PipelineMetrics) RecordJob(job string, success bool, durationSec float64) {
	status := "ok"
	if !success {
		status = "error"
	}
	pm.JobRuns.WithLabelValues(job, status).Inc()
	pm.JobDuration.WithLabelValues(job).Observe(durationSec)
}

// Global instance for convenience
var defaultMetrics *PipelineMetrics
var once sync.Once

// Default returns the default global metrics instance.
func Default() *PipelineMetrics {
	once.Do(func() {
		defaultMetrics = NewPipelineMetrics()
	})
	return defaultMetrics
}
