// Package metrics exposes Prometheus collectors for pipeline runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"MarketSeries/internal/model"
)

const namespace = "marketseries"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	rows        *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	absentStats *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total", Help: "Pipeline runs by outcome.",
		}, []string{"pipeline", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rows_total", Help: "Rows read and written by pipeline.",
		}, []string{"pipeline", "direction"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "price_diagnostics_total", Help: "Priced rows missing a conversion input, by field.",
		}, []string{"field"}),
		absentStats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "absent_statistics_total", Help: "Stat row cells without a value, by column.",
		}, []string{"column"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds", Help: "Wall time of pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"pipeline"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds", Help: "Finish time of the last successful run.",
		}, []string{"pipeline"}),
	}
	m.registry.MustRegister(m.runs, m.rows, m.diagnostics, m.absentStats, m.duration, m.lastSuccess)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeRun(s *model.RunSummary) {
	p := string(s.Pipeline)
	m.runs.WithLabelValues(p, "success").Inc()
	m.rows.WithLabelValues(p, "in").Add(float64(s.InputRows))
	m.rows.WithLabelValues(p, "out").Add(float64(s.OutputRows))
	m.duration.WithLabelValues(p).Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
	m.lastSuccess.WithLabelValues(p).Set(float64(s.FinishedAt.Unix()))
}

// ObserveRates records a successful rates run.
func (m *Metrics) ObserveRates(s *model.RunSummary, rows []model.PricedRow) {
	m.observeRun(s)
	for _, r := range rows {
		for _, f := range r.FinalPrice.Missing() {
			m.diagnostics.WithLabelValues(string(f)).Inc()
		}
	}
}

// ObserveStdev records a successful stdev run.
func (m *Metrics) ObserveStdev(s *model.RunSummary, rows []model.StatRow) {
	m.observeRun(s)
	var bid, mid, ask int
	for _, r := range rows {
		if !r.BidStd.Valid {
			bid++
		}
		if !r.MidStd.Valid {
			mid++
		}
		if !r.AskStd.Valid {
			ask++
		}
	}
	m.absentStats.WithLabelValues("bid_std").Add(float64(bid))
	m.absentStats.WithLabelValues("mid_std").Add(float64(mid))
	m.absentStats.WithLabelValues("ask_std").Add(float64(ask))
}

// ObserveFailure records a run that produced no output.
func (m *Metrics) ObserveFailure(p model.Pipeline) {
	m.runs.WithLabelValues(string(p), "failure").Inc()
}
