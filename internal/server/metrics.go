package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/studiowebux/apitest/internal/types"
)

// Run outcomes
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// Metrics counts served API test runs
type Metrics struct {
	runs         *prometheus.CounterVec
	responseTime prometheus.Histogram
}

// NewMetrics registers the run metrics, plus Go runtime and process collectors, on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apitest_runs_total",
			Help: "API test runs by outcome.",
		}, []string{"outcome"}),
		responseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "apitest_response_time_ms",
			Help:    "Response time of tested endpoints in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}),
	}

	reg.MustRegister(
		m.runs,
		m.responseTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one result
func (m *Metrics) Observe(result *types.APITestResult) {
	m.runs.WithLabelValues(Outcome(result)).Inc()
	if result.StatusCode > 0 {
		m.responseTime.Observe(result.ResponseTimeMs)
	}
}

// Outcome classifies a result: error when no verdict could be reached
func Outcome(result *types.APITestResult) string {
	switch {
	case result.Error != "":
		return OutcomeError
	case result.Success:
		return OutcomePassed
	default:
		return OutcomeFailed
	}
}
