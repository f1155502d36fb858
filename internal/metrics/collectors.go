package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// APICalls counts TAGO calls by endpoint and response outcome
	APICalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tago_api_calls_total",
		Help: "Number of TrainInfoService calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// APICallDuration observes TAGO call latency by endpoint
	APICallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tago_api_call_duration_seconds",
		Help:    "Latency of TrainInfoService calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// ProbeBudgetRemaining is the number of route probes left in this run
	ProbeBudgetRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "collector_probe_budget_remaining",
		Help: "Route probes left before the per-run ceiling",
	})

	// RoutesDiscovered is the number of routes in the accumulator
	RoutesDiscovered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "collector_routes_discovered",
		Help: "Routes with at least one schedule collected so far",
	})

	// Checkpoints counts routes.json flushes by result
	Checkpoints = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_checkpoints_total",
		Help: "Number of routes.json checkpoint writes",
	}, []string{"result"})
)

// Registry holds the collector metrics; kept separate from the default
// registry so the textfile export contains only these series
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(APICalls, APICallDuration, ProbeBudgetRemaining, RoutesDiscovered, Checkpoints)
}

// WriteTextfile writes the collector metrics in the node_exporter textfile format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
