package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestCounter counts handled requests by kind and outcome.
	RequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timelock_requests_total",
		Help: "Total number of signed requests handled, by kind and outcome",
	}, []string{"kind", "outcome"})
	// EscrowedGauge tracks value moved into and out of escrow by this engine since start.
	EscrowedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timelock_escrowed_value",
		Help: "Net value escrowed by requests handled since start",
	})
	// PendingGauge reports requests waiting for the ledger clock.
	PendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timelock_pending_requests",
		Help: "Requests queued until the first block header arrives",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterMetrics registers the engine metrics on the provided registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(RequestCounter, EscrowedGauge, PendingGauge)
}

// Outcome names err by the entry of known it matches, "ok" for nil and
// "other" when none match.
func Outcome(err error, known map[string]error) string {
	if err == nil {
		return "ok"
	}
	for name, target := range known {
		if errors.Is(err, target) {
			return name
		}
	}
	return "other"
}
