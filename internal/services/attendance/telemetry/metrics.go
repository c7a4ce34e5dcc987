// Package telemetry exports attendance counters to Prometheus.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/session"
	"github.com/shiftproof/shiftproof/internal/services/attendance/service"
)

const namespace = "shiftproof"

// Metrics implements service.Metrics on an injected registry.
type Metrics struct {
	anomalies        *prometheus.CounterVec
	challenges       *prometheus.CounterVec
	adjudications    *prometheus.CounterVec
	responseDistance prometheus.Histogram
}

// NewMetrics registers the attendance collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: kind (double_entry, orphan_exit, exit_before_entry, zero_length, open_at_end)
		anomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "anomalies_total",
			Help:      "Irregular ledger sequences resolved during session reconstruction",
		}, []string{"kind"}),
		// Labels: slot, outcome (created, existing, collision)
		challenges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "challenges_total",
			Help:      "Challenge slots ensured by outcome",
		}, []string{"slot", "outcome"}),
		// Labels: outcome (accepted or a rejection reason)
		adjudications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "adjudications_total",
			Help:      "Challenge responses by outcome",
		}, []string{"outcome"}),
		responseDistance: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "response_distance_meters",
			Help:      "Distance from the site anchor of responses that reached the geofence check",
			Buckets:   []float64{10, 25, 50, 100, 150, 200, 300, 500, 1000, 5000},
		}),
	}
}

// ObserveAnomalies implements service.Metrics.
func (m *Metrics) ObserveAnomalies(counts map[session.AnomalyKind]int) {
	for kind, n := range counts {
		m.anomalies.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// ObserveChallenge implements service.Metrics.
func (m *Metrics) ObserveChallenge(slot presence.Slot, outcome service.ChallengeOutcome) {
	m.challenges.WithLabelValues(strconv.Itoa(int(slot)), string(outcome)).Inc()
}

// ObserveAdjudication implements service.Metrics.
func (m *Metrics) ObserveAdjudication(outcome presence.Outcome) {
	label := string(outcome.Reason)
	if outcome.Accepted {
		label = "accepted"
	}
	m.adjudications.WithLabelValues(label).Inc()
	if outcome.DistanceMeters != nil {
		m.responseDistance.Observe(*outcome.DistanceMeters)
	}
}

var _ service.Metrics = (*Metrics)(nil)
