package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the quarantine queue.
type Metrics struct {
	// Backlog size per review bucket, refreshed after every list and
	// resolve call.
	Backlog *prometheus.GaugeVec

	// Items taken in for review.
	Intakes prometheus.Counter

	// Resolutions by moderator verdict.
	Resolutions *prometheus.CounterVec
}

// New creates a new Metrics instance with all quarantine metrics registered.
func New() *Metrics {
	return &Metrics{
		Backlog: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vigil_quarantine_backlog",
			Help: "Held attachments per review bucket",
		}, []string{"bucket"}),

		Intakes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_quarantine_intakes_total",
			Help: "Total attachments held for review",
		}),

		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_quarantine_resolutions_total",
			Help: "Total moderator resolutions by verdict",
		}, []string{"verdict"}),
	}
}

// SetBacklog sets the backlog gauge for one bucket.
func (m *Metrics) SetBacklog(bucket string, n int) {
	if m != nil {
		m.Backlog.WithLabelValues(bucket).Set(float64(n))
	}
}

// RecordIntake records an attachment taken in for review.
func (m *Metrics) RecordIntake() {
	if m != nil {
		m.Intakes.Inc()
	}
}

// RecordResolution records a moderator verdict.
func (m *Metrics) RecordResolution(verdict string) {
	if m != nil {
		m.Resolutions.WithLabelValues(verdict).Inc()
	}
}
