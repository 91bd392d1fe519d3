package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the velocity module.
type Metrics struct {
	// Trips by surface and window name.
	Trips *prometheus.CounterVec

	// Manual resets by surface.
	Resets *prometheus.CounterVec
}

// New creates a new Metrics instance with all velocity module metrics registered.
func New() *Metrics {
	return &Metrics{
		Trips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_velocity_trips_total",
			Help: "Total velocity window trips by surface and window",
		}, []string{"surface", "window"}),

		Resets: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_velocity_resets_total",
			Help: "Total manual velocity counter resets by surface",
		}, []string{"surface"}),
	}
}

// RecordTrip records a tripped window.
func (m *Metrics) RecordTrip(surface, window string) {
	if m != nil {
		m.Trips.WithLabelValues(surface, window).Inc()
	}
}

// RecordReset records a manual counter reset.
func (m *Metrics) RecordReset(surface string) {
	if m != nil {
		m.Resets.WithLabelValues(surface).Inc()
	}
}
