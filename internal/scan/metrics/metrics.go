package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for both scanners.
type Metrics struct {
	// Completed scans by kind and resulting status.
	Scans *prometheus.CounterVec

	// Detector or classifier failures by kind.
	Failures *prometheus.CounterVec

	// Verdict cache hits and misses for the URL scanner.
	CacheLookups *prometheus.CounterVec
}

// New creates a new Metrics instance with all scanner metrics registered.
func New() *Metrics {
	return &Metrics{
		Scans: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_scan_completed_total",
			Help: "Total completed scans by kind and status",
		}, []string{"kind", "status"}),

		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_scan_failures_total",
			Help: "Total detector and classifier failures by kind",
		}, []string{"kind"}),

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_scan_url_cache_lookups_total",
			Help: "URL verdict cache lookups by outcome",
		}, []string{"outcome"}),
	}
}

// RecordScan records a completed scan.
func (m *Metrics) RecordScan(kind, status string) {
	if m != nil {
		m.Scans.WithLabelValues(kind, status).Inc()
	}
}

// RecordFailure records a detector or classifier failure.
func (m *Metrics) RecordFailure(kind string) {
	if m != nil {
		m.Failures.WithLabelValues(kind).Inc()
	}
}

// RecordCacheLookup records a verdict cache hit or miss.
func (m *Metrics) RecordCacheLookup(outcome string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(outcome).Inc()
	}
}
