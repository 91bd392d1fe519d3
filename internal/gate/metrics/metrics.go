package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the write gate.
type Metrics struct {
	// Rejections by surface and reason (cooldown_active, captcha_required).
	Rejections *prometheus.CounterVec

	// Shadowed writes by surface.
	ShadowWrites *prometheus.CounterVec

	// Captcha requirements surfaced by surface.
	CaptchaRequired *prometheus.CounterVec

	// Honeypot trips by surface.
	HoneypotTrips *prometheus.CounterVec

	// Link strips applied by surface.
	LinkStrips *prometheus.CounterVec
}

// New creates a new Metrics instance with all gate metrics registered.
func New() *Metrics {
	return &Metrics{
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_gate_rejections_total",
			Help: "Total write rejections by surface and reason",
		}, []string{"surface", "reason"}),

		ShadowWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_gate_shadow_writes_total",
			Help: "Total writes marked shadow by surface",
		}, []string{"surface"}),

		CaptchaRequired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_gate_captcha_required_total",
			Help: "Total captcha requirements surfaced by surface",
		}, []string{"surface"}),

		HoneypotTrips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_gate_honeypot_trips_total",
			Help: "Total honeypot trips absorbed by surface",
		}, []string{"surface"}),

		LinkStrips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_gate_link_strips_total",
			Help: "Total link-cooloff strip annotations by surface",
		}, []string{"surface"}),
	}
}

// RecordRejection records a rejected write.
func (m *Metrics) RecordRejection(surface, reason string) {
	if m != nil {
		m.Rejections.WithLabelValues(surface, reason).Inc()
	}
}

// RecordShadowWrite records a write marked shadow.
func (m *Metrics) RecordShadowWrite(surface string) {
	if m != nil {
		m.ShadowWrites.WithLabelValues(surface).Inc()
	}
}

// RecordCaptchaRequired records a surfaced captcha requirement.
func (m *Metrics) RecordCaptchaRequired(surface string) {
	if m != nil {
		m.CaptchaRequired.WithLabelValues(surface).Inc()
	}
}

// RecordHoneypotTrip records an absorbed honeypot attempt.
func (m *Metrics) RecordHoneypotTrip(surface string) {
	if m != nil {
		m.HoneypotTrips.WithLabelValues(surface).Inc()
	}
}

// RecordLinkStrip records a link-cooloff strip annotation.
func (m *Metrics) RecordLinkStrip(surface string) {
	if m != nil {
		m.LinkStrips.WithLabelValues(surface).Inc()
	}
}
