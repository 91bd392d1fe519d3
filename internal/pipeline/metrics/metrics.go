package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the stream workers.
type Metrics struct {
	// Entries processed to completion by worker.
	Processed *prometheus.CounterVec

	// Entries skipped after a non-retryable failure by worker.
	Skipped *prometheus.CounterVec

	// Batch retries after a backend outage by worker.
	Retries *prometheus.CounterVec

	// Decisions emitted to the decisions stream by applied action.
	DecisionsEmitted *prometheus.CounterVec

	// Decisions consumed from the decisions stream by applied action.
	DecisionsConsumed *prometheus.CounterVec
}

// New creates a new Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		Processed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_pipeline_entries_processed_total",
			Help: "Total stream entries processed to completion by worker",
		}, []string{"worker"}),

		Skipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_pipeline_entries_skipped_total",
			Help: "Total stream entries skipped after a non-retryable failure",
		}, []string{"worker"}),

		Retries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_pipeline_batch_retries_total",
			Help: "Total batch retries after a backend outage by worker",
		}, []string{"worker"}),

		DecisionsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_pipeline_decisions_emitted_total",
			Help: "Total decision records emitted by applied action",
		}, []string{"action"}),

		DecisionsConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_pipeline_decisions_consumed_total",
			Help: "Total decision records consumed by applied action",
		}, []string{"action"}),
	}
}

// RecordProcessed records an entry processed to completion.
func (m *Metrics) RecordProcessed(worker string) {
	if m != nil {
		m.Processed.WithLabelValues(worker).Inc()
	}
}

// RecordSkipped records an entry skipped after a non-retryable failure.
func (m *Metrics) RecordSkipped(worker string) {
	if m != nil {
		m.Skipped.WithLabelValues(worker).Inc()
	}
}

// RecordRetry records a batch retry after a backend outage.
func (m *Metrics) RecordRetry(worker string) {
	if m != nil {
		m.Retries.WithLabelValues(worker).Inc()
	}
}

// RecordDecisionEmitted records a decision record written to the stream.
func (m *Metrics) RecordDecisionEmitted(action string) {
	if m != nil {
		m.DecisionsEmitted.WithLabelValues(action).Inc()
	}
}

// RecordDecisionConsumed records a decision record read from the stream.
func (m *Metrics) RecordDecisionConsumed(action string) {
	if m != nil {
		m.DecisionsConsumed.WithLabelValues(action).Inc()
	}
}
