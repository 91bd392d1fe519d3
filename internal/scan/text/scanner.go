// Package text scores content bodies against a pluggable detector and
// persists the result.
package text

import (
	"context"
	"errors"
	"log/slog"

	"vigil/internal/scan"
	"vigil/internal/scan/metrics"
	"vigil/internal/threshold"
	dErrors "vigil/pkg/domain-errors"
)

// Scanner runs one text scan end to end: normalize, score, map through the
// threshold evaluator, persist.
type Scanner struct {
	detector   Detector
	thresholds *threshold.Evaluator
	store      scan.Store
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// WithMetrics attaches scanner metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// New constructs a text Scanner.
func New(detector Detector, thresholds *threshold.Evaluator, store scan.Store, opts ...Option) (*Scanner, error) {
	if detector == nil {
		return nil, errors.New("detector is required")
	}
	if thresholds == nil {
		return nil, errors.New("threshold evaluator is required")
	}
	if store == nil {
		return nil, errors.New("scan store is required")
	}
	s := &Scanner{detector: detector, thresholds: thresholds, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan scores one body and persists the record. Detector failures come back
// as CodeUnavailable so stream consumers can count and continue without
// advancing past the entry.
func (s *Scanner) Scan(ctx context.Context, subjectType, subjectID, surface, body string) (*scan.Record, threshold.Decision, error) {
	if subjectType == "" || subjectID == "" {
		return nil, threshold.Decision{}, dErrors.New(dErrors.CodeInvalidInput, "subject_type and subject_id are required")
	}

	normalized := Normalize(body)
	scores, err := s.detector.Score(ctx, normalized)
	if err != nil {
		s.metrics.RecordFailure(scan.KindText)
		return nil, threshold.Decision{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "detector score")
	}

	decision := s.thresholds.EvaluateText(scores, surface)
	record := scan.NewRecord(subjectType, subjectID, scan.KindText, scores, string(decision.Status))
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, threshold.Decision{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist scan")
	}

	s.metrics.RecordScan(scan.KindText, string(decision.Status))
	if s.logger != nil && decision.Status != threshold.StatusClean {
		s.logger.InfoContext(ctx, "text scan flagged",
			"subject_type", subjectType, "subject_id", subjectID,
			"status", string(decision.Status), "category", decision.Category,
			"suggested_action", string(decision.SuggestedAction),
			"log_type", "audit")
	}
	return record, decision, nil
}
