package url

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/scan"
	"vigil/internal/scan/metrics"
	"vigil/internal/threshold"
	dErrors "vigil/pkg/domain-errors"
)

// DefaultVerdictTTL is how long a cached verdict stays authoritative.
const DefaultVerdictTTL = 6 * time.Hour

// Scanner runs one URL scan end to end: resolve redirects, consult the
// verdict cache, classify on miss, evaluate, persist.
type Scanner struct {
	resolver   Resolver
	classifier Classifier
	cache      VerdictCache
	thresholds *threshold.Evaluator
	store      scan.Store
	ttl        time.Duration
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

// WithCache attaches a verdict cache.
func WithCache(cache VerdictCache) Option {
	return func(s *Scanner) { s.cache = cache }
}

// WithVerdictTTL overrides the cached verdict lifetime.
func WithVerdictTTL(ttl time.Duration) Option {
	return func(s *Scanner) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New constructs a URL Scanner.
func New(resolver Resolver, classifier Classifier, thresholds *threshold.Evaluator, store scan.Store, opts ...Option) (*Scanner, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if thresholds == nil {
		return nil, errors.New("threshold evaluator is required")
	}
	if store == nil {
		return nil, errors.New("scan store is required")
	}
	s := &Scanner{
		resolver:   resolver,
		classifier: classifier,
		thresholds: thresholds,
		store:      store,
		ttl:        DefaultVerdictTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan classifies one URL and persists the record. A resolver failure
// classifies the original URL instead of failing the scan; classifier
// failures come back as CodeUnavailable for the stream consumer to retry.
func (s *Scanner) Scan(ctx context.Context, subjectType, subjectID, rawURL string) (*scan.Record, threshold.Decision, *Classification, error) {
	if subjectType == "" || subjectID == "" {
		return nil, threshold.Decision{}, nil, dErrors.New(dErrors.CodeInvalidInput, "subject_type and subject_id are required")
	}

	finalURL, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		// Unreachable destinations still get classified by what we can
		// see in the URL itself.
		finalURL = rawURL
		if s.logger != nil {
			s.logger.WarnContext(ctx, "redirect resolution failed", "url", rawURL, "error", err)
		}
	}

	classification, err := s.lookupOrClassify(ctx, finalURL)
	if err != nil {
		s.metrics.RecordFailure(scan.KindURL)
		return nil, threshold.Decision{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "classify url")
	}

	decision := s.thresholds.EvaluateURL(classification.Verdict)
	record := scan.NewRecord(subjectType, subjectID, scan.KindURL, nil, string(decision.Status))
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, threshold.Decision{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist scan")
	}

	s.metrics.RecordScan(scan.KindURL, string(decision.Status))
	if s.logger != nil && decision.Status != threshold.StatusClean {
		s.logger.InfoContext(ctx, "url scan flagged",
			"subject_type", subjectType, "subject_id", subjectID,
			"final_url", classification.FinalURL, "verdict", classification.Verdict,
			"registrable_domain", classification.RegistrableDomain,
			"log_type", "audit")
	}
	return record, decision, classification, nil
}

func (s *Scanner) lookupOrClassify(ctx context.Context, finalURL string) (*Classification, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, finalURL)
		if err == nil && hit {
			s.metrics.RecordCacheLookup("hit")
			return cached, nil
		}
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "verdict cache get failed", "error", err)
		}
		s.metrics.RecordCacheLookup("miss")
	}

	classification, err := s.classifier.Classify(ctx, finalURL)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, finalURL, classification, s.ttl); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "verdict cache set failed", "error", err)
		}
	}
	return classification, nil
}
