package url

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"vigil/internal/scan"
	"vigil/internal/threshold"
	dErrors "vigil/pkg/domain-errors"
)

type ClassifierSuite struct {
	suite.Suite
	classifier *HeuristicClassifier
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	s.classifier = NewHeuristicClassifier(
		WithDenyList([]string{"evil.example"}),
		WithAllowList([]string{"trusted.example"}),
	)
}

func (s *ClassifierSuite) classify(rawURL string) *Classification {
	out, err := s.classifier.Classify(context.Background(), rawURL)
	s.Require().NoError(err)
	return out
}

func (s *ClassifierSuite) TestDenyList() {
	out := s.classify("https://sub.evil.example/path")
	s.Equal(threshold.VerdictDenied, out.Verdict)
	s.Equal("evil.example", out.RegistrableDomain)
	s.Contains(out.Lists, "deny")
}

func (s *ClassifierSuite) TestAllowList() {
	out := s.classify("https://trusted.example/anything?utm_source=x")
	s.Equal(threshold.VerdictAllowed, out.Verdict)
	s.Contains(out.Lists, "allow")
}

func (s *ClassifierSuite) TestNonHTTPScheme() {
	out := s.classify("javascript:alert(1)")
	s.Equal(threshold.VerdictDenied, out.Verdict)

	out = s.classify("ftp://host.example/file")
	s.Equal(threshold.VerdictDenied, out.Verdict)
	s.Equal("non_http_scheme", out.Details["reason"])
}

func (s *ClassifierSuite) TestUnresolvedShortener() {
	out := s.classify("https://bit.ly/abc123")
	s.Equal(threshold.VerdictSuspicious, out.Verdict)
	s.Equal("unresolved_shortener", out.Details["reason"])
}

func (s *ClassifierSuite) TestTrackingParams() {
	out := s.classify("https://shop.example/product?fbclid=xyz")
	s.Equal(threshold.VerdictSuspicious, out.Verdict)
	s.Equal("tracking_params", out.Details["reason"])
}

func (s *ClassifierSuite) TestRiskyTLD() {
	out := s.classify("https://prizes.top/win")
	s.Equal(threshold.VerdictSuspicious, out.Verdict)
	s.Equal("risky_tld", out.Details["reason"])
}

func (s *ClassifierSuite) TestPlainURLUnknown() {
	out := s.classify("https://blog.example.com/post/42")
	s.Equal(threshold.VerdictUnknown, out.Verdict)
	s.Equal("example.com", out.RegistrableDomain)
}

type URLScannerSuite struct {
	suite.Suite
	store   *scan.MemoryStore
	cache   *MemoryCache
	scanner *Scanner
}

func TestURLScannerSuite(t *testing.T) {
	suite.Run(t, new(URLScannerSuite))
}

func (s *URLScannerSuite) SetupTest() {
	thresholds, err := threshold.New()
	s.Require().NoError(err)

	s.store = scan.NewMemoryStore()
	s.cache = NewMemoryCache()
	s.scanner, err = New(NoopResolver{}, NewHeuristicClassifier(WithDenyList([]string{"evil.example"})), thresholds, s.store,
		WithCache(s.cache))
	s.Require().NoError(err)
}

func (s *URLScannerSuite) TestDeniedURLBlocked() {
	ctx := context.Background()

	record, decision, classification, err := s.scanner.Scan(ctx, "post", "p1", "https://evil.example/lure")
	s.Require().NoError(err)
	s.Equal(threshold.StatusBlocked, decision.Status)
	s.Equal(threshold.VerdictDenied, classification.Verdict)
	s.Equal("blocked", record.Status)
}

func (s *URLScannerSuite) TestVerdictCached() {
	ctx := context.Background()

	_, _, _, err := s.scanner.Scan(ctx, "post", "p1", "https://evil.example/lure")
	s.Require().NoError(err)

	cached, hit, err := s.cache.Get(ctx, "https://evil.example/lure")
	s.Require().NoError(err)
	s.Require().True(hit)
	s.Equal(threshold.VerdictDenied, cached.Verdict)
}

func (s *URLScannerSuite) TestCacheShortCircuitsClassifier() {
	ctx := context.Background()

	counting := &countingClassifier{inner: NewHeuristicClassifier()}
	thresholds, err := threshold.New()
	s.Require().NoError(err)
	scanner, err := New(NoopResolver{}, counting, thresholds, s.store, WithCache(NewMemoryCache()))
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		_, _, _, err := scanner.Scan(ctx, "post", "p1", "https://blog.example.com/post")
		s.Require().NoError(err)
	}
	s.Equal(1, counting.calls)
}

func (s *URLScannerSuite) TestClassifierFailureIsUnavailable() {
	thresholds, err := threshold.New()
	s.Require().NoError(err)
	broken, err := New(NoopResolver{}, failingClassifier{}, thresholds, s.store)
	s.Require().NoError(err)

	_, _, _, err = broken.Scan(context.Background(), "post", "p1", "https://a.example")
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

func (s *URLScannerSuite) TestResolverFailureFallsBack() {
	thresholds, err := threshold.New()
	s.Require().NoError(err)
	scanner, err := New(failingResolver{}, NewHeuristicClassifier(), thresholds, s.store)
	s.Require().NoError(err)

	_, decision, classification, err := scanner.Scan(context.Background(), "post", "p1", "https://blog.example.com/post")
	s.Require().NoError(err)
	s.Equal(threshold.StatusClean, decision.Status)
	s.Equal("https://blog.example.com/post", classification.FinalURL)
}

type countingClassifier struct {
	inner Classifier
	calls int
}

func (c *countingClassifier) Classify(ctx context.Context, finalURL string) (*Classification, error) {
	c.calls++
	return c.inner.Classify(ctx, finalURL)
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string) (*Classification, error) {
	return nil, errors.New("list service down")
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}
