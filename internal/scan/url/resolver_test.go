package url

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ResolverSuite struct {
	suite.Suite
	ctx context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *ResolverSuite) TestFollowsRedirectChain() {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/landing", http.StatusFound)
	}))
	defer hop.Close()

	resolver := NewHTTPResolver(2 * time.Second)
	got, err := resolver.Resolve(s.ctx, hop.URL)
	s.Require().NoError(err)
	s.Equal(final.URL+"/landing", got)
}

func (s *ResolverSuite) TestRedirectHopsBounded() {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every request redirects to itself; resolution must still stop.
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	resolver := NewHTTPResolver(2 * time.Second)
	got, err := resolver.Resolve(s.ctx, srv.URL+"/a")
	s.Require().NoError(err)
	s.Contains(got, srv.URL)
}

func (s *ResolverSuite) TestBreakerShortCircuitsAfterRepeatedFailures() {
	// A server that is already closed fails every request fast.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	dead := srv.URL
	srv.Close()

	resolver := NewHTTPResolver(500 * time.Millisecond)
	for i := 0; i < 5; i++ {
		_, err := resolver.Resolve(s.ctx, dead)
		s.Require().Error(err)
	}
	s.True(resolver.breaker.IsOpen())

	_, err := resolver.Resolve(s.ctx, dead)
	s.ErrorIs(err, ErrResolverOpen)
}

func (s *ResolverSuite) TestNoopResolverPassesThrough() {
	got, err := NoopResolver{}.Resolve(s.ctx, "https://example.com/x")
	s.Require().NoError(err)
	s.Equal("https://example.com/x", got)
}
