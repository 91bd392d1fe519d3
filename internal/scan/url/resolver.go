package url

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"vigil/pkg/platform/circuit"
)

// MaxRedirectHops bounds redirect chain resolution. A chain longer than
// this resolves to wherever it stood at the bound.
const MaxRedirectHops = 5

// Resolver follows a URL's redirect chain and returns the final URL.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

// NoopResolver returns the URL unchanged, for offline and test use.
type NoopResolver struct{}

func (NoopResolver) Resolve(_ context.Context, rawURL string) (string, error) {
	return rawURL, nil
}

// ErrResolverOpen is returned while the resolver's circuit breaker is open.
// Callers classify the raw URL instead of waiting on a flapping network.
var ErrResolverOpen = errors.New("redirect resolver circuit open")

// probeEvery is how many open-circuit calls are skipped between probes.
const probeEvery = 16

// HTTPResolver resolves redirects with HEAD requests, never following more
// than MaxRedirectHops and never downloading bodies. Repeated failures open
// a circuit breaker so a wedged network does not stall scan throughput.
type HTTPResolver struct {
	client  *http.Client
	breaker *circuit.Breaker
	skipped atomic.Int64
}

// NewHTTPResolver creates a resolver with a bounded-redirect HTTP client.
func NewHTTPResolver(timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirectHops {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		breaker: circuit.New("url-resolver"),
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	if r.breaker.IsOpen() {
		// Let the occasional probe through so the breaker can close again.
		if r.skipped.Add(1)%probeEvery != 0 {
			return "", ErrResolverOpen
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build resolve request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.breaker.RecordFailure()
		return "", fmt.Errorf("resolve %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	r.breaker.RecordSuccess()
	return resp.Request.URL.String(), nil
}
