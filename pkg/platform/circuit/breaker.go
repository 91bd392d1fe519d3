// Package circuit provides a minimal circuit breaker for outbound
// dependencies. Callers record outcomes; the breaker tells them whether to
// keep using the primary path or fall back.
package circuit

import "sync"

// State is the breaker position.
type State string

const (
	// StateClosed passes traffic to the primary path.
	StateClosed State = "closed"
	// StateOpen diverts traffic to the fallback path.
	StateOpen State = "open"
)

// Defaults applied when no option overrides them.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
)

// Change reports a state transition caused by a recorded outcome. Both
// fields false means the outcome did not move the breaker.
type Change struct {
	Opened bool
	Closed bool
}

// Breaker counts consecutive failures and successes and flips between
// closed and open at the configured thresholds.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int

	mu        sync.Mutex
	state     State
	failures  int
	successes int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close an open
// breaker.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: DefaultFailureThreshold,
		successThreshold: DefaultSuccessThreshold,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker's identifier.
func (b *Breaker) Name() string { return b.name }

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether callers should take the fallback path.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// RecordFailure counts a failed call. It returns whether the caller should
// now use the fallback, and the transition this outcome caused, if any.
func (b *Breaker) RecordFailure() (useFallback bool, change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successes = 0
		return true, Change{}
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.failures = 0
		b.successes = 0
		return true, Change{Opened: true}
	}
	return false, Change{}
}

// RecordSuccess counts a successful call. It returns whether the caller
// should use the primary path, and the transition this outcome caused.
func (b *Breaker) RecordSuccess() (usePrimary bool, change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		b.failures = 0
		return true, Change{}
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.failures = 0
		b.successes = 0
		return true, Change{Closed: true}
	}
	return false, Change{}
}

// Reset forces the breaker closed and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
