// Package resilience guards calls to flaky dependencies with per-name
// circuit breakers and bounded retries.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is a circuit breaker state.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls without running them.
	Open
	// HalfOpen lets probe calls through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a breaker rejects a call.
var ErrOpen = eris.New("resilience: circuit open")

// BreakerConfig controls breaker behavior.
type BreakerConfig struct {
	// Threshold is the number of consecutive tripping failures that opens
	// the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before admitting a probe.
	Cooldown time.Duration
	// Probes is the number of successful half-open calls needed to close.
	Probes int
	// Trips reports whether err counts toward Threshold. Nil counts every
	// non-nil error.
	Trips func(err error) bool
	// OnTransition is called with the breaker's name on each state change,
	// while the breaker's lock is held.
	OnTransition func(name string, from, to State)
}

// DefaultBreakerConfig opens after 5 failures and cools down for 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold: 5,
		Cooldown:  30 * time.Second,
		Probes:    1,
	}
}

// NewBreakerConfig builds a config from plain settings, keeping defaults for
// non-positive values.
func NewBreakerConfig(threshold, cooldownSecs int) BreakerConfig {
	cfg := DefaultBreakerConfig()
	if threshold > 0 {
		cfg.Threshold = threshold
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}

// Breaker is a circuit breaker for one named dependency.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probeOK  int

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Probes <= 0 {
		cfg.Probes = def.Probes
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// Allow returns ErrOpen if the breaker is rejecting calls. An open breaker
// whose cooldown has elapsed moves to half-open and admits the call.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
		return ErrOpen
	}
	b.setState(HalfOpen)
	return nil
}

// Record feeds a call's outcome into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.trips(err) {
		switch b.state {
		case HalfOpen:
			b.probeOK++
			if b.probeOK >= b.cfg.Probes {
				b.failures = 0
				b.probeOK = 0
				b.setState(Closed)
			}
		case Closed:
			b.failures = 0
		}
		return
	}

	b.failures++
	switch b.state {
	case Closed:
		if b.failures >= b.cfg.Threshold {
			b.open()
		}
	case HalfOpen:
		b.probeOK = 0
		b.open()
	}
}

// State returns the current state. An open breaker past its cooldown reports
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return HalfOpen
	}
	return b.state
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probeOK = 0
	b.setState(Closed)
}

func (b *Breaker) trips(err error) bool {
	if b.cfg.Trips == nil {
		return true
	}
	return b.cfg.Trips(err)
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.setState(Open)
}

func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	if from != to && b.cfg.OnTransition != nil {
		b.cfg.OnTransition(b.name, from, to)
	}
}

// Guard runs fn if b admits it and records the outcome.
func Guard[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.Record(err)
	return val, err
}

// Breakers hands out one Breaker per name, created on first use.
type Breakers struct {
	cfg BreakerConfig

	mu sync.RWMutex
	m  map[string]*Breaker
}

// NewBreakers creates an empty set sharing cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, m: make(map[string]*Breaker)}
}

// Get returns the breaker for name.
func (s *Breakers) Get(name string) *Breaker {
	s.mu.RLock()
	b, ok := s.m[name]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.m[name]; ok {
		return b
	}
	b = NewBreaker(name, s.cfg)
	s.m[name] = b
	return b
}

// States snapshots every breaker's state.
func (s *Breakers) States() map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State, len(s.m))
	for name, b := range s.m {
		out[name] = b.State()
	}
	return out
}
