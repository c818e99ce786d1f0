package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrProviderSuspended is returned while a provider's breaker is open. The
// observation runner treats it like any other failure and moves to the
// fallback provider.
var ErrProviderSuspended = eris.New("resilience: provider suspended after repeated failures")

// BreakerState is the lifecycle position of one provider's breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through and counts consecutive failures.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen admits probe calls to test whether the provider
	// recovered.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes when a provider is suspended and reinstated.
type BreakerConfig struct {
	// TripAfter is the run of consecutive failures that suspends the
	// provider.
	TripAfter int
	// Cooldown is how long a suspension lasts before probes are admitted.
	Cooldown time.Duration
	// ProbeQuota is the number of consecutive probe successes needed to
	// reinstate the provider.
	ProbeQuota int
	// Counts decides which errors count toward TripAfter. Nil counts every
	// error; context cancellation during a batch shutdown should not trip
	// a healthy provider, so callers may exclude it here.
	Counts func(error) bool
}

// DefaultBreakerConfig suspends a provider after five straight failures for
// thirty seconds, roughly one rate-limit window at the default RPM.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		TripAfter:  5,
		Cooldown:   30 * time.Second,
		ProbeQuota: 1,
	}
}

// Breaker guards calls to one provider.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	probes      int
	suspendedAt time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker for the named provider. Zero config
// fields fall back to DefaultBreakerConfig.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	d := DefaultBreakerConfig()
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = d.TripAfter
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = d.Cooldown
	}
	if cfg.ProbeQuota <= 0 {
		cfg.ProbeQuota = d.ProbeQuota
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Guard runs fn through the breaker. An open breaker rejects the call with
// ErrProviderSuspended without invoking fn.
func (b *Breaker) Guard(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// GuardVal is Guard for calls that produce a value.
func GuardVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen {
		if b.now().Sub(b.suspendedAt) < b.cfg.Cooldown {
			return ErrProviderSuspended
		}
		b.shift(BreakerHalfOpen)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && b.cfg.Counts != nil && !b.cfg.Counts(err) {
		// Excluded errors are neutral: they neither trip the breaker nor
		// count as a successful probe.
		return
	}

	if err == nil {
		switch b.state {
		case BreakerHalfOpen:
			b.probes++
			if b.probes >= b.cfg.ProbeQuota {
				b.failures = 0
				b.probes = 0
				b.shift(BreakerClosed)
			}
		case BreakerClosed:
			b.failures = 0
		}
		return
	}

	b.failures++
	b.suspendedAt = b.now()

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.cfg.TripAfter {
			b.shift(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.probes = 0
		b.shift(BreakerOpen)
	}
}

// shift must be called with the mutex held.
func (b *Breaker) shift(to BreakerState) {
	from := b.state
	b.state = to
	zap.L().Info("provider breaker changed state",
		zap.String("provider", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}

// State returns the current state, reporting half-open once an open
// breaker's cooldown has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.suspendedAt) >= b.cfg.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset reinstates the provider immediately.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probes = 0
	if b.state != BreakerClosed {
		b.shift(BreakerClosed)
	}
}

// BreakerSet holds one breaker per provider so the primary tripping never
// blocks the fallback.
type BreakerSet struct {
	cfg BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewBreakerSet creates an empty set; breakers are created on first use
// with the given config.
func NewBreakerSet(cfg BreakerConfig) *BreakerSet {
	return &BreakerSet{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
	}
}

// For returns the breaker for the named provider, creating it if needed.
func (s *BreakerSet) For(provider string) *Breaker {
	s.mu.RLock()
	b, ok := s.breakers[provider]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[provider]; ok {
		return b
	}
	b = NewBreaker(provider, s.cfg)
	s.breakers[provider] = b
	return b
}

// States snapshots every known provider's breaker state.
func (s *BreakerSet) States() map[string]BreakerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]BreakerState, len(s.breakers))
	for name, b := range s.breakers {
		out[name] = b.State()
	}
	return out
}
