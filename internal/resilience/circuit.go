package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Policy decides when a vendor breaker trips. Outcomes are counted per
// Window while closed; once MinRequests have been seen in the window a
// failure ratio at or above FailureRatio opens the breaker for OpenFor.
type Policy struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	Window       time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MinRequests <= 0 {
		p.MinRequests = 1
	}
	if p.FailureRatio <= 0 {
		p.FailureRatio = 0.5
	}
	p.FailureRatio = min(p.FailureRatio, 1)
	if p.OpenFor <= 0 {
		p.OpenFor = 30 * time.Second
	}
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	return p
}

// Breaker guards calls to one vendor site.
type Breaker struct {
	target string
	policy Policy
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	windowStart time.Time
	requests    int
	failures    int
	openUntil   time.Time
	probing     bool
}

// NewBreaker returns a closed breaker labelled with target.
func NewBreaker(target string, policy Policy) *Breaker {
	target = strings.TrimSpace(target)
	if target == "" {
		target = "default"
	}
	b := &Breaker{
		target: target,
		policy: policy.withDefaults(),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	b.windowStart = b.now()
	setStateGauge(b.target, Closed)
	return b
}

// Target is the label used in metrics and logs.
func (b *Breaker) Target() string { return b.target }

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a request may go out. Once OpenFor has passed an
// open breaker admits exactly one probe; the probe's Report decides whether
// it closes again.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Before(b.openUntil) {
			return false
		}
		b.moveLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return true
}

// Report records the outcome of an admitted request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.moveLocked(ctx, Closed)
		} else {
			b.moveLocked(ctx, Open)
		}
		return
	}

	now := b.now()
	if now.Sub(b.windowStart) >= b.policy.Window {
		b.resetWindowLocked(now)
	}
	b.requests++
	if !success {
		b.failures++
	}
	if b.requests < b.policy.MinRequests {
		return
	}
	if float64(b.failures)/float64(b.requests) >= b.policy.FailureRatio {
		b.moveLocked(ctx, Open)
	}
}

func (b *Breaker) resetWindowLocked(now time.Time) {
	b.windowStart = now
	b.requests = 0
	b.failures = 0
}

func (b *Breaker) moveLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	now := b.now()
	b.state = next
	b.probing = false
	b.resetWindowLocked(now)
	if next == Open {
		b.openUntil = now.Add(b.policy.OpenFor)
	}
	observeTransition(b.target, prev, next)

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &b.logger
	}
	evt := logger.Info().Str("target", b.target).Str("from_state", prev.String()).Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

// Breakers hands out one breaker per vendor, created on first use.
type Breakers struct {
	Policy Policy
	Logger zerolog.Logger

	mu       sync.Mutex
	byTarget map[string]*Breaker
}

// For returns the breaker for target.
func (bs *Breakers) For(target string) *Breaker {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if b, ok := bs.byTarget[target]; ok {
		return b
	}
	if bs.byTarget == nil {
		bs.byTarget = make(map[string]*Breaker)
	}
	b := NewBreaker(target, bs.Policy)
	b.logger = bs.Logger
	bs.byTarget[target] = b
	return b
}
