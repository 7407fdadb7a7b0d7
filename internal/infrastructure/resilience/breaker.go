package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests is the number of trial calls allowed while half-open,
	// and the number of successes needed to close again.
	MaxRequests uint32
	// Interval clears the closed-state counts periodically. Zero keeps them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before a trial.
	Timeout time.Duration
	// ReadyToTrip decides, after a failure while closed, whether to open.
	ReadyToTrip func(counts Counts) bool
	// IsFailure classifies call errors. Cancellation by the caller is not
	// the remote side's fault and is ignored by default.
	IsFailure func(err error) bool
	// OnStateChange is called whenever the state changes, outside the lock.
	OnStateChange func(name string, from State, to State)
	// Now replaces the clock in tests.
	Now func() time.Time
}

// Counts holds the statistics of the current generation
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker guards calls to a flaky dependency.
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}
	if settings.IsFailure == nil {
		settings.IsFailure = defaultIsFailure
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}

	b := &Breaker{name: name, settings: settings, state: StateClosed}
	b.resetGeneration(settings.Now())
	return b
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	state, _, change := b.current(b.settings.Now())
	b.mu.Unlock()
	b.notify(change)
	return state
}

// Counts returns a copy of the current generation's counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn when the breaker admits the call. Rejections wrap
// ErrCircuitOpen or ErrTooManyRequests with the breaker name.
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	generation, err := b.admit()
	if err != nil {
		return zero, fmt.Errorf("%s: %w", b.name, err)
	}

	done := false
	defer func() {
		if !done {
			b.record(generation, errors.New("panic"))
		}
	}()

	result, err := fn(ctx)
	done = true
	b.record(generation, err)
	return result, err
}

// Execute runs fn through the breaker without a result value.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	_, err := Do(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

type transition struct {
	from, to State
	changed  bool
}

func (b *Breaker) notify(t transition) {
	if t.changed && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, t.from, t.to)
	}
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	state, generation, change := b.current(b.settings.Now())
	var err error
	switch {
	case state == StateOpen:
		err = ErrCircuitOpen
	case state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests:
		err = ErrTooManyRequests
	default:
		b.counts.Requests++
	}
	b.mu.Unlock()
	b.notify(change)
	return generation, err
}

func (b *Breaker) record(before uint64, err error) {
	b.mu.Lock()
	now := b.settings.Now()
	state, generation, change := b.current(now)
	if generation == before {
		var next transition
		if b.settings.IsFailure(err) {
			next = b.onFailure(state, now)
		} else {
			next = b.onSuccess(state, now)
		}
		if next.changed {
			change = next
		}
	}
	b.mu.Unlock()
	b.notify(change)
}

func (b *Breaker) onSuccess(state State, now time.Time) transition {
	b.counts.TotalSuccesses++
	b.counts.ConsecutiveSuccesses++
	b.counts.ConsecutiveFailures = 0
	if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
		return b.setState(StateClosed, now)
	}
	return transition{}
}

func (b *Breaker) onFailure(state State, now time.Time) transition {
	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	switch state {
	case StateClosed:
		if b.settings.ReadyToTrip(b.counts) {
			return b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		return b.setState(StateOpen, now)
	}
	return transition{}
}

// current advances time-driven transitions. Callers hold mu.
func (b *Breaker) current(now time.Time) (State, uint64, transition) {
	var change transition
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && !b.expiry.After(now) {
			b.resetGeneration(now)
		}
	case StateOpen:
		if !b.expiry.After(now) {
			change = b.setState(StateHalfOpen, now)
		}
	}
	return b.state, b.generation, change
}

func (b *Breaker) setState(state State, now time.Time) transition {
	if b.state == state {
		return transition{}
	}
	prev := b.state
	b.state = state
	b.resetGeneration(now)
	return transition{from: prev, to: state, changed: true}
}

func (b *Breaker) resetGeneration(now time.Time) {
	b.generation++
	b.counts = Counts{}
	switch b.state {
	case StateClosed:
		if b.settings.Interval > 0 {
			b.expiry = now.Add(b.settings.Interval)
		} else {
			b.expiry = time.Time{}
		}
	case StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}
}
