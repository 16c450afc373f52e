// Package selection owns the lifecycle of the single active map selection:
// idle → loading → succeeded | failed, with the most recent selection always
// winning regardless of the order in which prediction calls complete.
package selection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
)

// ErrClosed is returned by Select after Close.
var ErrClosed = errors.New("selection machine closed")

// Listener receives every display-state transition in order. Listeners run
// while the machine's lock is held: they must not block and must not call
// back into the machine.
type Listener func(domain.DisplayState)

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the time source for state timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithTimeout sets the per-call prediction timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// WithCancelSuperseded makes a new selection cancel the previous call's
// context instead of letting it run to completion.
func WithCancelSuperseded(enabled bool) Option {
	return func(m *Machine) { m.cancelSuperseded = enabled }
}

type subscription struct {
	id int
	fn Listener
}

// Machine is the request state machine. It is safe for concurrent use.
type Machine struct {
	predictor        domain.Predictor
	logger           *slog.Logger
	metrics          *observability.Metrics
	clock            clockwork.Clock
	timeout          time.Duration
	cancelSuperseded bool

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu           sync.Mutex
	state        domain.DisplayState
	cancelActive context.CancelFunc
	listeners    []subscription
	nextID       int
	closed       bool
}

// New creates a Machine in the idle state.
func New(p domain.Predictor, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Machine {
	ctx, stop := context.WithCancel(context.Background())
	m := &Machine{
		predictor: p,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		timeout:   domain.DefaultPredictionTimeout,
		baseCtx:   ctx,
		stop:      stop,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state = domain.DisplayState{Phase: domain.PhaseIdle, UpdatedAt: m.clock.Now()}
	return m
}

// Select makes c the active selection, moves to loading and starts a
// prediction call in the background. The returned state is the loading state.
func (m *Machine) Select(c domain.Coordinate) (domain.DisplayState, error) {
	if err := c.Validate(); err != nil {
		return domain.DisplayState{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.DisplayState{}, ErrClosed
	}
	if m.cancelSuperseded && m.cancelActive != nil {
		m.cancelActive()
	}

	sel := c
	m.state = domain.DisplayState{
		Phase:      domain.PhaseLoading,
		Selection:  &sel,
		RequestID:  uuid.NewString(),
		Generation: m.state.Generation + 1,
		UpdatedAt:  m.clock.Now(),
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.cancelActive = cancel

	m.metrics.Selections.Inc()
	m.metrics.InFlight.Inc()
	m.logger.Info("selection started",
		"request_id", m.state.RequestID,
		"generation", m.state.Generation,
		"lat", c.Latitude,
		"lng", c.Longitude,
	)

	m.wg.Add(1)
	go m.run(ctx, cancel, m.state)

	m.notifyLocked()
	return m.state, nil
}

func (m *Machine) run(ctx context.Context, cancel context.CancelFunc, started domain.DisplayState) {
	defer m.wg.Done()
	defer cancel()

	value, err := m.predictor.Predict(ctx, *started.Selection, m.timeout)
	m.metrics.InFlight.Dec()

	m.mu.Lock()
	defer m.mu.Unlock()

	if started.Generation != m.state.Generation {
		m.metrics.SupersededResults.Inc()
		m.logger.Debug("discarding superseded prediction",
			"request_id", started.RequestID,
			"generation", started.Generation,
			"current_generation", m.state.Generation,
		)
		return
	}
	if m.closed {
		return
	}
	m.cancelActive = nil

	next := started
	next.UpdatedAt = m.clock.Now()
	if err != nil {
		next.Phase = domain.PhaseFailed
		next.Error = domain.UserMessage(err)
		next.ErrorKind = domain.KindOf(err)
		m.logger.Warn("prediction failed",
			"request_id", started.RequestID,
			"kind", next.ErrorKind,
			"error", err,
		)
	} else {
		v := value
		next.Phase = domain.PhaseSucceeded
		next.Value = &v
		next.Concentration = domain.FormatConcentration(value)
		m.logger.Info("prediction succeeded",
			"request_id", started.RequestID,
			"value", value,
			"concentration", next.Concentration,
		)
	}

	m.state = next
	m.metrics.Outcomes.WithLabelValues(string(next.Phase)).Inc()
	m.notifyLocked()
}

// Current returns the display state.
func (m *Machine) Current() domain.DisplayState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers l for future transitions and returns a function that
// removes it.
func (m *Machine) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, subscription{id: id, fn: l})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.listeners {
			if s.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Machine) notifyLocked() {
	for _, s := range m.listeners {
		s.fn(m.state)
	}
}

// Close cancels outstanding prediction calls and waits for them to return.
// The display state is left as it was.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.stop()
	m.wg.Wait()
}
