// Package circuitbreaker wraps each external dependency (vector index,
// relational mirror, chain SDK, classification service, trust graph
// store) in a closed/open/half-open state machine so a failing
// dependency degrades gracefully instead of cascading.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/erc8004/agent-gateway/internal/apierror"
)

// ErrOpen is returned (wrapped in an apierror.Error) when a call is
// rejected because the breaker is open.
var ErrOpen = gobreaker.ErrOpenState

// Metrics tracks breaker state transitions per dependency name, mirroring
// the gateway's other Prometheus collectors.
type Metrics struct {
	StateTransitions *prometheus.CounterVec
	RejectedTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the circuit breaker's Prometheus
// collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_state_transitions_total",
				Help: "Total number of circuit breaker state transitions by dependency and target state.",
			},
			[]string{"dependency", "state"},
		),
		RejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_rejected_total",
				Help: "Total number of calls rejected by an open circuit breaker.",
			},
			[]string{"dependency"},
		),
	}
	reg.MustRegister(m.StateTransitions, m.RejectedTotal)
	return m
}

// Breaker wraps a single external dependency.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
	m    *Metrics
}

// Config tunes the underlying state machine. Zero values fall back to
// sensible defaults (5 consecutive failures to trip, 30s open period,
// 3 trial calls while half-open).
type Config struct {
	MaxHalfOpenRequests uint32
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

func (c Config) withDefaults() Config {
	if c.MaxHalfOpenRequests == 0 {
		c.MaxHalfOpenRequests = 3
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	return c
}

// New creates a Breaker named name (used as the Prometheus label and in
// apierror messages).
func New(name string, cfg Config, m *Metrics) *Breaker {
	cfg = cfg.withDefaults()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			if m != nil {
				m.StateTransitions.WithLabelValues(name, to.String()).Inc()
			}
		},
	}

	return &Breaker{
		name: name,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
		m:    m,
	}
}

// Do executes fn through the breaker. A breaker-open rejection and any
// error fn returns are both surfaced as an
// *apierror.Error with Code=CodeUpstreamUnavailable.
func Do[T any](b *Breaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	result, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			if b.m != nil {
				b.m.RejectedTotal.WithLabelValues(b.name).Inc()
			}
		}
		return zero, apierror.UpstreamUnavailable(b.name, err)
	}

	v, ok := result.(T)
	if !ok {
		return zero, apierror.Internal(errors.New("circuitbreaker: unexpected result type"))
	}
	return v, nil
}

// State returns the breaker's current state name ("closed", "open",
// "half-open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}
