// Package resilience guards outbound calls to external receivers.
package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrOpen is returned while the breaker refuses calls, including extra calls
// while a half-open probe is in flight.
var ErrOpen = errors.New("resilience: circuit open")

// State is the breaker state.
type State = gobreaker.State

const (
	Closed   = gobreaker.StateClosed
	HalfOpen = gobreaker.StateHalfOpen
	Open     = gobreaker.StateOpen
)

// Breaker opens once the failure ratio over at least MinRequests calls reaches
// FailureRatio, and lets a single probe through after OpenFor.
type Breaker struct {
	Target string
	Logger zerolog.Logger

	cb *gobreaker.CircuitBreaker[struct{}]
}

// NewBreaker returns a closed breaker for target.
func NewBreaker(target string, minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if target == "" {
		target = "default"
	}
	if minRequests <= 0 {
		minRequests = 5
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	b := &Breaker{Target: target}
	b.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        target,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= uint32(minRequests) &&
				float64(c.TotalFailures)/float64(c.Requests) >= failureRatio
		},
		// a caller giving up is not a receiver failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: b.onStateChange,
	})
	breakerState.WithLabelValues(target).Set(float64(Closed))
	return b
}

// State reports the current state.
func (b *Breaker) State() State {
	return b.cb.State()
}

// Do runs fn when the breaker admits it and records the outcome. A nil
// breaker always runs fn.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if b == nil {
		return fn(ctx)
	}
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	breakerState.WithLabelValues(name).Set(float64(to))
	breakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	b.Logger.Info().
		Str("target", name).Str("from", from.String()).Str("to", to.String()).
		Msg("breaker transition")
}

// Backoff is base doubled per attempt, capped at limit, with +/- jitter
// (a fraction, 0.2 is 20%).
func Backoff(base, limit time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = time.Second
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if limit > 0 && d >= limit {
			d = limit
			break
		}
	}
	if jitter > 0 {
		d += time.Duration((rand.Float64()*2 - 1) * jitter * float64(d))
	}
	if limit > 0 && d > limit {
		d = limit
	}
	return d
}
