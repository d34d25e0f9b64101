package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/auditkit/pkg/event"
)

// Result describes one delivery attempt to one sink.
type Result struct {
	Target     string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Hook observes delivery attempts, typically for metrics or logging.
type Hook func(Result)

// Engine fans one event out to a primary sink and an optional secondary
// sink. Failures are isolated per sink and funneled to the error sink; the
// caller is never delayed or aborted by delivery.
type Engine struct {
	primary   Sink
	secondary Sink
	onError   func(error)
	hook      Hook
	breakers  map[string]*Breaker

	breakerThreshold int
	breakerCooldown  time.Duration

	wg sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithSecondary adds an independent secondary sink (the "client database").
func WithSecondary(sink Sink) Option {
	return func(e *Engine) { e.secondary = sink }
}

// WithErrorSink routes delivery failures to the given callback.
// The default logs through slog.
func WithErrorSink(sink func(error)) Option {
	return func(e *Engine) {
		if sink != nil {
			e.onError = sink
		}
	}
}

// WithHook observes every delivery attempt.
func WithHook(hook Hook) Option {
	return func(e *Engine) { e.hook = hook }
}

// WithBreaker guards each sink with its own circuit breaker built from the
// given parameters. See NewBreaker for defaults.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(e *Engine) {
		e.breakerThreshold = threshold
		e.breakerCooldown = cooldown
	}
}

// NewEngine creates an engine around the primary sink. The primary must not
// be nil; that is a programming error, not a runtime condition.
func NewEngine(primary Sink, opts ...Option) *Engine {
	if primary == nil {
		panic("delivery: primary sink cannot be nil")
	}
	e := &Engine{
		primary: primary,
		onError: func(err error) {
			slog.Warn("audit delivery failed", "error", err)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.breakerThreshold > 0 {
		e.breakers = map[string]*Breaker{}
		for _, s := range []Sink{e.primary, e.secondary} {
			if s != nil {
				e.breakers[s.Target()] = NewBreaker(e.breakerThreshold, e.breakerCooldown)
			}
		}
	}
	return e
}

// Dispatch delivers the event in the background and returns immediately.
// The attempt is bounded by the per-sink timeouts; its outcome is reported
// through the error sink and the hook, never to the caller.
func (e *Engine) Dispatch(ev event.Event) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Send(context.Background(), ev)
	}()
}

// Send delivers synchronously to both sinks. Sinks run concurrently and
// independently: one sink failing or stalling does not affect the other.
// Useful in tests and graceful-shutdown paths; normal operation uses Dispatch.
func (e *Engine) Send(ctx context.Context, ev event.Event) {
	var wg sync.WaitGroup
	for _, sink := range []Sink{e.primary, e.secondary} {
		if sink == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.sendTo(ctx, sink, ev)
		}()
	}
	wg.Wait()
}

// Close waits for all in-flight dispatches to finish.
func (e *Engine) Close() {
	e.wg.Wait()
}

func (e *Engine) sendTo(ctx context.Context, sink Sink, ev event.Event) {
	breaker := e.breakers[sink.Target()]
	if breaker != nil && !breaker.Allow() {
		e.report(Result{Target: sink.Target(), Err: ErrCircuitOpen})
		return
	}

	start := time.Now()
	err := e.deliverSafely(ctx, sink, ev)
	result := Result{
		Target:   sink.Target(),
		Duration: time.Since(start),
		Err:      err,
	}

	if breaker != nil {
		if err == nil {
			breaker.RecordSuccess()
		} else {
			breaker.RecordFailure()
		}
	}

	e.report(result)
}

// deliverSafely guarantees a sink implementation cannot panic into the host.
func (e *Engine) deliverSafely(ctx context.Context, sink Sink, ev event.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: sink panic: %v", ErrDeliveryFailed, p)
		}
	}()
	return sink.Deliver(ctx, ev)
}

func (e *Engine) report(result Result) {
	if e.hook != nil {
		e.hook(result)
	}
	if result.Err != nil {
		e.onError(fmt.Errorf("sink %s: %w", result.Target, result.Err))
	}
}
