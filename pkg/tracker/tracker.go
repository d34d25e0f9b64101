package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/auditkit/pkg/delivery"
	"github.com/dmitrymomot/auditkit/pkg/event"
	"github.com/dmitrymomot/auditkit/pkg/geo"
	"github.com/dmitrymomot/auditkit/pkg/session"
)

// Config is the client tracker configuration surface.
type Config struct {
	// BaseURL is the collector base; events go to {BaseURL}/audit-log. Required.
	BaseURL string `env:"AUDIT_BASE_URL"`

	// ClientDBURL is an optional secondary sink, delivered to independently.
	ClientDBURL string `env:"AUDIT_CLIENT_DB_URL"`

	// IncludeGeo enables client-side location resolution.
	IncludeGeo bool `env:"AUDIT_INCLUDE_GEO" envDefault:"true"`

	// UserID is the caller-supplied identity, "anonymous" when empty.
	UserID string `env:"AUDIT_USER_ID" envDefault:"anonymous"`
}

// NewConfig returns a Config with defaults applied: geo enabled, anonymous user.
func NewConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		IncludeGeo: true,
		UserID:     event.AnonymousUser,
	}
}

type trackerState int

const (
	stateUninitialized trackerState = iota
	stateActive
	stateTornDown
)

type options struct {
	onError   func(error)
	resolver  geo.Resolver
	primary   delivery.Sink
	secondary delivery.Sink
	hook      delivery.Hook
	now       func() time.Time
}

// Option configures a Tracker beyond its Config.
type Option func(*options)

// WithErrorSink routes tracker warnings and enrichment/delivery failures to
// the given callback. The default logs through slog.
func WithErrorSink(sink func(error)) Option {
	return func(o *options) {
		if sink != nil {
			o.onError = sink
		}
	}
}

// WithResolver overrides the location resolver. Ignored when IncludeGeo is
// false, which always yields the sentinel with zero resolver calls.
func WithResolver(r geo.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithPrimarySink overrides the HTTP sink derived from BaseURL.
func WithPrimarySink(s delivery.Sink) Option {
	return func(o *options) { o.primary = s }
}

// WithSecondarySink overrides the sink derived from ClientDBURL.
func WithSecondarySink(s delivery.Sink) Option {
	return func(o *options) { o.secondary = s }
}

// WithDeliveryHook observes every delivery attempt.
func WithDeliveryHook(h delivery.Hook) Option {
	return func(o *options) { o.hook = h }
}

// WithNowFunc overrides the tracker's time source, used by tests to
// simulate time spent between transitions.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Tracker is one client-side audit instance. It owns exactly one session
// identifier for its lifetime and is torn down by Close.
type Tracker struct {
	cfg      Config
	env      Environment
	registry *Registry
	engine   *delivery.Engine
	resolver geo.Resolver
	onError  func(error)
	now      func() time.Time

	sessionID string

	mu           sync.Mutex
	state        trackerState
	currentRoute string
	clock        *session.Clock
	unbindPop    func()
	restoreNav   func()

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates and activates a tracker. A missing BaseURL is the only error;
// a nil environment degrades to a no-op tracker with a warning, and an
// occupied registry returns the already-active instance with a warning.
func New(registry *Registry, env Environment, cfg Config, opts ...Option) (*Tracker, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	o := &options{
		onError: func(err error) {
			slog.Warn("auditkit tracker", "error", err)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.UserID == "" {
		cfg.UserID = event.AnonymousUser
	}

	if env == nil {
		o.onError(ErrNoEnvironment)
		return &Tracker{cfg: cfg, onError: o.onError, state: stateTornDown}, nil
	}

	if registry == nil {
		registry = NewRegistry()
	}

	t := &Tracker{
		cfg:      cfg,
		env:      env,
		registry: registry,
		onError:  o.onError,
		now:      o.now,
	}

	if existing, ok := registry.acquire(t); !ok {
		o.onError(ErrAlreadyActive)
		return existing, nil
	}

	primary := o.primary
	if primary == nil {
		sink, err := delivery.NewHTTPSink(strings.TrimRight(cfg.BaseURL, "/") + "/audit-log")
		if err != nil {
			registry.release(t)
			return nil, err
		}
		primary = sink
	}

	secondary := o.secondary
	if secondary == nil && cfg.ClientDBURL != "" {
		sink, err := delivery.NewHTTPSink(cfg.ClientDBURL)
		if err != nil {
			registry.release(t)
			return nil, err
		}
		secondary = sink
	}

	engineOpts := []delivery.Option{delivery.WithErrorSink(o.onError)}
	if secondary != nil {
		engineOpts = append(engineOpts, delivery.WithSecondary(secondary))
	}
	if o.hook != nil {
		engineOpts = append(engineOpts, delivery.WithHook(o.hook))
	}
	t.engine = delivery.NewEngine(primary, engineOpts...)

	switch {
	case !cfg.IncludeGeo:
		t.resolver = geo.NoopResolver{}
	case o.resolver != nil:
		t.resolver = o.resolver
	default:
		t.resolver = geo.NewChain(
			[]geo.Resolver{geo.CoordinateResolver(env.Geolocate)},
			geo.WithChainErrorSink(o.onError),
		)
	}

	t.activate()
	return t, nil
}

// activate moves Uninitialized → Active: capture the initial route, start
// the clock, install the popstate listener and navigation wrap, and emit the
// initial landing event asynchronously so it is never silently dropped.
func (t *Tracker) activate() {
	t.sessionID = session.NewID()

	t.mu.Lock()
	t.state = stateActive
	t.currentRoute = t.env.Location()
	t.clock = session.NewClock(session.WithNow(t.now))
	initial := t.currentRoute
	t.mu.Unlock()

	t.unbindPop = t.env.BindPopState(t.onNavigate)
	restore, err := t.env.WrapNavigation(t.onNavigate)
	if err != nil {
		t.onError(err)
	} else {
		t.restoreNav = restore
	}

	t.wg.Add(1)
	go t.emit(initial, 0, "", nil)
}

// onNavigate is the unified change signal for native and programmatic
// transitions. It emits an event for the route being left, then rolls the
// current route and clock over to the new location. Enrichment and delivery
// for the previous route run in the background, so navigation handling never
// waits on them.
func (t *Tracker) onNavigate(path string) {
	t.mu.Lock()
	if t.state != stateActive {
		t.mu.Unlock()
		return
	}
	left := t.currentRoute
	duration := t.clock.Elapsed()
	t.currentRoute = path
	t.clock.Restart()
	t.mu.Unlock()

	t.wg.Add(1)
	go t.emit(left, duration, "", nil)
}

// Track emits a manually-triggered event for the current route, carrying the
// seconds spent on it so far. A no-op unless the tracker is active.
func (t *Tracker) Track(name string, metadata map[string]any) {
	t.mu.Lock()
	if t.state != stateActive {
		t.mu.Unlock()
		return
	}
	route := t.currentRoute
	duration := t.clock.Elapsed()
	t.mu.Unlock()

	t.wg.Add(1)
	go t.emit(route, duration, name, metadata)
}

// emit assembles the fully-enriched event and hands it to the delivery
// engine. Runs in its own goroutine; all failures funnel to the error sink.
func (t *Tracker) emit(route string, duration int, name string, metadata map[string]any) {
	defer t.wg.Done()

	ev := event.New(t.sessionID, t.cfg.UserID, route, duration)
	ev.UserAgent = t.env.UserAgent()
	ev.Language = t.env.Language()
	ev.Timezone = t.env.Timezone()
	ev.ScreenResolution = t.env.ScreenResolution()
	ev.Viewport = t.env.Viewport()
	ev.Name = name
	ev.Metadata = metadata

	ctx := context.Background()
	ev.SetGeo(t.resolver.Resolve(ctx, ""))
	ev.FillDefaults()

	if err := ev.Validate(); err != nil {
		// Either fully built or not emitted at all
		t.onError(err)
		return
	}

	t.engine.Send(ctx, ev)
}

// SessionID returns the identifier correlating all events from this instance.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Active reports whether the tracker is intercepting navigation.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateActive
}

// Close moves Active → TornDown exactly once: removes the popstate listener,
// restores the navigation primitives to their pre-patch implementations,
// releases the registry slot, and waits for in-flight emissions. Safe to call
// repeatedly and safe before any navigation occurred.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.state = stateTornDown
		unbind := t.unbindPop
		restore := t.restoreNav
		t.mu.Unlock()

		if unbind != nil {
			unbind()
		}
		if restore != nil {
			restore()
		}
		if t.registry != nil {
			t.registry.release(t)
		}

		t.wg.Wait()
		if t.engine != nil {
			t.engine.Close()
		}
	})
}
