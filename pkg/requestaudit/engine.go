package requestaudit

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/auditkit/pkg/delivery"
	"github.com/dmitrymomot/auditkit/pkg/event"
	"github.com/dmitrymomot/auditkit/pkg/geo"
	"github.com/dmitrymomot/auditkit/pkg/session"
)

// DefaultUserIDHeader carries the caller-supplied identity.
const DefaultUserIDHeader = "x-user-id"

// Config is the server engine configuration surface.
type Config struct {
	// DBURL is the fully-specified sink URL events are POSTed to. Required.
	DBURL string `env:"AUDIT_DB_URL"`

	// UserIDHeader names the request header carrying the user identity.
	UserIDHeader string `env:"AUDIT_USER_ID_HEADER" envDefault:"x-user-id"`

	// EnableGeo enables IP-to-location enrichment via the configured resolver.
	EnableGeo bool `env:"AUDIT_ENABLE_GEO" envDefault:"true"`
}

// NewConfig returns a Config with defaults applied: geo enabled, x-user-id header.
func NewConfig(dbURL string) Config {
	return Config{
		DBURL:        dbURL,
		UserIDHeader: DefaultUserIDHeader,
		EnableGeo:    true,
	}
}

type options struct {
	onError   func(error)
	resolver  geo.Resolver
	sink      delivery.Sink
	hook      delivery.Hook
	now       func() time.Time
	uaDetails bool
}

// Option configures an Engine beyond its Config.
type Option func(*options)

// WithErrorSink routes enrichment and delivery failures to the given
// callback. The default logs through slog.
func WithErrorSink(sink func(error)) Option {
	return func(o *options) {
		if sink != nil {
			o.onError = sink
		}
	}
}

// WithResolver plugs an offline IP lookup, typically geo.MaxMindResolver.
// Ignored when EnableGeo is false.
func WithResolver(r geo.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithSink overrides the HTTP sink derived from DBURL.
func WithSink(s delivery.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithDeliveryHook observes every delivery attempt.
func WithDeliveryHook(h delivery.Hook) Option {
	return func(o *options) { o.hook = h }
}

// WithNowFunc overrides the engine's time source for request clocks.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithUserAgentDetails parses the User-Agent header and attaches browser,
// OS, and mobile classification to the event metadata.
func WithUserAgentDetails() Option {
	return func(o *options) { o.uaDetails = true }
}

// Engine is one server-side audit instance. It owns exactly one session
// identifier for its lifetime; all events it emits correlate to it.
type Engine struct {
	cfg       Config
	engine    *delivery.Engine
	resolver  geo.Resolver
	onError   func(error)
	now       func() time.Time
	uaDetails bool
	sessionID string
}

// New creates the engine. A missing DBURL is the only construction error.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.DBURL == "" {
		return nil, ErrMissingDBURL
	}
	if cfg.UserIDHeader == "" {
		cfg.UserIDHeader = DefaultUserIDHeader
	}

	o := &options{
		onError: func(err error) {
			slog.Warn("auditkit request audit", "error", err)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	sink := o.sink
	if sink == nil {
		s, err := delivery.NewHTTPSink(cfg.DBURL)
		if err != nil {
			return nil, err
		}
		sink = s
	}

	engineOpts := []delivery.Option{delivery.WithErrorSink(o.onError)}
	if o.hook != nil {
		engineOpts = append(engineOpts, delivery.WithHook(o.hook))
	}

	e := &Engine{
		cfg:       cfg,
		engine:    delivery.NewEngine(sink, engineOpts...),
		onError:   o.onError,
		now:       o.now,
		uaDetails: o.uaDetails,
		sessionID: session.NewID(),
	}

	switch {
	case !cfg.EnableGeo:
		e.resolver = geo.NoopResolver{}
	case o.resolver != nil:
		e.resolver = o.resolver
	default:
		// No lookup database configured: deterministic sentinel fallback
		e.resolver = geo.NoopResolver{}
	}

	return e, nil
}

// SessionID returns the identifier correlating all events from this instance.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Close waits for in-flight deliveries to finish.
func (e *Engine) Close() {
	e.engine.Close()
}

// dispatch finalizes and ships one event; never raises into request handling.
func (e *Engine) dispatch(ev event.Event) {
	ev.FillDefaults()
	if err := ev.Validate(); err != nil {
		e.onError(err)
		return
	}
	e.engine.Dispatch(ev)
}
