package requestaudit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/auditkit/pkg/delivery"
	"github.com/dmitrymomot/auditkit/pkg/event"
	"github.com/dmitrymomot/auditkit/pkg/geo"
	"github.com/dmitrymomot/auditkit/pkg/requestaudit"
)

// captureSink records delivered events.
type captureSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *captureSink) Target() string { return "capture" }

func (c *captureSink) Deliver(_ context.Context, ev event.Event) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) snapshot() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Event, len(c.events))
	copy(out, c.events)
	return out
}

func newTestEngine(t *testing.T, extra ...requestaudit.Option) (*requestaudit.Engine, *captureSink) {
	t.Helper()

	sink := &captureSink{}
	opts := append([]requestaudit.Option{requestaudit.WithSink(sink)}, extra...)
	engine, err := requestaudit.New(requestaudit.NewConfig("http://collector.test/ingest"), opts...)
	require.NoError(t, err)
	return engine, sink
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("missing db url is the only construction error", func(t *testing.T) {
		t.Parallel()

		_, err := requestaudit.New(requestaudit.Config{})
		assert.ErrorIs(t, err, requestaudit.ErrMissingDBURL)
	})

	t.Run("session id is stable for the instance", func(t *testing.T) {
		t.Parallel()

		engine, _ := newTestEngine(t)
		assert.NotEmpty(t, engine.SessionID())
		assert.Equal(t, engine.SessionID(), engine.SessionID())
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("captures request and response metadata", func(t *testing.T) {
		t.Parallel()

		engine, sink := newTestEngine(t)

		handler := engine.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("created!"))
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/items", nil)
		req.Header.Set("x-user-id", "user-42")
		req.Header.Set("User-Agent", "test-agent/1.0")
		req.RemoteAddr = "203.0.113.7:4711"

		handler.ServeHTTP(httptest.NewRecorder(), req)
		engine.Close()

		events := sink.snapshot()
		require.Len(t, events, 1)
		ev := events[0]
		assert.Equal(t, http.MethodPost, ev.Method)
		assert.Equal(t, "/api/items", ev.Route)
		assert.Equal(t, http.StatusCreated, ev.StatusCode)
		assert.Equal(t, len("created!"), ev.ResponseSize)
		assert.Equal(t, "user-42", ev.UserID)
		assert.Equal(t, "test-agent/1.0", ev.UserAgent)
		assert.Equal(t, "203.0.113.7", ev.IP)
		assert.Equal(t, engine.SessionID(), ev.SessionID)
		assert.GreaterOrEqual(t, ev.Duration, 0)
	})

	t.Run("defaults to anonymous without the identity header", func(t *testing.T) {
		t.Parallel()

		engine, sink := newTestEngine(t)
		handler := engine.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		engine.Close()

		events := sink.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, event.AnonymousUser, events[0].UserID)
	})

	t.Run("implicit 200 when the handler never writes a header", func(t *testing.T) {
		t.Parallel()

		engine, sink := newTestEngine(t)
		handler := engine.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		engine.Close()

		events := sink.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, http.StatusOK, events[0].StatusCode)
	})

	t.Run("panicking handler still emits exactly one event with 500", func(t *testing.T) {
		t.Parallel()

		engine, sink := newTestEngine(t)
		handler := engine.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("handler exploded")
		}))

		assert.Panics(t, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
		}, "the panic is re-raised to the host's recoverer")
		engine.Close()

		events := sink.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, http.StatusInternalServerError, events[0].StatusCode)
		assert.Equal(t, "/boom", events[0].Route)
	})
}

func TestHooks(t *testing.T) {
	t.Parallel()

	engine, sink := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/hooked", nil)
	req.Header.Set("x-user-id", "user-7")

	st := engine.OnRequest(req)
	engine.OnResponse(st, http.StatusTeapot, 42)
	engine.OnResponse(nil, http.StatusOK, 0) // nil state is ignored
	engine.Close()

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, http.StatusTeapot, events[0].StatusCode)
	assert.Equal(t, 42, events[0].ResponseSize)
	assert.Equal(t, "user-7", events[0].UserID)
}

func TestEchoMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("captures the downstream outcome", func(t *testing.T) {
		t.Parallel()

		engine, sink := newTestEngine(t)

		e := echo.New()
		e.Use(engine.EchoMiddleware())
		e.GET("/ok", func(c echo.Context) error {
			return c.String(http.StatusOK, "hello")
		})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
		engine.Close()

		events := sink.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, http.StatusOK, events[0].StatusCode)
		assert.Equal(t, "/ok", events[0].Route)
	})

	t.Run("handler error maps to its terminal status", func(t *testing.T) {
		t.Parallel()

		engine, sink := newTestEngine(t)

		e := echo.New()
		e.Use(engine.EchoMiddleware())
		e.GET("/missing", func(echo.Context) error {
			return echo.NewHTTPError(http.StatusNotFound, "nothing here")
		})
		e.GET("/broken", func(echo.Context) error {
			return errors.New("unexpected failure")
		})

		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))
		engine.Close()

		events := sink.snapshot()
		require.Len(t, events, 2)

		statuses := map[string]int{}
		for _, ev := range events {
			statuses[ev.Route] = ev.StatusCode
		}
		assert.Equal(t, http.StatusNotFound, statuses["/missing"])
		assert.Equal(t, http.StatusInternalServerError, statuses["/broken"])
	})
}

func TestAdapterEquivalence(t *testing.T) {
	t.Parallel()

	// The same request must produce functionally identical events through
	// the wrapper, the hook pair, and the downstream-await adapter.
	collect := func(run func(engine *requestaudit.Engine)) event.Event {
		engine, sink := newTestEngine(t)
		run(engine)
		engine.Close()
		events := sink.snapshot()
		require.Len(t, events, 1)
		return events[0]
	}

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/same", nil)
		req.Header.Set("x-user-id", "user-9")
		req.Header.Set("User-Agent", "same-agent/2.0")
		req.RemoteAddr = "198.51.100.7:999"
		return req
	}

	fromMiddleware := collect(func(engine *requestaudit.Engine) {
		h := engine.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		h.ServeHTTP(httptest.NewRecorder(), newReq())
	})

	fromHooks := collect(func(engine *requestaudit.Engine) {
		st := engine.OnRequest(newReq())
		engine.OnResponse(st, http.StatusOK, 0)
	})

	fromEcho := collect(func(engine *requestaudit.Engine) {
		e := echo.New()
		e.Use(engine.EchoMiddleware())
		e.GET("/same", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		e.ServeHTTP(httptest.NewRecorder(), newReq())
	})

	for _, ev := range []event.Event{fromHooks, fromEcho} {
		assert.Equal(t, fromMiddleware.Method, ev.Method)
		assert.Equal(t, fromMiddleware.Route, ev.Route)
		assert.Equal(t, fromMiddleware.StatusCode, ev.StatusCode)
		assert.Equal(t, fromMiddleware.UserID, ev.UserID)
		assert.Equal(t, fromMiddleware.UserAgent, ev.UserAgent)
		assert.Equal(t, fromMiddleware.IP, ev.IP)
	}
}

func TestGeoEnrichment(t *testing.T) {
	t.Parallel()

	t.Run("resolver output lands on the event", func(t *testing.T) {
		t.Parallel()

		resolver := geo.ResolverFunc(func(_ context.Context, ip string) geo.Info {
			info := geo.UnknownInfo().WithIP(ip)
			info.City = "Berlin"
			info.Country = "Germany"
			return info
		})

		engine, sink := newTestEngine(t, requestaudit.WithResolver(resolver))
		st := engine.OnRequest(httptest.NewRequest(http.MethodGet, "/", nil))
		engine.OnResponse(st, http.StatusOK, 0)
		engine.Close()

		events := sink.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, "Berlin", events[0].City)
		assert.Equal(t, "Germany", events[0].Country)
	})

	t.Run("enableGeo false yields sentinel with zero resolver calls", func(t *testing.T) {
		t.Parallel()

		var calls int
		counting := geo.ResolverFunc(func(_ context.Context, ip string) geo.Info {
			calls++
			return geo.UnknownInfo().WithIP(ip)
		})

		cfg := requestaudit.NewConfig("http://collector.test/ingest")
		cfg.EnableGeo = false

		sink := &captureSink{}
		engine, err := requestaudit.New(cfg,
			requestaudit.WithSink(sink),
			requestaudit.WithResolver(counting))
		require.NoError(t, err)

		st := engine.OnRequest(httptest.NewRequest(http.MethodGet, "/", nil))
		engine.OnResponse(st, http.StatusOK, 0)
		engine.Close()

		events := sink.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, geo.Unknown, events[0].City)
		assert.Zero(t, calls)
	})
}

func TestUserAgentDetails(t *testing.T) {
	t.Parallel()

	engine, sink := newTestEngine(t, requestaudit.WithUserAgentDetails())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	st := engine.OnRequest(req)
	engine.OnResponse(st, http.StatusOK, 0)
	engine.Close()

	events := sink.snapshot()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Metadata)
	assert.Equal(t, "Chrome", events[0].Metadata["browser"])
	assert.Equal(t, false, events[0].Metadata["mobile"])
}

func TestDeliveryFailureIsolation(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var reported []error

	failing := delivery.SinkFunc{
		Name: "dead",
		Fn: func(context.Context, event.Event) error {
			return errors.New("connection refused")
		},
	}

	engine, err := requestaudit.New(requestaudit.NewConfig("http://collector.test/ingest"),
		requestaudit.WithSink(failing),
		requestaudit.WithErrorSink(func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		}))
	require.NoError(t, err)

	handler := engine.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusOK, rec.Code, "request handling is never altered by audit failure")

	engine.Close()
	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, reported)
}
