// Package requestaudit intercepts HTTP request/response lifecycles and emits
// enriched audit events: per-request timing, identity from a configurable
// header, client IP and location, user agent, and the actual terminal status
// code, including for requests that error or panic mid-handler.
//
// The engine exposes three functionally equivalent adapters over the same
// lifecycle pair:
//
//   - Middleware: a net/http func(http.Handler) http.Handler wrapper, also
//     usable with chi and any stdlib-compatible router.
//   - Hooks: the raw OnRequest/OnResponse pair for frameworks exposing
//     explicit lifecycle hooks.
//   - EchoMiddleware: an echo.MiddlewareFunc awaiting the downstream handler.
//
// All three produce identical events for the same request. Delivery is
// fire-and-forget through pkg/delivery: the request/response cycle is never
// delayed or aborted by an audit failure.
//
// # Usage
//
//	engine, err := requestaudit.New(requestaudit.NewConfig("https://collector.example.com/ingest"))
//	if err != nil {
//	    return err // missing DB URL is the only construction error
//	}
//	defer engine.Close()
//
//	mux := chi.NewRouter()
//	mux.Use(engine.Middleware())
package requestaudit
