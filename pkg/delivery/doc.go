// Package delivery ships audit events to one or two sinks without ever
// raising into, or delaying, the hosting application.
//
// A Sink is any destination that accepts an event: HTTPSink POSTs the JSON
// encoding to a sink URL with a bounded timeout, RedisSink appends it to a
// local Redis list for durable collection. The Engine wraps a primary sink
// and an optional secondary sink; Dispatch is fire-and-forget and the two
// sinks are attempted independently so one failing destination never
// suppresses the other.
//
// Delivery is strictly best-effort: one attempt per sink, no retry queue.
// A non-2xx status, a timeout, and a transport error all normalize into a
// single failure outcome routed to the configured error sink, after which
// the event is dropped.
//
// # Usage
//
//	primary, err := delivery.NewHTTPSink(baseURL + "/audit-log")
//	if err != nil {
//	    return err
//	}
//	engine := delivery.NewEngine(primary,
//	    delivery.WithErrorSink(func(err error) { slog.Warn("audit delivery", "error", err) }),
//	)
//	engine.Dispatch(ev) // returns immediately
//	defer engine.Close()
package delivery
