// Package event defines the audit event record shared by the client-side
// tracker and the server-side request interceptor.
//
// An Event describes one navigation transition, one completed HTTP request,
// or one manually tracked action. The JSON encoding is the wire format posted
// to sink URLs, so field names are stable and camelCase.
//
// Every field has a deterministic default: enrichment may fail partially, but
// a delivered event is always fully populated. Use New to construct events
// with defaults applied and Validate before handing an event to a sink.
//
// # Usage
//
//	ev := event.New(sessionID, "user-42", "/dashboard", 12)
//	ev.SetGeo(info)
//	ev.UserAgent = r.UserAgent()
//	if err := ev.Validate(); err != nil {
//	    // event is malformed, do not deliver
//	}
package event
