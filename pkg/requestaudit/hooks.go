package requestaudit

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/auditkit/pkg/event"
	"github.com/dmitrymomot/auditkit/pkg/geo"
	"github.com/dmitrymomot/auditkit/pkg/session"
	"github.com/mssola/useragent"
)

// RequestState is the request-scoped attachment recorded at request entry.
// It is owned by a single request and needs no synchronization.
type RequestState struct {
	clock       *session.Clock
	method      string
	route       string
	userID      string
	ip          string
	userAgent   string
	requestSize int
	metadata    map[string]any
}

// OnRequest records the start instant and captures request metadata. It is
// the entry half of the lifecycle hook pair and is safe to call for every
// request indiscriminately.
func (e *Engine) OnRequest(r *http.Request) *RequestState {
	userID := r.Header.Get(e.cfg.UserIDHeader)
	if userID == "" {
		userID = event.AnonymousUser
	}

	requestSize := int(r.ContentLength)
	if requestSize < 0 {
		requestSize = 0
	}

	st := &RequestState{
		clock:       session.NewClock(session.WithNow(e.now)),
		method:      r.Method,
		route:       r.URL.Path,
		userID:      userID,
		ip:          geo.ClientIP(r),
		userAgent:   r.UserAgent(),
		requestSize: requestSize,
	}

	if e.uaDetails && st.userAgent != "" {
		st.metadata = userAgentDetails(st.userAgent)
	}

	return st
}

// OnResponse is the completion half of the lifecycle hook pair. It computes
// the request duration, assembles the event with the actual terminal status
// code, and dispatches it fire-and-forget. A nil state is ignored.
func (e *Engine) OnResponse(st *RequestState, statusCode, responseSize int) {
	if st == nil {
		return
	}

	ev := event.New(e.sessionID, st.userID, st.route, st.clock.Elapsed())
	ev.Method = st.method
	ev.StatusCode = statusCode
	ev.RequestSize = st.requestSize
	ev.ResponseSize = responseSize
	ev.UserAgent = st.userAgent
	ev.Metadata = st.metadata
	ev.SetGeo(e.resolver.Resolve(context.Background(), st.ip))

	e.dispatch(ev)
}

// userAgentDetails classifies the raw User-Agent string for event metadata.
func userAgentDetails(raw string) map[string]any {
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return map[string]any{
		"browser":        name,
		"browserVersion": version,
		"os":             ua.OS(),
		"mobile":         ua.Mobile(),
		"bot":            ua.Bot(),
	}
}
