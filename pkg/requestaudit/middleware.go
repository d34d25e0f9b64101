package requestaudit

import (
	"net/http"
)

// Middleware wraps a stdlib handler chain. Exactly one event is emitted per
// request, carrying the actual terminal status: a panicking handler is
// audited as 500 before the panic is re-raised to the host's recoverer.
func (e *Engine) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := e.OnRequest(r)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					e.OnResponse(st, http.StatusInternalServerError, rec.bytes)
					panic(p)
				}
				e.OnResponse(st, rec.status, rec.bytes)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// statusRecorder captures the terminal status code and response size without
// altering the response.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}
