package delivery_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/auditkit/pkg/delivery"
	"github.com/dmitrymomot/auditkit/pkg/event"
)

func testEvent() event.Event {
	return event.New("sess-1", "user-1", "/a", 1)
}

func TestNewHTTPSink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid http URL", url: "http://collector.example.com/audit-log"},
		{name: "valid https URL", url: "https://collector.example.com/audit-log"},
		{name: "empty URL", url: "", wantErr: true},
		{name: "unsupported scheme", url: "ftp://collector.example.com", wantErr: true},
		{name: "missing host", url: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sink, err := delivery.NewHTTPSink(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, delivery.ErrInvalidSinkURL)
				assert.Nil(t, sink)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.url, sink.Target())
			}
		})
	}
}

func TestHTTPSinkDeliver(t *testing.T) {
	t.Parallel()

	t.Run("posts wire-format JSON", func(t *testing.T) {
		t.Parallel()

		var received map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		sink, err := delivery.NewHTTPSink(srv.URL)
		require.NoError(t, err)

		require.NoError(t, sink.Deliver(context.Background(), testEvent()))
		assert.Equal(t, "sess-1", received["sessionId"])
		assert.Equal(t, "/a", received["route"])
	})

	t.Run("non-2xx status normalizes to delivery failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer srv.Close()

		sink, err := delivery.NewHTTPSink(srv.URL)
		require.NoError(t, err)

		err = sink.Deliver(context.Background(), testEvent())
		assert.ErrorIs(t, err, delivery.ErrDeliveryFailed)
	})

	t.Run("unreachable sink fails without hanging", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
		url := srv.URL
		srv.Close()

		sink, err := delivery.NewHTTPSink(url)
		require.NoError(t, err)

		start := time.Now()
		err = sink.Deliver(context.Background(), testEvent())
		assert.ErrorIs(t, err, delivery.ErrDeliveryFailed)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("slow sink hits the bounded timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		sink, err := delivery.NewHTTPSink(srv.URL, delivery.WithTimeout(50*time.Millisecond))
		require.NoError(t, err)

		start := time.Now()
		err = sink.Deliver(context.Background(), testEvent())
		assert.ErrorIs(t, err, delivery.ErrDeliveryTimeout)
		assert.Less(t, time.Since(start), 2*time.Second, "timeout plus epsilon, never unbounded")
	})

	t.Run("exactly one attempt per delivery", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts.Add(1)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		sink, err := delivery.NewHTTPSink(srv.URL)
		require.NoError(t, err)

		_ = sink.Deliver(context.Background(), testEvent())
		assert.Equal(t, int32(1), attempts.Load(), "failed deliveries are dropped, never retried")
	})
}
