package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/auditkit/pkg/event"
)

// DefaultTimeout bounds a single HTTP delivery attempt.
const DefaultTimeout = 10 * time.Second

// Sink is a delivery destination for audit events.
type Sink interface {
	// Deliver ships one event. A returned error is the normalized failure
	// outcome; the event is dropped afterwards, never retried.
	Deliver(ctx context.Context, ev event.Event) error

	// Target identifies the destination for reporting.
	Target() string
}

// HTTPSink POSTs JSON-encoded events to a sink URL. The zero value is not
// usable; use NewHTTPSink.
type HTTPSink struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// HTTPSinkOption configures an HTTPSink.
type HTTPSinkOption func(*HTTPSink)

// WithTimeout overrides the per-delivery timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) HTTPSinkOption {
	return func(s *HTTPSink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client, useful for proxies or testing.
func WithHTTPClient(client *http.Client) HTTPSinkOption {
	return func(s *HTTPSink) {
		if client != nil {
			s.client = client
		}
	}
}

// NewHTTPSink validates the destination URL and builds a sink with a pooled
// HTTP client. URL validation failure is the only construction error.
func NewHTTPSink(sinkURL string, opts ...HTTPSinkOption) (*HTTPSink, error) {
	if sinkURL == "" {
		return nil, fmt.Errorf("%w: URL is required", ErrInvalidSinkURL)
	}
	u, err := url.Parse(sinkURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidSinkURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidSinkURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidSinkURL)
	}

	s := &HTTPSink{
		url:     sinkURL,
		timeout: DefaultTimeout,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *HTTPSink) Target() string {
	return s.url
}

// Deliver performs a single POST attempt bounded by the sink timeout.
func (s *HTTPSink) Deliver(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Join(ErrMarshalFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "auditkit/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Join(ErrDeliveryTimeout, err)
		}
		return errors.Join(ErrDeliveryFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded slice of the body for error context
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := fmt.Sprintf("sink returned status %d", resp.StatusCode)
		if len(body) > 0 {
			bodyStr := strings.ReplaceAll(string(body), "\n", " ")
			if len(bodyStr) > 200 {
				bodyStr = bodyStr[:200] + "..."
			}
			msg += ": " + bodyStr
		}
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, msg)
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SinkFunc adapts a function to the Sink interface, used in tests and for
// custom destinations.
type SinkFunc struct {
	Name string
	Fn   func(ctx context.Context, ev event.Event) error
}

func (s SinkFunc) Target() string { return s.Name }

func (s SinkFunc) Deliver(ctx context.Context, ev event.Event) error {
	return s.Fn(ctx, ev)
}
