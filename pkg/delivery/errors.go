package delivery

import "errors"

// Domain errors for delivery outcomes, designed for wrapping and
// classification with errors.Is. Only ErrInvalidSinkURL is ever returned to
// the caller directly; everything else flows through the error sink.
var (
	// ErrInvalidSinkURL indicates a missing or malformed destination URL (configuration error)
	ErrInvalidSinkURL = errors.New("delivery.invalid_sink_url")

	// ErrMarshalFailed indicates the event could not be encoded as JSON
	ErrMarshalFailed = errors.New("delivery.marshal_failed")

	// ErrDeliveryFailed indicates a transport error or non-2xx sink response
	ErrDeliveryFailed = errors.New("delivery.failed")

	// ErrDeliveryTimeout indicates the bounded delivery window expired
	ErrDeliveryTimeout = errors.New("delivery.timeout")

	// ErrCircuitOpen indicates the sink was skipped because its circuit breaker is open
	ErrCircuitOpen = errors.New("delivery.circuit_open")
)
