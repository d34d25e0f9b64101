package event

import "errors"

var (
	// ErrMissingSessionID indicates the event has no session correlation identifier
	ErrMissingSessionID = errors.New("event.missing_session_id")

	// ErrMissingRoute indicates the event has no route or request path
	ErrMissingRoute = errors.New("event.missing_route")

	// ErrNegativeDuration indicates a duration below zero, which the clock should have clamped
	ErrNegativeDuration = errors.New("event.negative_duration")
)
