// Package session provides the session identity and timing primitives used
// by audit trackers and server engines.
//
// NewID generates the opaque session identifier that correlates every event
// emitted by one tracker or engine instance for its lifetime. Clock measures
// the whole seconds spent between tracked transitions; elapsed time is
// monotonic and clamped so a duration below zero can never be emitted.
//
// # Usage
//
//	id := session.NewID()
//	clock := session.NewClock()
//	// ... navigation happens ...
//	seconds := clock.Elapsed()
//	clock.Restart()
package session
