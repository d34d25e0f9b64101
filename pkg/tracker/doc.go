// Package tracker captures single-page-application navigation as audit
// events: time spent on the route being left, enriched with session,
// identity, client hints, and location metadata, delivered fire-and-forget.
//
// The tracker does not touch global state. Navigation interception is a
// capability of the host Environment binding: the embedding exposes its
// native back/forward signal through BindPopState and lets the tracker wrap
// the two programmatic navigation primitives through WrapNavigation, which
// returns an idempotent restore. Both native and programmatic transitions
// collapse into one unified change signal.
//
// At most one tracker is active per Registry. A second New call against an
// occupied registry returns the already-active instance and a warning
// through the error sink instead of double-patching the environment.
// Close tears down listeners, restores the navigation primitives, and
// releases the registry slot; it is idempotent and safe before any
// navigation occurred.
//
// # Usage
//
//	registry := tracker.NewRegistry()
//	env := tracker.NewSimEnvironment("/")
//	t, err := tracker.New(registry, env, tracker.NewConfig("https://collector.example.com"))
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//
//	env.Push("/dashboard") // emits the event for the route being left
package tracker
