// Package geo resolves a client address into location metadata for audit
// event enrichment.
//
// The central contract is Resolver: Resolve never returns an error and never
// panics into the caller. The worst case result is the all-"unknown" sentinel
// returned by UnknownInfo. Lookup failures, timeouts, denied permissions, and
// resolver panics are all treated identically: degrade to the sentinel,
// report through the configured error sink, continue.
//
// Server-side, ClientIP extracts the source address from an HTTP request
// using a fixed header precedence and MaxMindResolver performs an offline
// IP-to-location lookup. Client-side, ChainResolver runs an ordered fallback
// chain where every attempt is bounded by its own timeout, so resolution can
// never depend on an unbounded sequence of external calls.
//
// # Usage
//
//	resolver, err := geo.NewMaxMindResolver("GeoLite2-City.mmdb")
//	if err != nil {
//	    resolver = nil // engine falls back to geo.NoopResolver{}
//	}
//	info := geo.FromRequest(r, resolver)
package geo
