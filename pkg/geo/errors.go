package geo

import "errors"

var (
	// ErrLookupFailed indicates an IP lookup returned no usable record
	ErrLookupFailed = errors.New("geo.lookup_failed")

	// ErrInvalidIP indicates the address could not be parsed as an IP
	ErrInvalidIP = errors.New("geo.invalid_ip")

	// ErrResolveTimeout indicates a resolver attempt exceeded its bounded wait
	ErrResolveTimeout = errors.New("geo.resolve_timeout")

	// ErrResolverPanic indicates a resolver implementation panicked and was recovered
	ErrResolverPanic = errors.New("geo.resolver_panic")
)
