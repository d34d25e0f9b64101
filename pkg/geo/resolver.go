package geo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultAttemptTimeout bounds a single resolver attempt in a chain.
const DefaultAttemptTimeout = 3 * time.Second

// Resolver turns a raw address into location metadata. Implementations must
// never return an error: failure of any kind degrades to UnknownInfo.
type Resolver interface {
	Resolve(ctx context.Context, ip string) Info
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ip string) Info

func (f ResolverFunc) Resolve(ctx context.Context, ip string) Info {
	return f(ctx, ip)
}

// NoopResolver performs no lookup at all. Used when geo enrichment is
// disabled; guarantees zero network calls.
type NoopResolver struct{}

func (NoopResolver) Resolve(_ context.Context, ip string) Info {
	return UnknownInfo().WithIP(ip)
}

// CoordinateSource is a host-environment binding that yields coordinates,
// typically the browser geolocation permission API surfaced by an embedding.
type CoordinateSource func(ctx context.Context) (lat, long float64, err error)

// CoordinateResolver adapts a CoordinateSource into a Resolver. A denied
// permission or any other error degrades to the sentinel.
func CoordinateResolver(source CoordinateSource) Resolver {
	return ResolverFunc(func(ctx context.Context, ip string) Info {
		if source == nil {
			return UnknownInfo().WithIP(ip)
		}
		lat, long, err := source(ctx)
		if err != nil {
			return UnknownInfo().WithIP(ip)
		}
		info := UnknownInfo().WithIP(ip)
		info.Latitude = &lat
		info.Longitude = &long
		return info
	})
}

// ChainResolver runs an ordered fallback chain. Each attempt is raced against
// its own timeout, so a hanging resolver cannot stall the chain; the first
// resolved answer wins and the deterministic fallback is the sentinel.
type ChainResolver struct {
	resolvers      []Resolver
	attemptTimeout time.Duration
	onError        func(error)
}

// ChainOption configures a ChainResolver.
type ChainOption func(*ChainResolver)

// WithAttemptTimeout overrides the per-attempt bound. Non-positive values are ignored.
func WithAttemptTimeout(d time.Duration) ChainOption {
	return func(c *ChainResolver) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithChainErrorSink routes attempt failures to the given sink.
func WithChainErrorSink(sink func(error)) ChainOption {
	return func(c *ChainResolver) {
		if sink != nil {
			c.onError = sink
		}
	}
}

// NewChain builds a fallback chain over the given resolvers in order.
func NewChain(resolvers []Resolver, opts ...ChainOption) *ChainResolver {
	c := &ChainResolver{
		resolvers:      resolvers,
		attemptTimeout: DefaultAttemptTimeout,
		onError:        func(error) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ChainResolver) Resolve(ctx context.Context, ip string) Info {
	for _, r := range c.resolvers {
		if r == nil {
			continue
		}
		info, err := c.attempt(ctx, r, ip)
		if err != nil {
			c.onError(err)
			continue
		}
		if info.Resolved() {
			return info.normalize()
		}
	}
	return UnknownInfo().WithIP(ip)
}

// attempt runs one resolver in its own goroutine so that even an
// implementation that ignores context cancellation stays bounded.
func (c *ChainResolver) attempt(ctx context.Context, r Resolver, ip string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	done := make(chan Info, 1)
	fail := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				fail <- fmt.Errorf("%w: %v", ErrResolverPanic, p)
			}
		}()
		done <- r.Resolve(ctx, ip)
	}()

	select {
	case info := <-done:
		return info, nil
	case err := <-fail:
		return Info{}, err
	case <-ctx.Done():
		return Info{}, errors.Join(ErrResolveTimeout, ctx.Err())
	}
}
