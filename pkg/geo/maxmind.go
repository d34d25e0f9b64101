package geo

import (
	"context"
	"errors"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MaxMindResolver performs offline IP lookups against a MaxMind City
// database (GeoLite2 or commercial). Lookups never touch the network.
type MaxMindResolver struct {
	db      *geoip2.Reader
	onError func(error)
}

// MaxMindOption configures a MaxMindResolver.
type MaxMindOption func(*MaxMindResolver)

// WithMaxMindErrorSink routes lookup failures to the given sink.
func WithMaxMindErrorSink(sink func(error)) MaxMindOption {
	return func(r *MaxMindResolver) {
		if sink != nil {
			r.onError = sink
		}
	}
}

// NewMaxMindResolver opens the database at the given path. Open failure is a
// configuration problem and is the only error this type ever returns; after
// construction every failure degrades to the sentinel.
func NewMaxMindResolver(dbPath string, opts ...MaxMindOption) (*MaxMindResolver, error) {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	r := &MaxMindResolver{
		db:      db,
		onError: func(error) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *MaxMindResolver) Resolve(_ context.Context, ip string) Info {
	info := UnknownInfo().WithIP(ip)

	parsed := net.ParseIP(ip)
	if parsed == nil {
		r.onError(ErrInvalidIP)
		return info
	}

	record, err := r.db.City(parsed)
	if err != nil {
		r.onError(errors.Join(ErrLookupFailed, err))
		return info
	}

	if name := record.City.Names["en"]; name != "" {
		info.City = name
	}
	if len(record.Subdivisions) > 0 {
		if name := record.Subdivisions[0].Names["en"]; name != "" {
			info.Region = name
		}
	}
	if name := record.Country.Names["en"]; name != "" {
		info.Country = name
	} else if record.Country.IsoCode != "" {
		info.Country = record.Country.IsoCode
	}
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		lat, long := record.Location.Latitude, record.Location.Longitude
		info.Latitude = &lat
		info.Longitude = &long
	}

	return info
}

// Close releases the underlying database handle.
func (r *MaxMindResolver) Close() error {
	return r.db.Close()
}
