package geo

// Unknown is the sentinel recorded for any location field that could not be
// resolved. Coordinates use nil instead.
const Unknown = "unknown"

// Info holds location metadata attached to audit events. String fields
// default to Unknown, coordinates to nil, so a zero-enrichment event is still
// well-formed on the wire.
type Info struct {
	IP        string
	City      string
	Region    string
	Country   string
	Latitude  *float64
	Longitude *float64
}

// UnknownInfo returns the sentinel Info used when resolution fails or is disabled.
func UnknownInfo() Info {
	return Info{
		IP:      Unknown,
		City:    Unknown,
		Region:  Unknown,
		Country: Unknown,
	}
}

// WithIP returns a copy of the sentinel Info carrying a known source address.
func (i Info) WithIP(ip string) Info {
	if ip != "" {
		i.IP = ip
	}
	return i
}

// Resolved reports whether any field carries real data beyond the sentinel.
func (i Info) Resolved() bool {
	if i.Latitude != nil || i.Longitude != nil {
		return true
	}
	for _, f := range []string{i.City, i.Region, i.Country} {
		if f != "" && f != Unknown {
			return true
		}
	}
	return false
}

// normalize fills empty string fields with the sentinel.
func (i Info) normalize() Info {
	for _, f := range []*string{&i.IP, &i.City, &i.Region, &i.Country} {
		if *f == "" {
			*f = Unknown
		}
	}
	return i
}
