package event

import (
	"time"

	"github.com/dmitrymomot/auditkit/pkg/geo"
)

// AnonymousUser is the identity recorded when the caller supplied none.
const AnonymousUser = "anonymous"

// Event is one enriched audit record. The JSON encoding is the wire format
// delivered to sink URLs; geo fields are flattened at the top level.
type Event struct {
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	Route     string    `json:"route"`
	Duration  int       `json:"duration"`

	IP        string   `json:"ip"`
	City      string   `json:"city"`
	Region    string   `json:"region"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	UserAgent        string `json:"userAgent"`
	Language         string `json:"language,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	ScreenResolution string `json:"screenResolution,omitempty"`
	Viewport         string `json:"viewport,omitempty"`

	// Server-side only, populated by the request interceptor.
	Method       string `json:"method,omitempty"`
	StatusCode   int    `json:"statusCode,omitempty"`
	RequestSize  int    `json:"requestSize,omitempty"`
	ResponseSize int    `json:"responseSize,omitempty"`

	// Manually tracked events only.
	Name     string         `json:"event,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// New creates an event with defaults applied: UTC creation timestamp,
// anonymous user fallback, clamped duration, and sentinel geo fields.
func New(sessionID, userID, route string, duration int) Event {
	if userID == "" {
		userID = AnonymousUser
	}
	if duration < 0 {
		duration = 0
	}
	ev := Event{
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Route:     route,
		Duration:  duration,
		UserAgent: geo.Unknown,
	}
	ev.SetGeo(geo.UnknownInfo())
	return ev
}

// SetGeo copies location metadata into the flattened wire fields.
func (e *Event) SetGeo(info geo.Info) {
	e.IP = info.IP
	e.City = info.City
	e.Region = info.Region
	e.Country = info.Country
	e.Latitude = info.Latitude
	e.Longitude = info.Longitude
}

// FillDefaults replaces any empty field with its sentinel so a partially
// enriched event is never delivered malformed.
func (e *Event) FillDefaults() {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.UserID == "" {
		e.UserID = AnonymousUser
	}
	if e.Duration < 0 {
		e.Duration = 0
	}
	for _, f := range []*string{&e.IP, &e.City, &e.Region, &e.Country, &e.UserAgent} {
		if *f == "" {
			*f = geo.Unknown
		}
	}
}

// Validate checks that the event is complete enough to deliver.
func (e *Event) Validate() error {
	if e.SessionID == "" {
		return ErrMissingSessionID
	}
	if e.Route == "" {
		return ErrMissingRoute
	}
	if e.Duration < 0 {
		return ErrNegativeDuration
	}
	return nil
}
