package session

import "github.com/google/uuid"

// NewID returns a new session identifier in UUID v4 shape. The identifier is
// assigned once per tracker instance and is immutable afterwards.
func NewID() string {
	return uuid.NewString()
}
