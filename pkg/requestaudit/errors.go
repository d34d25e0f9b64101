package requestaudit

import "errors"

var (
	// ErrMissingDBURL indicates the required sink URL was not configured
	ErrMissingDBURL = errors.New("requestaudit.missing_db_url")
)
