package tracker

import "errors"

var (
	// ErrMissingBaseURL indicates the required collector base URL was not configured
	ErrMissingBaseURL = errors.New("tracker.missing_base_url")

	// ErrNoEnvironment indicates the tracker was constructed without a host
	// environment binding and degraded to a no-op
	ErrNoEnvironment = errors.New("tracker.no_environment")

	// ErrAlreadyActive indicates another tracker holds the registry slot
	ErrAlreadyActive = errors.New("tracker.already_active")

	// ErrAlreadyPatched indicates the environment's navigation primitives are already wrapped
	ErrAlreadyPatched = errors.New("tracker.navigation_already_patched")

	// ErrGeolocationUnavailable indicates the environment exposes no coordinate source
	ErrGeolocationUnavailable = errors.New("tracker.geolocation_unavailable")
)
