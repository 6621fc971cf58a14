package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrUnknownUser        = fmt.Errorf("no AniList token configured for user")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")
	ErrTimeout    = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSeriesNotFound     = fmt.Errorf("series not found")
	ErrLibraryNotFound    = fmt.Errorf("library not found")
	ErrCatalogNotFound    = fmt.Errorf("catalog media not found")

	// Remote call outcomes
	ErrRateLimited   = fmt.Errorf("rate limited")
	ErrRemoteFailure = fmt.Errorf("remote request failed")
	ErrTransientIO   = fmt.Errorf("transient network failure")

	// Sync outcomes
	ErrIdentityNotFound = fmt.Errorf("no catalog identity found")
	ErrNotInList        = fmt.Errorf("not in list and auto-add is disabled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
