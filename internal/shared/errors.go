package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Resource identifier errors
	ErrInvalidResourceID  = fmt.Errorf("invalid spotify resource id")
	ErrInvalidResourceURL = fmt.Errorf("invalid spotify resource url")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")

	// Queue errors
	ErrMetadataFetch    = fmt.Errorf("metadata fetch failed")
	ErrCollectionExpand = fmt.Errorf("collection expand failed")
	ErrPlaybackCommand  = fmt.Errorf("playback command failed")
	ErrTrackUnavailable = fmt.Errorf("track unavailable")
	ErrNotQueued        = fmt.Errorf("entry not in queue")
	ErrBusClosed        = fmt.Errorf("event bus closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
