package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Extraction errors, surfaced verbatim as the response detail
	ErrExtractionFailed = fmt.Errorf("extraction failed")
	ErrBotDetected      = fmt.Errorf("upstream flagged the request as automated traffic")
	ErrResolution       = fmt.Errorf("no playable stream found")
	ErrNoStreamFound    = fmt.Errorf("could not extract stream URL")
	ErrInvalidPlaylist  = fmt.Errorf("invalid playlist")

	// Relay errors
	ErrUpstreamFailed = fmt.Errorf("upstream request failed")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
