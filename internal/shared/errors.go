package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	ErrTimeout = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Editing and selection errors
	ErrNoSelection     = fmt.Errorf("no track selected")
	ErrNothingSelected = fmt.Errorf("no tracks selected for export")
	ErrUnknownField    = fmt.Errorf("unknown override field")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrUnsupportedFile = fmt.Errorf("unsupported file type")
)
