package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Session and connectivity errors
	ErrSessionClosed   = fmt.Errorf("session not connected")
	ErrConnectionReset = fmt.Errorf("connection reset")
	ErrMenuNotFound    = fmt.Errorf("menu item not found")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrSourceUnknown   = fmt.Errorf("unknown sync source")

	// File import errors
	ErrFileNotFound     = fmt.Errorf("source file not found")
	ErrNoFileConfigured = fmt.Errorf("no file path configured")

	// Query errors
	ErrNoRuns = fmt.Errorf("no sync runs recorded")
)
