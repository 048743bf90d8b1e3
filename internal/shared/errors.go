package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNoAccessToken  = fmt.Errorf("no access token")
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrAuthExpired    = fmt.Errorf("access token rejected after refresh")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")

	// Loopback listener errors
	ErrAlreadyListening = fmt.Errorf("authentication already in progress")
	ErrListenerBind     = fmt.Errorf("failed to bind loopback listener")
	ErrListenerTimeout  = fmt.Errorf("authentication timed out")
	ErrInvalidCallback  = fmt.Errorf("invalid callback payload")

	// API and transport errors
	ErrAPIRequest = fmt.Errorf("API request failed")
	ErrTransport  = fmt.Errorf("transport failure")
	ErrParse      = fmt.Errorf("unexpected response body")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
