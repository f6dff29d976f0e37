package api

import (
	"errors"
	"fmt"
)

var (
	// ErrStaticSnapshot is returned for every call made while the dashboard
	// runs on embedded snapshot data.
	ErrStaticSnapshot = errors.New("static snapshot: network access disabled")

	// ErrSearchDisabled is wrapped by SearchDisabledError.
	ErrSearchDisabled = errors.New("search disabled")
)

// NetworkError is a transport-level failure: DNS, refused connection,
// timeout or a cancelled context.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response. Code and Reason carry the backend's
// structured `error` and `reason` fields when the body had them.
type HTTPError struct {
	StatusCode int
	Status     string
	Code       string
	Reason     string
}

// Message is the human-readable reason shown to the user.
func (e *HTTPError) Message() string {
	switch {
	case e.Code != "" && e.Reason != "":
		return e.Code + ": " + e.Reason
	case e.Code != "":
		return e.Code
	case e.Reason != "":
		return e.Reason
	default:
		return e.Status
	}
}

func (e *HTTPError) Error() string { return e.Message() }

// ValidationError reports bad local input; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ParseError is malformed JSON where JSON was expected.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return e.What
	}
	return fmt.Sprintf("%s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SearchDisabledError carries the configured reason search is off.
type SearchDisabledError struct {
	Reason string
}

func (e *SearchDisabledError) Error() string {
	if e.Reason == "" {
		return ErrSearchDisabled.Error()
	}
	return e.Reason
}

func (e *SearchDisabledError) Unwrap() error { return ErrSearchDisabled }

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
