package platform

import "fmt"

// APIError represents a failed call to a platform data endpoint. Status is
// zero when the failure was reported inside a 200 body (TikTok style).
type APIError struct {
	Status  int
	Message string
}

// NewAPIError builds an APIError for a non-2xx response. The message wording
// distinguishes 404, 401, 429 and 5xx because downstream classification
// treats them differently.
func NewAPIError(status int, body string) *APIError {
	body = truncate(body, 200)
	var message string
	switch {
	case status == 404:
		message = fmt.Sprintf("profile not found (404) - account may not exist or was deleted: %s", body)
	case status == 401:
		message = fmt.Sprintf("unauthorized (401) - check API keys: %s", body)
	case status == 429:
		message = fmt.Sprintf("rate limit exceeded (429): %s", body)
	case status >= 500 && status <= 599:
		message = fmt.Sprintf("upstream server error (%d): %s", status, body)
	default:
		message = fmt.Sprintf("http error %d: %s", status, body)
	}
	return &APIError{Status: status, Message: message}
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// TimeoutError indicates the request exceeded the configured timeout
type TimeoutError struct {
	Err error
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ParseError indicates an undecodable or structurally incomplete payload
type ParseError struct {
	Message string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return e.Message
}

// InvalidIdentifierError indicates a malformed or missing account identifier.
// It is never retried.
type InvalidIdentifierError struct {
	Message string
}

// Error implements the error interface
func (e *InvalidIdentifierError) Error() string {
	return e.Message
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
