package errors

import "fmt"

// ErrorType classifies failures from the GoPro API and download endpoints
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// FetchError is a fatal listing-fetch failure. It carries the page number
// so the operator knows where pagination stopped.
type FetchError struct {
	Page   int
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("listing fetch failed on page %d (status %d): %v", e.Page, e.Status, e.Err)
	}
	return fmt.Sprintf("listing fetch failed on page %d (status %d)", e.Page, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DownloadError is a single job's failure. It never aborts sibling jobs;
// the engine collects these for the final summary.
type DownloadError struct {
	URL         string
	Destination string
	Err         error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s to %s failed: %v", e.URL, e.Destination, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
