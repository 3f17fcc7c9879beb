package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := &Error{Type: ErrorTypeAuth, Message: "session expired", Code: 401}
	assert.Equal(t, "auth error (code 401): session expired", err.Error())
}

func TestFetchErrorWrapping(t *testing.T) {
	cause := &Error{Type: ErrorTypeServerError, Message: "server error", Code: 502}
	err := &FetchError{Page: 4, Status: 502, Err: cause}

	assert.Contains(t, err.Error(), "page 4")
	assert.Contains(t, err.Error(), "502")

	var apiErr *Error
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrorTypeServerError, apiErr.Type)
}

func TestFetchErrorWithoutCause(t *testing.T) {
	err := &FetchError{Page: 1, Status: 500}
	assert.Contains(t, err.Error(), "page 1")
	assert.Nil(t, errors.Unwrap(err))
}

func TestDownloadErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := &DownloadError{
		URL:         "https://cdn.example.com/clip.mp4",
		Destination: "/data/clip.mp4",
		Err:         cause,
	}

	assert.Contains(t, err.Error(), "https://cdn.example.com/clip.mp4")
	assert.Contains(t, err.Error(), "/data/clip.mp4")
	assert.ErrorIs(t, err, cause)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))

	assert.False(t, IsRetryable(ErrorTypeAuth))
	assert.False(t, IsRetryable(ErrorTypeParsing))
	assert.False(t, IsRetryable(ErrorTypeNotFound))
	assert.False(t, IsRetryable(ErrorTypeUnknown))
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(500))
	assert.True(t, IsRetryableStatusCode(503))

	assert.False(t, IsRetryableStatusCode(200))
	assert.False(t, IsRetryableStatusCode(401))
	assert.False(t, IsRetryableStatusCode(403))
	assert.False(t, IsRetryableStatusCode(404))
}
