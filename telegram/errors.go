package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors.
var (
	// ErrInvalidArgument reports a nil or malformed argument to an API entry point.
	ErrInvalidArgument = errors.New("telegram: invalid argument")

	// ErrConfiguration reports an invalid InputFile or bot configuration.
	ErrConfiguration = errors.New("telegram: configuration error")

	// ErrMalformedResponse reports a response body that is not a valid envelope.
	ErrMalformedResponse = errors.New("telegram: malformed response")
)

// RequestError is returned when the Bot API rejects a request, either with a
// non-2xx status or with "ok": false in the envelope.
type RequestError struct {
	Method     string
	StatusCode int

	// Response is the decoded envelope, nil if the body could not be decoded.
	Response *Response[RawResult]

	// Err is the underlying cause (a decode error wrapping ErrMalformedResponse),
	// nil when the envelope decoded cleanly.
	Err error
}

func (e *RequestError) Error() string {
	if f := e.failure(); f != nil {
		return fmt.Sprintf("telegram: %s: error %d: %s", e.Method, f.ErrorCode, f.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("telegram: %s: status %d: %v", e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("telegram: %s: status %d", e.Method, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) failure() *Failure {
	if e.Response == nil {
		return nil
	}
	return e.Response.Failure
}

// ErrorCode returns the envelope's error_code, falling back to the HTTP status.
func (e *RequestError) ErrorCode() int {
	if f := e.failure(); f != nil && f.ErrorCode != 0 {
		return f.ErrorCode
	}
	return e.StatusCode
}

// Description returns the envelope's description, or the HTTP status text.
func (e *RequestError) Description() string {
	if f := e.failure(); f != nil && f.Description != "" {
		return f.Description
	}
	return http.StatusText(e.StatusCode)
}

// RetryAfter returns the flood-control wait the platform asked for, or zero.
func (e *RequestError) RetryAfter() time.Duration {
	if f := e.failure(); f != nil && f.Parameters != nil {
		return time.Duration(f.Parameters.RetryAfter) * time.Second
	}
	return 0
}

// MigrateToChatID returns the supergroup id a group was migrated to, or zero.
func (e *RequestError) MigrateToChatID() int64 {
	if f := e.failure(); f != nil && f.Parameters != nil {
		return f.Parameters.MigrateToChatID
	}
	return 0
}

// Temporary reports whether repeating the request may succeed: flood control
// and server-side failures.
func (e *RequestError) Temporary() bool {
	code := e.ErrorCode()
	return code == http.StatusTooManyRequests || code >= 500 || e.StatusCode >= 500
}
