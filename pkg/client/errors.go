package client

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport, timeout and cancellation errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents 2xx responses that are not a JSON object.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassAuth represents token grant failures (see auth.AuthError).
	ErrorClassAuth ErrorClass = "auth"
)

// APIError is the normalized failure of one MSP API request.
type APIError struct {
	StatusCode int
	Endpoint   string
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("MSP %s error (status %d) on %s: %s: %v",
			e.ErrorClass, e.StatusCode, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("MSP %s error (status %d) on %s: %s",
		e.ErrorClass, e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ShapeError reports a response that lacks the expected items array.
// It is distinct from an empty page.
type ShapeError struct {
	Endpoint string
	ItemsKey string
	Keys     []string
	Reason   string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("MSP response from %s: items key %q %s (keys: %s)",
		e.Endpoint, e.ItemsKey, e.Reason, strings.Join(e.Keys, ","))
}

func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		// 1xx/3xx reaching us means the redirect was not followed.
		return ErrorClassClient
	}
}
