package auth

import "fmt"

// AuthError is returned when no usable access token could be obtained.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.StatusCode > 0 {
		if e.Err != nil {
			return fmt.Sprintf("MSP auth error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
		}
		return fmt.Sprintf("MSP auth error (status %d): %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("MSP auth error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("MSP auth error: %s", e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthError) Unwrap() error {
	return e.Err
}
