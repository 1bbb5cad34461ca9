// Package apperr defines the error taxonomy shared by the agent, the control-plane
// client and the commands.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMissingConfig    = errors.New("configuration file not found")
)

// APIError is a failure talking to the control plane: transport, status or decoding.
type APIError struct {
	// Op names the call, e.g. "fetch settings" or "send record".
	Op string
	// StatusCode is zero when no response was received.
	StatusCode int
	// Body holds the response body of a failed call, for diagnostics.
	Body string
	Err  error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	case e.Err == nil || errors.Is(e.Err, ErrUnauthorized) || errors.Is(e.Err, ErrUnexpectedStatus):
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	default:
		// Decoding failed on an otherwise successful response.
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusError builds the APIError for a non-success response.
func StatusError(op string, status int, body string) *APIError {
	err := ErrUnexpectedStatus
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		err = ErrUnauthorized
	}
	return &APIError{Op: op, StatusCode: status, Body: body, Err: err}
}

// SourceError is a failure reading or filtering the log source.
// The control loop treats it as fatal.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("journal %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ConfigurationError covers a malformed or missing config file and a failed initial
// policy fetch. Both stop the process before the control loop starts.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Configf is shorthand for a ConfigurationError without a cause.
func Configf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
