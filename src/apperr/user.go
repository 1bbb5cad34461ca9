package apperr

import (
	"errors"
	"fmt"
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// Explain converts errors to user-friendly messages for command output.
func Explain(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrMissingConfig) {
		return &UserError{
			Message: "Configuration file not found",
			Hint:    "Pass --config or set LOGRERO_CONFIG. The default path is ./config.toml.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrUnauthorized) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that server.token matches the control plane token (or set LOGRERO_TOKEN).",
			Err:     err,
		}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 0 {
		return &UserError{
			Message: "Control plane unreachable",
			Hint:    "Check server.address and server.port, and that logrero-server is running.",
			Err:     err,
		}
	}

	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return &UserError{
			Message: "Journal read failed",
			Hint:    "The agent needs read access to the system journal (root or the systemd-journal group).",
			Err:     err,
		}
	}

	return err
}
