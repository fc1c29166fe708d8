package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// Backend errors
	ErrRemoteCall         = errors.New("remote call failed")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrEmptyResponse      = errors.New("empty response")

	// Connection errors
	ErrConnectionNotFound = errors.New("connection not found")
	ErrInvalidUUID        = errors.New("invalid connection uuid")
	ErrNoActiveConnection = errors.New("no active connection")

	// OpenVPN errors
	ErrOpenVPNNotInstalled = errors.New("openvpn support is not installed")

	// Scheduler errors
	ErrSchedulerStopped = errors.New("scheduler is stopped")

	// Settings errors
	ErrSettingNotFound = errors.New("setting not found")
)

// RemoteError represents a failed call on the backend RPC surface
type RemoteError struct {
	Method string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Method, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// ActionError represents a user-triggered mutation that the backend rejected
type ActionError struct {
	Action string
	Target string
	Err    error
}

func (e *ActionError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s '%s': %v", e.Action, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
