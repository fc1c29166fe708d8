package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestRemoteError_Unwrap(t *testing.T) {
	err := &RemoteError{Method: "up", Err: ErrBackendUnavailable}

	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected chain to contain ErrBackendUnavailable")
	}
	if got := err.Error(); got != "remote up: backend unavailable" {
		t.Errorf("Error() = %q", got)
	}
}

func TestActionError_Chain(t *testing.T) {
	remote := &RemoteError{Method: "disable_ipv6", Err: fmt.Errorf("exit status 1")}
	err := fmt.Errorf("toggle: %w", &ActionError{Action: "disable ipv6", Err: remote})

	var re *RemoteError
	if !As(err, &re) {
		t.Fatalf("expected RemoteError in chain")
	}
	if re.Method != "disable_ipv6" {
		t.Errorf("Method = %q, want disable_ipv6", re.Method)
	}

	var ae *ActionError
	if !As(err, &ae) {
		t.Fatalf("expected ActionError in chain")
	}
	if got := ae.Error(); got != "disable ipv6: remote disable_ipv6: exit status 1" {
		t.Errorf("Error() = %q", got)
	}
}

func TestActionError_WithTarget(t *testing.T) {
	err := &ActionError{Action: "up", Target: "Office VPN", Err: ErrRemoteCall}
	if got := err.Error(); got != "up 'Office VPN': remote call failed" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(err, ErrRemoteCall) {
		t.Errorf("expected Is(ErrRemoteCall)")
	}
}
