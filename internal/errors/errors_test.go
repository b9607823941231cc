package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(CodeConnFailed, "dial refused")
	if got := err.Error(); got != "[conn_failed] dial refused" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(stderrors.New("boom"), CodeDeviceFailed, "stream start")
	if got := wrapped.Error(); !strings.Contains(got, "caused by: boom") {
		t.Errorf("Error() = %q, want cause included", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("underlying")
	err := Wrap(cause, CodeDecodeFailed, "clip rejected")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is failed to find the wrapped cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return the cause")
	}
}

func TestIsCode(t *testing.T) {
	err := Newf(CodeDeviceDenied, "device %q unavailable", "default")

	if !IsCode(err, CodeDeviceDenied) {
		t.Error("IsCode(err, CodeDeviceDenied) = false")
	}
	if IsCode(err, CodeConnFailed) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(stderrors.New("plain"), CodeUnknown) {
		t.Error("IsCode matched a plain error")
	}

	// The code survives further wrapping with %w.
	outer := fmt.Errorf("session: %w", err)
	if !IsCode(outer, CodeDeviceDenied) {
		t.Error("IsCode failed through a fmt.Errorf wrapper")
	}
}
