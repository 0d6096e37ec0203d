package beans

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	err := NewError("set", "altitude", ErrInvalidState)

	if got, want := err.Error(), "set altitude: invalid state"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
	if errors.Is(err, ErrAccessDenied) {
		t.Error("errors.Is should not match an unrelated sentinel")
	}
}

func TestError_NoProperty(t *testing.T) {
	err := NewError("release", "", ErrInvalidState)

	if got, want := err.Error(), "release: invalid state"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Unwrap() != ErrInvalidState {
		t.Error("Unwrap() should return the underlying error")
	}
}

func TestError_As(t *testing.T) {
	var wrapped error = NewError("bind", "drone", ErrCyclicBinding)

	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find *Error")
	}
	if target.Op != "bind" || target.Property != "drone" {
		t.Errorf("unexpected fields: %+v", target)
	}
}
