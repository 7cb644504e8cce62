package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestPermanentErrorWrapping(t *testing.T) {
	base := errors.New("unauthorized")
	wrapped := NewPermanentError(base)

	if !IsPermanentError(wrapped) {
		t.Error("wrapped error should be permanent")
	}
	if !errors.Is(wrapped, base) {
		t.Error("Unwrap should reach the base error")
	}
	if NewPermanentError(nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestTransientErrorMarker(t *testing.T) {
	wrapped := NewTransientError(errors.New("flaky backend"))
	if IsPermanentError(wrapped) {
		t.Error("explicitly transient error should not be permanent")
	}
	if !IsTransientError(fmt.Errorf("outer: %w", wrapped)) {
		t.Error("transient marker should survive wrapping")
	}
	if NewTransientError(nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestContextErrorsArePermanent(t *testing.T) {
	if !IsPermanentError(context.Canceled) {
		t.Error("context.Canceled should be permanent")
	}
	if !IsPermanentError(context.DeadlineExceeded) {
		t.Error("context.DeadlineExceeded should be permanent")
	}
}

func TestUnknownErrorsDefaultTransient(t *testing.T) {
	if IsPermanentError(errors.New("mystery")) {
		t.Error("unclassified errors should default to transient")
	}
	if !IsTransientError(errors.New("mystery")) {
		t.Error("IsTransientError should agree")
	}
	if IsTransientError(nil) {
		t.Error("nil is not transient")
	}
}
