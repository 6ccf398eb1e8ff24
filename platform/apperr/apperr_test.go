package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetKindFollowsWrappedErrors(t *testing.T) {
	base := Precondition("assign an owner first")
	wrapped := fmt.Errorf("change stage: %w", base)

	if got := GetKind(wrapped); got != KindPrecondition {
		t.Fatalf("expected KindPrecondition, got %v", got)
	}
	if !Is(wrapped, KindPrecondition) {
		t.Fatalf("expected Is to match wrapped precondition error")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected KindUnknown for untyped errors")
	}
}

func TestStatusRoundTrip(t *testing.T) {
	kinds := []Kind{KindNotFound, KindValidation, KindPrecondition, KindConflict, KindTransient, KindForbidden, KindUnauthorized}
	for _, kind := range kinds {
		status := New(kind, "x").HTTPStatus()
		if got := KindFromStatus(status); got != kind {
			t.Errorf("kind %v -> status %d -> kind %v", kind, status, got)
		}
	}
	if KindFromStatus(http.StatusBadGateway) != KindTransient {
		t.Fatalf("expected 5xx to map to transient")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Transient("lead store unreachable", errors.New("dial tcp"))) {
		t.Fatalf("expected transient error to be retryable")
	}
	if IsRetryable(Conflict("lead is closed")) {
		t.Fatalf("expected conflict error not to be retryable")
	}
}
