package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapsKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind Kind
		want int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(E(tc.kind, "boom")); got != tc.want {
			t.Fatalf("status for %q = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestHTTPStatusHandlesNilAndUntyped(t *testing.T) {
	t.Parallel()

	if got := HTTPStatus(nil); got != http.StatusOK {
		t.Fatalf("nil status = %d, want %d", got, http.StatusOK)
	}
	if got := HTTPStatus(errors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("untyped status = %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestHTTPStatusUnwrapsWrappedErrors(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("lookup term: %w", E(KindNotFound, "term not found"))
	if got := HTTPStatus(wrapped); got != http.StatusNotFound {
		t.Fatalf("wrapped status = %d, want %d", got, http.StatusNotFound)
	}
	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("wrapped kind = %q, want %q", got, KindNotFound)
	}
}

func TestErrorMessageFallsBackToKind(t *testing.T) {
	t.Parallel()

	err := Error{Kind: KindForbidden}
	if err.Error() != string(KindForbidden) {
		t.Fatalf("message = %q, want kind fallback", err.Error())
	}
}
