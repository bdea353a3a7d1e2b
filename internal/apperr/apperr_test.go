package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: Conflict("already enrolled"), want: http.StatusConflict},
		{err: NotFound("no such class"), want: http.StatusNotFound},
		{err: Forbidden("access denied"), want: http.StatusForbidden},
		{err: Unauthorized("bad token"), want: http.StatusUnauthorized},
		{err: Invalid("missing field %s", "name"), want: http.StatusBadRequest},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
		{err: nil, want: http.StatusOK},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestIsKindUnwraps(t *testing.T) {
	err := fmt.Errorf("record check-in: %w", Conflict("duplicate"))
	if !IsKind(err, KindConflict) {
		t.Errorf("IsKind() did not see through wrapping: %v", err)
	}
	if IsKind(err, KindNotFound) {
		t.Errorf("IsKind() matched the wrong kind for %v", err)
	}
	if IsKind(nil, KindConflict) {
		t.Error("IsKind(nil) = true")
	}
}
