package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"bad input", BadInput(errors.New("limit must be a non-negative integer")), http.StatusBadRequest, CodeBadInput},
		{"wrapped api error", fmt.Errorf("handler: %w", New(http.StatusNotFound, CodeNotFound, errors.New("gone"))), http.StatusNotFound, CodeNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		if got == nil {
			t.Fatalf("%s: want error got=nil", tc.name)
		}
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("%s: want=%d/%s got=%d/%s", tc.name, tc.status, tc.code, got.Status, got.Code)
		}
	}
	if FromError(nil) != nil {
		t.Fatalf("nil: want nil")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	ae := New(http.StatusServiceUnavailable, "unavailable", fmt.Errorf("cache get: %w", cause))
	if !errors.Is(ae, cause) {
		t.Fatalf("errors.Is through apierr.Error: want true")
	}
	if (&Error{Code: CodeNotFound}).Error() != CodeNotFound {
		t.Fatalf("Error() without cause should fall back to code")
	}
}
