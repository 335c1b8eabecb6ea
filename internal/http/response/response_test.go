package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ouvidoriag/ogdash2/internal/platform/apierr"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"storage", store.Unavailable("find records", errors.New("dial tcp")), http.StatusServiceUnavailable, CodeStorageUnavailable},
		{"malformed spec", fmt.Errorf("%w: not a list", filter.ErrMalformedFilterSpec), http.StatusBadRequest, CodeMalformedFilterSpec},
		{"bad input", apierr.BadInput(errors.New("within must be a non-negative integer")), http.StatusBadRequest, apierr.CodeBadInput},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apierr.CodeInternal},
	}
	for _, tc := range cases {
		got := Classify(tc.err)
		if got == nil {
			t.Fatalf("%s: want error got=nil", tc.name)
		}
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("%s: want=%d/%s got=%d/%s", tc.name, tc.status, tc.code, got.Status, got.Code)
		}
	}
	if Classify(nil) != nil {
		t.Fatalf("nil: want nil")
	}
	if !errors.Is(Classify(store.Unavailable("cache get", errors.New("timeout"))), store.ErrUnavailable) {
		t.Fatalf("classified storage error must still unwrap to ErrUnavailable")
	}
}
