package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	perrors "github.com/yungbote/labreport-backend/internal/platform/errors"
)

type codedErr struct{ code string }

func (e codedErr) Error() string     { return e.code }
func (e codedErr) ErrorCode() string { return e.code }

func TestFrom(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"coder", fmt.Errorf("x: %w", codedErr{"upstream_unavailable"}), http.StatusServiceUnavailable, "upstream_unavailable"},
		{"unknown coder", codedErr{"weird"}, http.StatusInternalServerError, "weird"},
		{"not found", fmt.Errorf("report: %w", perrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"transition", perrors.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal"},
		{"passthrough", New(http.StatusTeapot, "teapot", nil), http.StatusTeapot, "teapot"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := From(tc.err)
			if got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("want=%d/%s got=%d/%s", tc.status, tc.code, got.Status, got.Code)
			}
		})
	}
	if From(nil) != nil {
		t.Fatalf("nil should map to nil")
	}
}
