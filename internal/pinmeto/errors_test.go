package pinmeto_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
)

func TestClassifyStatusBodyDetail(t *testing.T) {
	e := pinmeto.ClassifyStatus(http.StatusBadRequest, nil, `{"message":"from must be before to"}`)
	if !strings.Contains(e.Message, "from must be before to") {
		t.Errorf("message: expected body detail, got %q", e.Message)
	}
	long := strings.Repeat("x", 500)
	e = pinmeto.ClassifyStatus(http.StatusNotFound, nil, long)
	if strings.Contains(e.Message, long) {
		t.Error("message: expected body detail to be truncated")
	}
}

func TestClassifyStatusRetryAfterDate(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	e := pinmeto.ClassifyStatus(http.StatusTooManyRequests, h, "")
	if !e.Retryable {
		t.Error("429 must be retryable")
	}
	// A date in the past clamps to zero.
	if !strings.Contains(e.Message, "retry after 0s") {
		t.Errorf("message: got %q", e.Message)
	}
}

func TestClassifyStatusNoRetryAfter(t *testing.T) {
	e := pinmeto.ClassifyStatus(http.StatusTooManyRequests, nil, "")
	if e.Message != "Rate limit exceeded" {
		t.Errorf("message: expected %q, got %q", "Rate limit exceeded", e.Message)
	}
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      pinmeto.Kind
		message   string
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, pinmeto.KindNetworkError, "Request timed out", true},
		{"wrapped deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), pinmeto.KindNetworkError, "Request timed out", true},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.invalid"}, pinmeto.KindNetworkError, "Network error - unable to reach API", true},
		{"refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, pinmeto.KindNetworkError, "Network error - unable to reach API", true},
		{"eof", io.ErrUnexpectedEOF, pinmeto.KindNetworkError, "Network error - unable to reach API", true},
		{"other", errors.New("boom"), pinmeto.KindUnknownError, "boom", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := pinmeto.ClassifyTransport(tt.err)
			if e.Kind != tt.kind {
				t.Errorf("kind: expected %s, got %s", tt.kind, e.Kind)
			}
			if e.Message != tt.message {
				t.Errorf("message: expected %q, got %q", tt.message, e.Message)
			}
			if e.Retryable != tt.retryable {
				t.Errorf("retryable: expected %v, got %v", tt.retryable, e.Retryable)
			}
			if !errors.Is(e, tt.err) {
				t.Error("expected the cause to be unwrappable")
			}
		})
	}
}

func TestAsErrorWrapsPlainErrors(t *testing.T) {
	if pinmeto.AsError(nil) != nil {
		t.Error("AsError(nil): expected nil")
	}
	e := pinmeto.AsError(errors.New("plain"))
	if e.Kind != pinmeto.KindUnknownError || e.Retryable {
		t.Errorf("expected non-retryable UNKNOWN_ERROR, got %+v", e)
	}
	wrapped := fmt.Errorf("ctx: %w", &pinmeto.Error{Kind: pinmeto.KindRateLimited, Retryable: true})
	if !pinmeto.IsRetryable(wrapped) {
		t.Error("IsRetryable: expected true through wrapping")
	}
}

func TestGuidanceIsNeverEmpty(t *testing.T) {
	kinds := []pinmeto.Kind{
		pinmeto.KindAuthInvalidCredentials, pinmeto.KindAuthAppDisabled, pinmeto.KindBadRequest,
		pinmeto.KindNotFound, pinmeto.KindRateLimited, pinmeto.KindServerError,
		pinmeto.KindNetworkError, pinmeto.KindUnknownError,
	}
	for _, k := range kinds {
		if (&pinmeto.Error{Kind: k}).Guidance() == "" {
			t.Errorf("%s: empty guidance", k)
		}
	}
}
