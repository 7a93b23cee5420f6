package pinmeto

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind is the machine-readable error code surfaced to agents.
type Kind string

const (
	KindAuthInvalidCredentials Kind = "AUTH_INVALID_CREDENTIALS"
	KindAuthAppDisabled        Kind = "AUTH_APP_DISABLED"
	KindBadRequest             Kind = "BAD_REQUEST"
	KindNotFound               Kind = "NOT_FOUND"
	KindRateLimited            Kind = "RATE_LIMITED"
	KindServerError            Kind = "SERVER_ERROR"
	KindNetworkError           Kind = "NETWORK_ERROR"
	KindUnknownError           Kind = "UNKNOWN_ERROR"
)

// Error is the failure half of every upstream call. Callers branch on
// err != nil before touching a Page; errors.As recovers the Kind.
type Error struct {
	Kind      Kind
	Status    int // 0 when no HTTP response was received
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Guidance returns advice an agent can act on.
func (e *Error) Guidance() string {
	switch e.Kind {
	case KindAuthInvalidCredentials:
		return "Check PINMETO_APP_ID and PINMETO_APP_SECRET; the credentials were rejected."
	case KindAuthAppDisabled:
		return "The API application is disabled or lacks access to this account. Contact the PinMeTo account owner."
	case KindBadRequest:
		return "Check the request parameters (date format YYYY-MM-DD, valid ranges)."
	case KindNotFound:
		return "The store id or resource does not exist. Use pinmeto_get_locations to list valid store ids."
	case KindRateLimited:
		return "Wait before retrying; the API rate limit was exceeded."
	case KindServerError:
		return "The PinMeTo API is having problems. Retry in a moment."
	case KindNetworkError:
		return "Check network connectivity to the PinMeTo API and retry."
	default:
		return "Unexpected failure. Retrying is unlikely to help."
	}
}

// AsError extracts a *Error from err, or wraps err as UnknownError.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindUnknownError, Message: err.Error(), Err: err}
}

// IsRetryable reports whether err is a retryable upstream failure.
func IsRetryable(err error) bool {
	e := AsError(err)
	return e != nil && e.Retryable
}

// ─── Classification ──────────────────────────────────────────────────────────

// ClassifyStatus maps a non-2xx HTTP response to an Error.
// header may be nil; it is consulted for Retry-After on 429.
func ClassifyStatus(status int, header http.Header, body string) *Error {
	detail := strings.TrimSpace(body)
	if len(detail) > 200 {
		detail = detail[:200] + "…"
	}
	e := &Error{Status: status}
	switch status {
	case http.StatusUnauthorized:
		e.Kind, e.Message = KindAuthInvalidCredentials, "Authentication failed - invalid credentials"
	case http.StatusForbidden:
		e.Kind, e.Message = KindAuthAppDisabled, "Access forbidden - the application is disabled or not authorized"
	case http.StatusBadRequest:
		e.Kind, e.Message = KindBadRequest, "Bad request"
	case http.StatusNotFound:
		e.Kind, e.Message = KindNotFound, "Resource not found"
	case http.StatusTooManyRequests:
		e.Kind, e.Retryable = KindRateLimited, true
		e.Message = "Rate limit exceeded"
		if wait, ok := retryAfter(header); ok {
			e.Message += fmt.Sprintf(" - retry after %s", wait)
		}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Kind, e.Retryable = KindServerError, true
		e.Message = fmt.Sprintf("PinMeTo API server error (%d)", status)
	default:
		e.Kind, e.Message = KindUnknownError, fmt.Sprintf("Unexpected HTTP status %d", status)
	}
	if detail != "" && e.Kind != KindRateLimited {
		e.Message += ": " + detail
	}
	return e
}

// ClassifyTransport maps an error from http.Client.Do (no response) to an Error.
func ClassifyTransport(err error) *Error {
	if isTimeout(err) {
		return &Error{Kind: KindNetworkError, Message: "Request timed out", Retryable: true, Err: err}
	}
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: KindNetworkError, Message: "Network error - unable to reach API", Retryable: true, Err: err}
	}
	return &Error{Kind: KindUnknownError, Message: err.Error(), Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// retryAfter parses a Retry-After header given either in seconds or as an
// HTTP date.
func retryAfter(h http.Header) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t).Round(time.Second)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
