package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnderMaintenance is matched by errors returned when the backend is confirmed down.
	ErrUnderMaintenance = errors.New("service under maintenance")
	// ErrRenewalFailed reports that the token refresh endpoint did not renew the session.
	ErrRenewalFailed = errors.New("session renewal failed")
)

// ResponseError is returned for any non-2xx response.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if snippet := readBodySnippet(e.Body); snippet != "" {
		msg += ": " + snippet
	}
	return msg
}

// MaintenanceError wraps the failure that led to a confirmed outage.
type MaintenanceError struct {
	Target string
	Err    error
}

func (e *MaintenanceError) Error() string {
	return fmt.Sprintf("%s (redirected to %s): %v", ErrUnderMaintenance, e.Target, e.Err)
}

func (e *MaintenanceError) Unwrap() []error { return []error{ErrUnderMaintenance, e.Err} }

// StatusCode extracts the HTTP status from err, or 0 if err carries none.
func StatusCode(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

func isGatewayStatus(code int) bool {
	return code >= http.StatusBadGateway && code <= http.StatusGatewayTimeout
}

// isCallerCancellation separates a caller giving up from a transport failure.
func isCallerCancellation(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
