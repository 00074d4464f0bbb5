package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MKhiriev/go-sync-core/models"
)

var (
	// ErrBadRequest is returned for a 400 response.
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized is returned for a 401 response.
	ErrUnauthorized = errors.New("client unauthorized")
	// ErrForbidden is returned for a 403 response.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for a 404 response.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for a 409 response.
	ErrConflict = errors.New("conflict")
	// ErrStaleToken marks a rejected update whose version token is outdated.
	ErrStaleToken = errors.New("stale version token")
	// ErrTooManyRequests is returned for a 429 response.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrServerUnavailable is returned for any 5xx response.
	ErrServerUnavailable = errors.New("server unavailable")
	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrTransport is returned when no response was received.
	ErrTransport = errors.New("transport failure")
	// ErrDecodingResponse is returned when a 2xx body cannot be decoded.
	ErrDecodingResponse = errors.New("decoding response")
	// ErrInvalidAddress is returned by the constructor for a malformed
	// server address.
	ErrInvalidAddress = errors.New("invalid adapter http address")
)

// NetworkError describes a failed remote call.
type NetworkError struct {
	// Op names the remote operation, e.g. "PUT /records/{serverId}".
	Op string
	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int
	// Transient is true when the call may succeed if retried.
	Transient bool
	Err       error
}

func (e *NetworkError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: http %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StaleTokenError is returned by Update on a 409: the server holds a newer
// state than the version token in the request.
type StaleTokenError struct {
	ServerID string
	Current  models.StaleRecordResponse
}

func (e *StaleTokenError) Error() string {
	return fmt.Sprintf("record %s: %v (server updated at %s)",
		e.ServerID, ErrStaleToken, e.Current.CurrentUpdatedAt.Format(time.RFC3339Nano))
}

func (e *StaleTokenError) Unwrap() []error {
	return []error{ErrStaleToken, ErrConflict}
}

// IsTransient reports whether err is a [*NetworkError] worth retrying.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Transient
	}
	return false
}

// StatusCode extracts the HTTP status from err, or zero.
func StatusCode(err error) int {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.StatusCode
	}
	return 0
}

func transientStatus(code int) bool {
	return code >= http.StatusInternalServerError ||
		code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests
}
