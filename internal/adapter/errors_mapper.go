package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// mapHTTPError converts a non-2xx response into a [*NetworkError] wrapping
// the matching sentinel. It returns nil for 2xx responses.
func mapHTTPError(op string, resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}

	var sentinel error
	switch {
	case code == http.StatusBadRequest:
		sentinel = ErrBadRequest
	case code == http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case code == http.StatusForbidden:
		sentinel = ErrForbidden
	case code == http.StatusNotFound:
		sentinel = ErrNotFound
	case code == http.StatusConflict:
		sentinel = ErrConflict
	case code == http.StatusTooManyRequests:
		sentinel = ErrTooManyRequests
	case code >= http.StatusInternalServerError:
		sentinel = ErrServerUnavailable
	default:
		sentinel = ErrUnexpectedStatus
	}

	return &NetworkError{
		Op:         op,
		StatusCode: code,
		Transient:  transientStatus(code),
		Err:        fmt.Errorf("%w: %s", sentinel, body),
	}
}

// mapTransportError converts an error returned by resty before any response
// was read. Cancellation of ctx is returned as is.
func mapTransportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &NetworkError{
		Op:        op,
		Transient: true,
		Err:       fmt.Errorf("%w: %w", ErrTransport, err),
	}
}
