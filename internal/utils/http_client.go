package utils

import (
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-sync-core/internal/logger"
)

// HTTPClient is a wrapper around the resty.Client HTTP client.
// It embeds *resty.Client to expose all of its methods directly and routes
// resty's own diagnostics into the application logger.
//
// Example usage:
//
//	client := utils.NewHTTPClient(log)
//	resp, err := client.R().Get("https://example.com")
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient creates a new HTTPClient with an independent resty.Client.
// A nil log keeps resty's default logger.
func NewHTTPClient(log *logger.Logger) *HTTPClient {
	c := resty.New()
	if log != nil {
		c.SetLogger(restyLogger{log: log})
	}
	return &HTTPClient{Client: c}
}

// restyLogger adapts *logger.Logger to resty.Logger.
type restyLogger struct {
	log *logger.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.log.Error().Str("func", "resty").Msg(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.log.Warn().Str("func", "resty").Msg(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.log.Debug().Str("func", "resty").Msg(fmt.Sprintf(format, v...))
}
