package utils

import (
	"net/http"
	"time"

	"quotedesk/pkg/logger"

	"github.com/sirupsen/logrus"
)

// NewHTTPClient returns a client for JSON calls to the quoting service.
// timeout 0 disables the client-side deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second

	return &http.Client{
		Timeout:   timeout,
		Transport: NewLoggingTransport(transport),
	}
}

// LoggingTransport logs each request at debug level. Bodies are never
// logged: chat text may carry customer data.
type LoggingTransport struct {
	base http.RoundTripper
}

func NewLoggingTransport(base http.RoundTripper) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &LoggingTransport{base: base}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	entry := logger.WithFields(logrus.Fields{
		"method":   req.Method,
		"url":      req.URL.String(),
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return nil, err
	}
	entry.WithField("status", resp.StatusCode).Debug("request completed")
	return resp, nil
}
