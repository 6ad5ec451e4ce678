package monitoring

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
)

// drainLimit caps how much of a response body is read to allow keep-alive reuse
const drainLimit = 4 << 10

type httpCheck struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  logging.Logger
}

// NewEndpointCheck issues a GET against url. Status 100-499 is healthy;
// 5xx and transport failures are not. A nil client gets a default one
// bounded by timeout.
func NewEndpointCheck(url string, timeout time.Duration, client *http.Client, logger logging.Logger) HealthCheck {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &httpCheck{
		url:     url,
		timeout: timeout,
		client:  client,
		logger:  logger,
	}
}

func (h *httpCheck) Name() string {
	return "endpoint"
}

func (h *httpCheck) Type() HealthCheckType {
	return HealthCheckTypeHTTP
}

func (h *httpCheck) Check(ctx context.Context) Result {
	h.logger.Debugf("Performing HTTP health check, url: %s, timeout: %v", h.url, h.timeout)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return requestFailed(h.logger, h.url, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return requestFailed(h.logger, h.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	if resp.StatusCode >= 500 && resp.StatusCode < 600 {
		return Unhealthy(CodeHTTPStatus, "HTTP %d from %s", resp.StatusCode, h.url)
	}
	return Healthy("HTTP %d from %s", resp.StatusCode, h.url)
}

// requestFailed turns a transport failure into a request_error result
func requestFailed(logger logging.Logger, target string, err error) Result {
	reqErr := errors.NewRequestError(fmt.Sprintf("health request to %s failed", target), err)
	logger.Warnf("Health check request failed: %v", reqErr)
	return Failed(CodeRequestError, reqErr, "request error: %v", err)
}
