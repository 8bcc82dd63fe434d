package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPClient is the base for HTTP provider adapters. It owns a pooled
// http.Client, bounds every call with the configured timeout, and classifies
// failures into the transport error taxonomy. Concrete adapters embed it.
//
// There is no in-place retry here: transport failures are terminal for the
// call, and the fallback chain (or the adapter's own budget-increase retry)
// decides what happens next.
type HTTPClient struct {
	config ProviderConfig
	client *http.Client
}

// NewHTTPClient creates the base client with connection pooling.
func NewHTTPClient(config ProviderConfig) *HTTPClient {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// Name returns the provider's configured name.
func (c *HTTPClient) Name() string {
	return c.config.Name
}

// Config returns the provider's configuration.
func (c *HTTPClient) Config() ProviderConfig {
	return c.config
}

// PostJSON marshals reqBody, performs a POST, and returns the raw response
// body on any 2xx status. Every other outcome becomes a *TransportError:
// network failures and expired deadlines get the timeout variant, non-2xx
// statuses embed the provider's error body.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, reqBody interface{}, headers map[string]string) ([]byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	slog.Debug("sending request to provider",
		"provider", c.config.Name,
		"url", url,
		"timeout", c.config.Timeout,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		// Caller cancellation is surfaced as-is so the orchestrator can
		// treat it as final rather than a provider failure.
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &TransportError{
					Provider:     c.config.Name,
					Timeout:      true,
					TimeoutAfter: c.config.Timeout,
					Cause:        err,
				}
			}
			return nil, ctx.Err()
		}
		if isTimeout(err) {
			return nil, &TransportError{
				Provider:     c.config.Name,
				Timeout:      true,
				TimeoutAfter: c.config.Timeout,
				Cause:        err,
			}
		}
		return nil, &TransportError{
			Provider: c.config.Name,
			Message:  err.Error(),
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{
			Provider: c.config.Name,
			Message:  fmt.Sprintf("failed to read response body: %v", err),
			Cause:    err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Provider:   c.config.Name,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return body, nil
}

// Close releases idle connections. The adapter must not be used afterwards.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// isTimeout reports whether err is a client-side timeout.
func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
