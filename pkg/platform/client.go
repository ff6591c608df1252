package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type HTTPClient struct {
	Client  *http.Client
	Retries int
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewHTTPClient(retries int, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		Client: &http.Client{
			Timeout: timeout,
		},
		Retries: retries,
		Timeout: timeout,
		Logger:  slog.Default(),
	}
}

// Get fetches a URL and returns the response body. Server errors (5xx) are
// retried with exponential backoff; client errors (4xx) are returned as-is.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	var lastErr error

	for i := 0; i <= c.Retries; i++ {
		req, rErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if rErr != nil {
			return nil, 0, rErr
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return nil, resp.StatusCode, readErr
			}
			return body, resp.StatusCode, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			resp.Body.Close()
		} else {
			lastErr = err
		}

		if i < c.Retries {
			c.Logger.Warn("HTTP request failed, retrying", "url", url, "attempt", i+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(time.Duration(1<<i) * 200 * time.Millisecond): // Exponential backoff
			}
		}
	}

	return nil, 0, fmt.Errorf("request failed after %d retries: %w", c.Retries, lastErr)
}

// GetText fetches a URL and returns the body as a string, treating any
// non-2xx status as an error.
func (c *HTTPClient) GetText(ctx context.Context, url string) (string, error) {
	body, status, err := c.Get(ctx, url, nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("unexpected status %d for %s", status, url)
	}
	return string(body), nil
}
