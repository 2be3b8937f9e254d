package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/influmap/influmap/pkg/telemetry"
)

// Doer abstracts the HTTP client for testing
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes a single call to a platform data endpoint
type Request struct {
	URL     string
	Headers map[string]string
	Query   url.Values
}

// RetryPolicy controls retry behavior for transient network failures.
// Delay is 2^attempt seconds (2s, 4s, 8s for the default three retries).
type RetryPolicy struct {
	MaxRetries int
	Sleep      func(ctx context.Context, d time.Duration) error
}

// DefaultSleep waits for the given duration or until the context is done
func DefaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client issues HTTP calls to platform data endpoints with a per-request
// timeout and bounded exponential-backoff retry on transient failures. It
// never mutates persisted state.
type Client struct {
	http    Doer
	timeout time.Duration
	retry   RetryPolicy
	logger  *zap.Logger
}

// NewClient creates a transport client
func NewClient(timeout time.Duration, maxRetries int, logger *zap.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		retry: RetryPolicy{
			MaxRetries: maxRetries,
			Sleep:      DefaultSleep,
		},
		logger: logger,
	}
}

// Fetch performs a GET request and returns the raw body and HTTP status.
// Transient network failures are retried up to the configured maximum; after
// exhausting retries the last error is surfaced tagged as such. Non-2xx
// responses become typed API errors and are not retried here.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "platform.fetch")
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxRetries+1; attempt++ {
		body, status, err := c.do(ctx, req)
		if err == nil {
			if status < 200 || status > 299 {
				return nil, status, NewAPIError(status, string(body))
			}
			return body, status, nil
		}

		if !isTransient(err) {
			return nil, 0, err
		}
		lastErr = err

		if attempt <= c.retry.MaxRetries {
			delay := time.Duration(1<<attempt) * time.Second
			c.logger.Warn("Transient fetch failure, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.retry.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(err))
			if serr := c.retry.Sleep(ctx, delay); serr != nil {
				return nil, 0, serr
			}
		}
	}

	if isTimeout(lastErr) {
		lastErr = &TimeoutError{Err: lastErr}
	}
	return nil, 0, fmt.Errorf("all %d attempts failed: %w", c.retry.MaxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, req Request) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := req.URL
	if len(req.Query) > 0 {
		target = target + "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// isTransient reports whether the error is a classifiable transient network
// failure: connection refused, host unreachable, DNS failure, or a timeout.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
