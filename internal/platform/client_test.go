package platform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeDoer struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	r := f.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(r.body))),
	}, nil
}

func newTestClient(doer Doer, maxRetries int) *Client {
	return &Client{
		http:    doer,
		timeout: time.Second,
		retry: RetryPolicy{
			MaxRetries: maxRetries,
			Sleep:      func(ctx context.Context, d time.Duration) error { return nil },
		},
		logger: zap.NewNop(),
	}
}

func TestFetchSuccess(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{{status: 200, body: `{"ok":true}`}}}
	client := newTestClient(doer, 3)

	body, status, err := client.Fetch(context.Background(), Request{URL: "http://example.test"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
	if doer.calls != 1 {
		t.Errorf("calls = %d, want 1", doer.calls)
	}
}

func TestFetchRetryBound(t *testing.T) {
	// A persistently failing transient error must be attempted exactly
	// MaxRetries+1 times before giving up.
	doer := &fakeDoer{responses: []fakeResponse{{err: syscall.ECONNREFUSED}}}
	client := newTestClient(doer, 3)

	_, _, err := client.Fetch(context.Background(), Request{URL: "http://example.test"})
	if err == nil {
		t.Fatal("Fetch() expected error")
	}
	if doer.calls != 4 {
		t.Errorf("calls = %d, want 4", doer.calls)
	}
	if !strings.Contains(err.Error(), "all 4 attempts failed") {
		t.Errorf("error = %q, want attempt count in message", err)
	}
}

func TestFetchRecoversAfterTransientFailure(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{
		{err: syscall.ECONNRESET},
		{status: 200, body: "recovered"},
	}}
	client := newTestClient(doer, 3)

	body, _, err := client.Fetch(context.Background(), Request{URL: "http://example.test"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("body = %q", body)
	}
	if doer.calls != 2 {
		t.Errorf("calls = %d, want 2", doer.calls)
	}
}

func TestFetchAPIErrorNotRetried(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{{status: 404, body: "not found"}}}
	client := newTestClient(doer, 3)

	_, status, err := client.Fetch(context.Background(), Request{URL: "http://example.test"})
	if status != 404 {
		t.Errorf("status = %d, want 404", status)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.Status != 404 {
		t.Errorf("APIError.Status = %d, want 404", apiErr.Status)
	}
	if doer.calls != 1 {
		t.Errorf("calls = %d, want 1 (API errors are not retried)", doer.calls)
	}
}

func TestFetchTimeoutTagged(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{{err: context.DeadlineExceeded}}}
	client := newTestClient(doer, 1)

	_, _, err := client.Fetch(context.Background(), Request{URL: "http://example.test"})
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want wrapped *TimeoutError", err)
	}
}

func TestFetchCanceledContextNotRetried(t *testing.T) {
	doer := &fakeDoer{responses: []fakeResponse{{err: context.Canceled}}}
	client := newTestClient(doer, 3)

	_, _, err := client.Fetch(context.Background(), Request{URL: "http://example.test"})
	if err == nil {
		t.Fatal("Fetch() expected error")
	}
	if doer.calls != 1 {
		t.Errorf("calls = %d, want 1 (cancellation is not transient)", doer.calls)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"host unreachable", syscall.EHOSTUNREACH, true},
		{"dns failure", &net.DNSError{Err: "no such host"}, true},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
