package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// DefaultTimeout bounds one POST, measured from admission.
const DefaultTimeout = 5 * time.Second

// maxResponseBytes caps how much of a registry reply is read.
const maxResponseBytes = 4 << 20

// Response is the raw registry reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport posts an encoded document to the registry.
type Transport interface {
	Post(ctx context.Context, url string, body []byte, token string) (*Response, error)
}

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
}

// Post sends body as JSON with a bearer token. Failures are tagged
// network_timeout, network_error or cancelled.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte, token string) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	timeout := DefaultTimeout
	if t != nil && t.Timeout > 0 {
		timeout = t.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewError(core.KindNetworkError, "post", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if t != nil && t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := t.client().Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err, timeout)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, err, timeout)
	}
	return &Response{StatusCode: resp.StatusCode, Body: payload}, nil
}

func (t *HTTPTransport) client() *http.Client {
	if t != nil && t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

// classifyTransportError separates caller cancellation from the request's
// own deadline and from other I/O failures.
func classifyTransportError(parent context.Context, err error, timeout time.Duration) error {
	if parent.Err() != nil {
		return core.NewError(core.KindCancelled, "post", fmt.Errorf("%w: %w", parent.Err(), err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.Errorf(core.KindNetworkTimeout, "post", "no response within %s: %w", timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.Errorf(core.KindNetworkTimeout, "post", "no response within %s: %w", timeout, err)
	}
	return core.NewError(core.KindNetworkError, "post", err)
}
