// Package transport sends encoded envelopes to the control plane.
//
// One call is one HTTP POST to a fixed endpoint. The transport knows nothing
// about the document it carries; it returns the raw response body or a
// *protocol.TransportError.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"one-rpc/codec"
	"one-rpc/protocol"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 32 << 20
)

// Transport carries one envelope and returns the raw response.
type Transport interface {
	Send(ctx context.Context, envelope []byte) ([]byte, error)
}

// Func adapts a plain function to Transport. Tests use it as a stub.
type Func func(ctx context.Context, envelope []byte) ([]byte, error)

func (f Func) Send(ctx context.Context, envelope []byte) ([]byte, error) {
	return f(ctx, envelope)
}

// HTTPTransport posts envelopes to a single endpoint.
type HTTPTransport struct {
	endpoint     string
	contentType  string
	client       *http.Client
	maxBodyBytes int64
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithHTTPClient replaces the default client. Its Timeout is left as is.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) { t.client = c }
}

// WithTimeout bounds a whole round trip, connect and read included.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.client.Timeout = d
		}
	}
}

// WithContentType overrides the Content-Type header.
func WithContentType(ct string) Option {
	return func(t *HTTPTransport) {
		if ct != "" {
			t.contentType = ct
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxBodyBytes = n
		}
	}
}

func NewHTTPTransport(endpoint string, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		endpoint:     endpoint,
		contentType:  codec.ContentTypeXML,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) Endpoint() string { return t.endpoint }

// Send performs the POST. No retries happen here.
func (t *HTTPTransport) Send(ctx context.Context, envelope []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, t.fail(0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", t.contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, t.fail(resp.StatusCode, fmt.Errorf("unexpected status %q", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodyBytes+1))
	if err != nil {
		return nil, t.fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > t.maxBodyBytes {
		return nil, t.fail(resp.StatusCode, fmt.Errorf("response body exceeds %d bytes", t.maxBodyBytes))
	}
	return body, nil
}

func (t *HTTPTransport) fail(status int, err error) error {
	return &protocol.TransportError{Endpoint: t.endpoint, StatusCode: status, Err: err}
}
