// Package transport performs the certificate-authenticated HTTPS round trip
// to the SSG API.
//
// Every call builds its own http.Client carrying the caller's client
// certificate, so no TLS state or credentials are shared between calls.
// There are no retries: a failed round trip is reported immediately as a
// *errors.TransportError.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// ProductionBaseURL is the production SSG API host.
	ProductionBaseURL = "https://api.ssg-wsg.sg"

	// TestBaseURL is the UAT SSG API host.
	TestBaseURL = "https://uat-api.ssg-wsg.sg"

	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 32 << 20
)

// Content types used on the wire.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Config tunes the client. Zero values fall back to the defaults.
type Config struct {
	// Timeout bounds the whole round trip including reading the body.
	Timeout time.Duration

	// ConnectTimeout bounds dialing and the TLS handshake.
	ConnectTimeout time.Duration

	// ProductionURL and TestURL override the base URLs.
	ProductionURL string
	TestURL       string

	// RootCAs overrides the system trust store for the server certificate.
	RootCAs *x509.CertPool

	UserAgent string
}

// Request is a single call against the API. A nil Body sends no body at all.
type Request struct {
	Method      string
	Path        string
	Query       map[string]string
	Body        []byte
	ContentType string
}

// Response is the parsed JSON envelope returned by the API.
type Response struct {
	StatusCode int
	Payload    map[string]json.RawMessage
}

// ResultCode returns the envelope's result field. ok is false when the field
// is missing or is not an integer.
func (r *Response) ResultCode() (code int, ok bool) {
	raw, exists := r.Payload["result"]
	if !exists {
		return 0, false
	}
	if err := json.Unmarshal(raw, &code); err != nil {
		return 0, false
	}
	return code, true
}

// Body returns the envelope's body field, or nil when there is none.
func (r *Response) Body() json.RawMessage {
	return r.Payload["body"]
}

// Client sends requests to the SSG API.
type Client struct {
	cfg Config
}

// New creates a client, filling in defaults for zero config values.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ProductionURL == "" {
		cfg.ProductionURL = ProductionBaseURL
	}
	if cfg.TestURL == "" {
		cfg.TestURL = TestBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sfcpay"
	}
	return &Client{cfg: cfg}
}

// BaseURL returns the host the bundle's environment flag routes to.
func (c *Client) BaseURL(useTestEnvironment bool) string {
	if useTestEnvironment {
		return c.cfg.TestURL
	}
	return c.cfg.ProductionURL
}

// Send performs one round trip presenting the bundle's client certificate.
func (c *Client) Send(ctx context.Context, bundle credentials.Bundle, req Request) (*Response, error) {
	endpoint, err := c.buildURL(bundle.UseTestEnvironment, req.Path, req.Query)
	if err != nil {
		return nil, &kerrors.TransportError{Method: req.Method, URL: req.Path, Err: err}
	}

	cert, err := bundle.TLSCertificate()
	if err != nil {
		return nil, &kerrors.TransportError{Method: req.Method, URL: endpoint, Err: err}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, &kerrors.TransportError{Method: req.Method, URL: endpoint, Err: err}
	}
	httpReq.Header.Set("Accept", ContentTypeJSON)
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if req.Body != nil {
		contentType := req.ContentType
		if contentType == "" {
			contentType = ContentTypeJSON
		}
		httpReq.Header.Set("Content-Type", contentType)
	}

	client := c.httpClient(cert)
	defer client.CloseIdleConnections()

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &kerrors.TransportError{Method: req.Method, URL: endpoint, Timeout: isTimeout(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &kerrors.TransportError{
			Method:     req.Method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Timeout:    isTimeout(ctx, err),
			Err:        fmt.Errorf("reading response body: %w", err),
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &kerrors.TransportError{
			Method:     req.Method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &payload); err != nil || payload == nil {
		if err == nil {
			err = errors.New("response is not a JSON object")
		}
		return nil, &kerrors.TransportError{
			Method:     req.Method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}

	return &Response{StatusCode: resp.StatusCode, Payload: payload}, nil
}

func (c *Client) buildURL(useTestEnvironment bool, path string, query map[string]string) (string, error) {
	base, err := url.Parse(c.BaseURL(useTestEnvironment))
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}
	u := base.ResolveReference(ref)

	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) httpClient(cert tls.Certificate) *http.Client {
	dialer := &net.Dialer{Timeout: c.cfg.ConnectTimeout}

	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: c.cfg.ConnectTimeout,
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      c.cfg.RootCAs,
			MinVersion:   tls.VersionTLS12,
		},
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Timeout:   c.cfg.Timeout,
		Transport: otelhttp.NewTransport(base),
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
