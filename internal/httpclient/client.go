// Package httpclient defines the outbound HTTP capability the multiplexer
// depends on, and its production implementation backed by a pooled
// net/http transport.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Client issues a single outbound HTTP request. Implementations must be
// safe for concurrent use: one client instance is shared by every
// in-flight batch and holds the connection pool.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientFunc adapts a function to the Client interface. Tests use it to
// substitute a deterministic double for the real network client.
type ClientFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f ClientFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Options tunes the pooled client's transport.
type Options struct {
	DialTimeout        time.Duration
	TCPKeepalive       time.Duration
	IdleConnTimeout    time.Duration
	MaxIdleConns       int
	InsecureSkipVerify bool
	HTTP2              bool
}

// PooledClient is the production Client. It owns a connection pool and
// is cheap to share; per-request deadlines arrive via the request context.
type PooledClient struct {
	inner *http.Client
}

// New creates a PooledClient from the given options.
func New(opts Options) *PooledClient {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}, // #nosec G402 -- operator opt-in for internal upstreams
		MaxIdleConns:    opts.MaxIdleConns,
		MaxIdleConnsPerHost: opts.MaxIdleConns,
		IdleConnTimeout: opts.IdleConnTimeout,
		ForceAttemptHTTP2: opts.HTTP2,
		DialContext: (&net.Dialer{
			Timeout:   opts.DialTimeout,
			KeepAlive: opts.TCPKeepalive,
		}).DialContext,
	}

	if opts.HTTP2 {
		// HTTP/2 negotiation via ALPN with automatic fallback to HTTP/1.1
		_ = http2.ConfigureTransport(transport)
	}

	return &PooledClient{
		inner: &http.Client{
			Transport: transport,
			// Redirects surface to the caller as 3xx successes; the
			// gateway does not chase them on the caller's behalf.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Do issues the request. No client-level timeout is set: the shared
// batch deadline governs every leg through the request context.
func (c *PooledClient) Do(req *http.Request) (*http.Response, error) {
	return c.inner.Do(req)
}

// CloseIdleConnections drops pooled connections, for a clean shutdown.
func (c *PooledClient) CloseIdleConnections() {
	c.inner.CloseIdleConnections()
}
