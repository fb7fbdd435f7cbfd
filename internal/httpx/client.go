// Package httpx provides a small HTTP client and server used by the
// sidecar's own admin surface (internal/bootstrap/admin.go) — not the
// data-plane traffic the proxy forwards, which goes through
// internal/proxy instead.
package httpx

import (
	"io"
	"net/http"
	"net/url"
)

// Client is an HTTP client that prepends a base URL to all request paths.
type Client struct {
	// BaseURL is prepended to all request paths (e.g. "http://127.0.0.1:8080").
	// Must not have a trailing slash.
	BaseURL string

	// HTTP is the underlying http.Client. If nil, http.DefaultClient is used.
	HTTP *http.Client
}

// New creates an HTTP client for the given host:port address.
func New(addr string) *Client {
	return &Client{BaseURL: "http://" + addr}
}

// NewClient creates an HTTP client for the given base URL string.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Get sends a GET request to BaseURL + path.
func (c *Client) Get(path string) (*http.Response, error) {
	return c.httpClient().Get(c.BaseURL + path)
}

// Head sends a HEAD request to BaseURL + path.
func (c *Client) Head(path string) (*http.Response, error) {
	return c.httpClient().Head(c.BaseURL + path)
}

// Post sends a POST request to BaseURL + path.
func (c *Client) Post(path, contentType string, body io.Reader) (*http.Response, error) {
	return c.httpClient().Post(c.BaseURL+path, contentType, body)
}

// Do sends an HTTP request. If the request URL has no host (i.e. is a
// relative path like "/orders/1"), it is resolved against BaseURL.
// Absolute URLs are sent as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.URL.Host == "" {
		base, err := url.Parse(c.BaseURL)
		if err != nil {
			return nil, err
		}
		req.URL = base.ResolveReference(req.URL)
	}
	return c.httpClient().Do(req)
}
