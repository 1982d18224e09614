// Package probe exercises a running server with litmus-style WebDAV
// compliance checks: plain resource handling, properties, copy/move,
// and locking.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client is a minimal WebDAV client for compliance checks.
type Client struct {
	base   string // e.g. http://localhost:4918
	prefix string // e.g. /dav
	hc     *http.Client
}

// NewClient builds a client for the server at base with the given prefix.
func NewClient(base, prefix string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		base:   strings.TrimSuffix(base, "/"),
		prefix: strings.TrimSuffix(prefix, "/"),
		hc:     hc,
	}
}

// Do issues one request against path under the prefix.
func (c *Client) Do(ctx context.Context, method, path, body string, headers map[string]string) (*http.Response, error) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+c.prefix+path, rd)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.hc.Do(req)
}

// Expect issues a request and verifies the status code is one of want.
// The response body is returned for further inspection.
func (c *Client) Expect(ctx context.Context, method, path, body string, headers map[string]string, want ...int) (string, http.Header, error) {
	resp, err := c.Do(ctx, method, path, body, headers)
	if err != nil {
		return "", nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}

	for _, w := range want {
		if resp.StatusCode == w {
			return string(data), resp.Header, nil
		}
	}
	return string(data), resp.Header, fmt.Errorf("%s %s: got %d, want %v", method, path, resp.StatusCode, want)
}

// Destination builds an absolute destination path under the prefix.
func (c *Client) Destination(path string) string {
	return c.prefix + path
}
