// Package webdav implements the remote.Transport contract on top of a
// plain WebDAV endpoint with basic authentication.
package webdav

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidemark/tidemark/internal/remote"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	base     string
	username string
	password string
	http     *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client rooted at baseURL. The base is normalized to end
// with a single slash so resource paths join cleanly.
func New(baseURL, username, password string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, err
	}
	c := &Client{
		base:     strings.TrimRight(baseURL, "/") + "/",
		username: username,
		password: password,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.get(ctx, path, true)
}

func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	return c.get(ctx, path, false)
}

func (c *Client) Put(ctx context.Context, path string, body []byte) error {
	return c.put(ctx, path, body, true)
}

func (c *Client) PutRaw(ctx context.Context, path string, body []byte) error {
	return c.put(ctx, path, body, false)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := c.request(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode >= 400 {
		return &remote.StatusError{Code: resp.StatusCode, Op: "delete", Path: path}
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	req, err := c.request(ctx, http.MethodHead, path, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		return false, &remote.StatusError{Code: resp.StatusCode, Op: "head", Path: path}
	}
	return true, nil
}

func (c *Client) get(ctx context.Context, path string, decorated bool) ([]byte, error) {
	req, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if decorated {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode >= 400 {
		return nil, &remote.StatusError{Code: resp.StatusCode, Op: "get", Path: path}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) put(ctx context.Context, path string, body []byte, decorated bool) error {
	req, err := c.request(ctx, http.MethodPut, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if decorated {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Overwrite", "T")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode >= 400 {
		return &remote.StatusError{Code: resp.StatusCode, Op: "put", Path: path}
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// drain finishes the body so the transport can reuse the connection.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
}
