// Package jenkins provides a client for driving a Jenkins server's
// job-orchestration API: item lifecycle management, build triggering, and
// incremental console-log retrieval for triggered builds.
package jenkins

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// Client talks to a single Jenkins server. The base URL and credentials are
// immutable after construction, so one Client is safe to share across
// concurrently used Build handles and item operations.
type Client struct {
	baseURL    string
	user       string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a Jenkins client for the given base URL. user and
// apiToken configure HTTP basic auth; leave both empty for anonymous access.
func NewClient(baseURL, user, apiToken string) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("jenkins base URL is required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	return &Client{
		baseURL:  trimmed,
		user:     user,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			// Redirects are interpreted here, not followed: a 302 from
			// doDelete or a build trigger is a success signal carrying
			// a Location header.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// BaseURL returns the normalized server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.apiToken)
	}
	return req, nil
}

// getXML issues a GET and decodes a 200 response body into dest. Any other
// status is returned as a *StatusError; transport and decode failures are
// fatal to the call.
func (c *Client) getXML(ctx context.Context, rawURL string, dest any) error {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := xml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode XML from %s: %w", rawURL, err)
	}
	return nil
}

// getText issues a GET and returns the raw body of a 200 response together
// with the response headers. The headers matter to callers of the
// progressive-console endpoint, which signals continuation through them.
func (c *Client) getText(ctx context.Context, rawURL string) (string, http.Header, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("execute request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", nil, newStatusError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read response body: %w", err)
	}
	return string(data), resp.Header, nil
}

// post issues a POST. Any 2xx status or a 302 counts as success (the server
// answers doDelete and build triggers with redirects); the response headers
// are returned so callers can read Location. Everything else becomes a
// *StatusError.
func (c *Client) post(ctx context.Context, rawURL, contentType string, body io.Reader) (http.Header, error) {
	req, err := c.newRequest(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == http.StatusFound {
		return resp.Header, nil
	}
	return nil, newStatusError(resp)
}

// newStatusError snapshots the error body into the returned error. The body
// itself is drained by the caller's deferred drainAndClose.
func newStatusError(resp *http.Response) error {
	msg := resp.Status
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil && len(data) > 0 {
		msg = strings.TrimSpace(string(data))
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

// drainAndClose consumes the remainder of a response body before closing it.
// The underlying connection is only reusable once the body is fully read;
// skipping this leaks sockets under keep-alive.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
