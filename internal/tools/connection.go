// Package tools holds the pieces registrytool uses to talk to a running server.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	headerRequestedWith = "X-Requested-With"
	requestedWith       = "RegistryTool"
	defaultPort         = "443"
	maxErrorBody        = 64 << 10
)

var htmlTitle = regexp.MustCompile(`(?is)<title>(.*?)</title>`)

// Connection sends commands to the registry server as one registrar.
type Connection struct {
	server string
	token  string
	client *http.Client
}

type ConnectionOption func(*Connection)

// WithHTTPClient replaces the default client. Redirects are still refused.
func WithHTTPClient(client *http.Client) ConnectionOption {
	return func(c *Connection) {
		c.client = client
	}
}

// NewConnection targets server, given as HOST[:PORT], authenticating with a
// registrar session token.
func NewConnection(server, token string, opts ...ConnectionOption) (*Connection, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return nil, fmt.Errorf("server is required")
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, defaultPort)
	}
	c := &Connection{
		server: server,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	noRedirect := *c.client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.client = &noRedirect
	return c, nil
}

// ServerURL is the base URL; plain HTTP is only used for localhost.
func (c *Connection) ServerURL() string {
	if c.isLocalhost() {
		return "http://" + c.server
	}
	return "https://" + c.server
}

func (c *Connection) isLocalhost() bool {
	host, _, _ := net.SplitHostPort(c.server)
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Send POSTs payload to endpoint with params as the query string and returns
// the body. Any status other than 200 is an error naming the URL and status.
func (c *Connection) Send(ctx context.Context, endpoint string, params url.Values, contentType string, payload []byte) (string, error) {
	target := c.ServerURL() + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(headerRequestedWith, requestedWith)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := errorDetail(body)
		if detail != "" {
			detail = ": " + detail
		}
		return "", &StatusError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       body,
			msg:        fmt.Sprintf("Error from %s: %d %s%s", target, resp.StatusCode, http.StatusText(resp.StatusCode), detail),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response from %s: %w", target, err)
	}
	return string(body), nil
}

// SendJSON marshals in, posts it, and decodes the 200 response into out.
func (c *Connection) SendJSON(ctx context.Context, endpoint string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	body, err := c.Send(ctx, endpoint, nil, "application/json; charset=utf-8", payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is returned by Send for non-200 responses. Body holds at most
// the first 64KiB of the response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
	msg        string
}

func (e *StatusError) Error() string { return e.msg }

// AsStatusError unwraps a StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	ok := errors.As(err, &se)
	return se, ok
}

// errorDetail pulls a human message out of an error body: the EPP result
// message and reason for JSON, the page title for HTML.
func errorDetail(body []byte) string {
	var env struct {
		Result struct {
			Code   int    `json:"code"`
			Msg    string `json:"msg"`
			Reason string `json:"reason"`
		} `json:"result"`
	}
	if json.Unmarshal(body, &env) == nil && env.Result.Msg != "" {
		detail := fmt.Sprintf("%d %s", env.Result.Code, env.Result.Msg)
		if env.Result.Reason != "" {
			detail += " (" + env.Result.Reason + ")"
		}
		return detail
	}
	if m := htmlTitle.FindSubmatch(body); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}
