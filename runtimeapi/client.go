// Package runtimeapi speaks the control-plane protocol: long-poll for the
// next invocation, then report its response or error.
package runtimeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	*Options
}

func NewClient(opts ...Option) *Client {
	return &Client{
		Options: NewOptions(opts...),
	}
}

type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Next blocks until the control plane hands out an invocation or ctx is done.
func (c *Client) Next(ctx context.Context) (*Invocation, error) {
	rsp, err := c.do(ctx, http.MethodGet, PathNext, nil, nil, 0)
	if err != nil {
		return nil, &ProtocolError{Op: "next", Err: err}
	}
	if rsp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{Op: "next", StatusCode: rsp.StatusCode, Body: string(rsp.Body)}
	}
	return &Invocation{Header: rsp.Header, Body: rsp.Body}, nil
}

func (c *Client) PostResponse(ctx context.Context, requestID string, body []byte) error {
	return c.post(ctx, "response", ResponsePath(requestID), body, nil)
}

func (c *Client) PostError(ctx context.Context, requestID string, body *ErrorBody) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("runtimeapi: marshal error body: %w", err)
	}
	return c.post(ctx, "error", ErrorPath(requestID), b, map[string]string{
		HeaderFunctionErrorType: ErrorTypeUnhandled,
	})
}

func (c *Client) PostInitError(ctx context.Context, body *ErrorBody) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("runtimeapi: marshal error body: %w", err)
	}
	return c.post(ctx, "init error", PathInitError, b, map[string]string{
		HeaderFunctionErrorType: ErrorTypeUnhandled,
	})
}

func (c *Client) post(ctx context.Context, op, path string, body []byte, headers map[string]string) error {
	rsp, err := c.do(ctx, http.MethodPost, path, body, headers, c.PostTimeout)
	if err != nil {
		return &ProtocolError{Op: op, Err: err}
	}
	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return &ProtocolError{Op: op, StatusCode: rsp.StatusCode, Body: string(rsp.Body)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers map[string]string, timeout time.Duration) (*response, error) {
	url := c.BaseURL + path

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("request timeout")
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
