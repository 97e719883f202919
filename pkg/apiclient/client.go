package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// NetworkError is the envelope error for requests that never got a response
	NetworkError = "network error"
	// ParseError is the envelope error for unreadable response bodies
	ParseError = "Failed to parse response"

	defaultTimeout = 15 * time.Second
)

// TokenSource supplies the bearer token for each request
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Config holds the adapter settings
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a JSON-first HTTP adapter for the blok REST API.
// It never returns Go errors: every call resolves to a *Response.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        zerolog.Logger
}

// New creates a new Client
func New(cfg Config, tokens TokenSource, log zerolog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		log:        log,
	}
}

// BaseURL returns the configured API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string) *Response {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) *Response {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) *Response {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) Patch(ctx context.Context, path string, body any) *Response {
	return c.do(ctx, http.MethodPatch, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) *Response {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// UploadFile posts a multipart form with a single file part.
// Content-Type comes from the multipart writer so the boundary is included.
func (c *Client) UploadFile(ctx context.Context, path, field, filename string, content io.Reader) *Response {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return &Response{Error: ParseError}
	}
	if _, err := io.Copy(part, content); err != nil {
		return &Response{Error: ParseError}
	}
	if err := mw.Close(); err != nil {
		return &Response{Error: ParseError}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return &Response{Error: NetworkError}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	return c.send(req, path)
}

func (c *Client) do(ctx context.Context, method, path string, body any) *Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("failed to encode request body")
			return &Response{Error: ParseError}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Response{Error: NetworkError}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	c.authorize(req)

	return c.send(req, path)
}

func (c *Client) authorize(req *http.Request) {
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) send(req *http.Request, path string) *Response {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", req.Method).Str("path", path).Msg("request failed")
		observe(req.Method, path, 0, time.Since(start))
		return &Response{Error: NetworkError}
	}
	defer resp.Body.Close()

	out := handleResponse(resp)
	observe(req.Method, path, out.Status, time.Since(start))
	if out.Error != "" {
		c.log.Debug().Str("method", req.Method).Str("path", path).Int("status", out.Status).Str("error", out.Error).Msg("request returned error")
	}
	return out
}

func handleResponse(resp *http.Response) *Response {
	status := resp.StatusCode
	ok := status >= 200 && status < 300

	if status == http.StatusNoContent {
		return &Response{Status: status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Response{Status: status, Error: ParseError}
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") && json.Valid(raw) {
		if !ok {
			return &Response{Status: status, Body: raw, IsJSON: true, Error: errorMessage(raw, status)}
		}
		return &Response{Status: status, Body: raw, IsJSON: true}
	}

	// text fallback
	if !ok {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = httpErrorText(status)
		}
		return &Response{Status: status, Body: raw, Error: msg}
	}
	return &Response{Status: status, Body: raw}
}

func errorMessage(raw []byte, status int) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		var text string
		if len(payload.Error) > 0 && json.Unmarshal(payload.Error, &text) == nil && text != "" {
			return text
		}
		var nested struct {
			Message string `json:"message"`
		}
		if len(payload.Error) > 0 && json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return httpErrorText(status)
}

func httpErrorText(status int) string {
	return fmt.Sprintf("HTTP Error: %d", status)
}

// WithQuery appends encoded query parameters to path
func WithQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
