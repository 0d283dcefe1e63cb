package rp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// Client is a high-level client for the Report Portal API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient         *http.Client
	logger             *slog.Logger
	timeout            time.Duration
	insecureSkipVerify bool
}

// New creates a new Client for the given Report Portal instance.
// The bearerToken is sent as an Authorization header on every request.
func New(baseURL, bearerToken string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("rp: baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		// Certificate checks stay off unless verify_ssl is set.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.insecureSkipVerify} //nolint:gosec
		httpClient = &http.Client{Transport: transport}
	}
	if cfg.timeout > 0 {
		c := *httpClient
		c.Timeout = cfg.timeout
		httpClient = &c
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		token:      bearerToken,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("rp: negative timeout %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification on the
// default transport. It has no effect together with WithHTTPClient.
func WithInsecureSkipVerify(skip bool) Option {
	return func(cfg *clientConfig) error {
		cfg.insecureSkipVerify = skip
		return nil
	}
}

// BaseURL returns the endpoint the client talks to, without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// do executes an HTTP request and returns the raw response. The caller owns
// the response body.
func (c *Client) do(ctx context.Context, method, url, operation string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", operation, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "API request", "operation", operation, "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", operation, err)
	}

	c.logger.DebugContext(ctx, "API response", "operation", operation, "status", resp.StatusCode)
	return resp, nil
}

// doJSON executes an HTTP request and decodes the JSON response into dst.
// If the response has an error status, it returns an *APIError; an
// undecodable success body yields ErrParse.
func (c *Client) doJSON(ctx context.Context, method, url, operation string, body io.Reader, contentType string, dst any) error {
	resp, err := c.do(ctx, method, url, operation, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := checkResponse(operation, resp)
	if err != nil {
		return err
	}
	if dst != nil {
		if err := json.Unmarshal(respBody, dst); err != nil {
			return parseError(operation, respBody, err)
		}
	}
	return nil
}

// checkResponse reads the body and converts error statuses into *APIError.
func checkResponse(operation string, resp *http.Response) ([]byte, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errRS ErrorRS
		if json.Unmarshal(respBody, &errRS) == nil && errRS.Message != "" {
			return nil, newAPIError(operation, resp.StatusCode, errRS.ErrorCode, errRS.Message)
		}
		msg := string(respBody)
		if msg == "" {
			msg = resp.Status
		}
		return nil, newAPIError(operation, resp.StatusCode, 0, msg)
	}
	return respBody, nil
}

// jsonBody marshals v for a request. A nil v produces no body.
func jsonBody(operation string, v any) (io.Reader, string, error) {
	if v == nil {
		return nil, "", nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("%s: marshal: %w", operation, err)
	}
	return bytes.NewReader(payload), "application/json", nil
}

// formPart is one part of a multipart/form-data body.
type formPart struct {
	field       string
	filename    string
	contentType string
	data        io.Reader
}

// encodeMultipart builds a multipart/form-data body from parts.
func encodeMultipart(parts ...formPart) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name=%q`, p.field)
		if p.filename != "" {
			disposition += fmt.Sprintf(`; filename=%q`, p.filename)
		}
		h.Set("Content-Disposition", disposition)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", p.field, err)
		}
		if _, err := io.Copy(pw, p.data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", p.field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
