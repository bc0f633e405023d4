// Package apiclient is the single path every call to the marketplace API
// takes. It resolves URLs, injects the bearer token, unwraps the response
// envelope and owns the session token: on login it writes it, on logout or
// any 401 it evicts it.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/edumarket/storefront/internal/metrics"
	"github.com/edumarket/storefront/internal/requestid"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultLoginPath = "/login"
	jsonContentType  = "application/json"
	maxBodyBytes     = 10 << 20
)

// TokenStore holds the session token. Implementations must not cache it
// beyond a single request.
type TokenStore interface {
	Token(ctx context.Context) string
	SetToken(ctx context.Context, token string) error
	// ClearTokens removes the access token and any refresh token.
	ClearTokens(ctx context.Context)
}

// Navigator moves the user to another page, e.g. the login page after a 401.
type Navigator interface {
	CurrentPath(ctx context.Context) string
	Navigate(ctx context.Context, path string)
}

type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	// Body is JSON-encoded. Ignored when Multipart is set.
	Body      any
	Multipart *Multipart
	Header    http.Header
	// SuppressRedirect is redirectOn401=false: a 401 still evicts the token
	// but does not navigate to the login page.
	SuppressRedirect bool
}

type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenStore
	nav       Navigator
	loginPath string
	logger    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithLoginPath(path string) Option {
	return func(c *Client) { c.loginPath = path }
}

func New(baseURL string, tokens TokenStore, nav Navigator, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		tokens:    tokens,
		nav:       nav,
		loginPath: defaultLoginPath,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "apiclient")
	return c
}

// Fetch performs req and decodes the unwrapped payload into a T.
func Fetch[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	err := c.Do(ctx, req, &out)
	return out, err
}

// Do performs req and decodes the unwrapped payload into out, which may be
// nil. Every failure is an *Error except for local encoding problems.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(req.Endpoint, req.Query)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", jsonContentType)
	httpReq.Header.Set("Content-Type", contentType)
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if token := c.tokens.Token(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	requestid.Propagate(ctx, httpReq.Header)

	label := endpointLabel(req.Endpoint)
	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		c.logger.WarnContext(ctx, "upstream unreachable", "endpoint", label, "error", err)
		return &Error{Kind: KindConnection, Message: msgConnection, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	status := strconv.Itoa(resp.StatusCode)
	metrics.UpstreamRequestDuration.WithLabelValues(label, status).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(label, status).Inc()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return c.unauthorized(ctx, req)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindConnection, Status: resp.StatusCode, Message: msgConnection, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(resp, raw)
		if apiErr.ServerError() {
			c.logger.ErrorContext(ctx, "upstream server error", "endpoint", label, "status", resp.StatusCode, "detail", apiErr.Detail)
		}
		return apiErr
	}

	return decodeSuccess(resp.StatusCode, raw, out)
}

// StartSession stores the access token issued by a successful login.
func (c *Client) StartSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("empty access token")
	}
	if err := c.tokens.SetToken(ctx, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// EndSession evicts the local tokens without calling the API.
func (c *Client) EndSession(ctx context.Context) {
	c.tokens.ClearTokens(ctx)
}

// Ping reports whether the API answers at all; any HTTP status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach api: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) unauthorized(ctx context.Context, req Request) error {
	c.tokens.ClearTokens(ctx)
	metrics.UnauthorizedTotal.Inc()

	if !req.SuppressRedirect && !strings.Contains(c.nav.CurrentPath(ctx), c.loginPath) {
		c.nav.Navigate(ctx, c.loginPath)
	}
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: msgUnauthorized}
}

func (c *Client) resolve(endpoint string, query url.Values) (string, error) {
	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if !strings.HasPrefix(endpoint, "/") {
			endpoint = "/" + endpoint
		}
		target = c.baseURL + endpoint
	}
	if len(query) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	if req.Multipart != nil {
		return bytes.NewReader(req.Multipart.body), req.Multipart.contentType, nil
	}
	if req.Body == nil {
		return nil, jsonContentType, nil
	}
	raw, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(raw), jsonContentType, nil
}

func statusError(resp *http.Response, raw []byte) *Error {
	e := &Error{Kind: KindHTTP, Status: resp.StatusCode}

	var body struct {
		Code    int         `json:"code"`
		Message flexMessage `json:"message"`
	}
	parsed := json.Unmarshal(raw, &body) == nil

	switch {
	case resp.StatusCode >= 500:
		e.Message = msgSystem
		if parsed && body.Message != "" {
			e.Detail = string(body.Message)
		} else {
			e.Detail = strings.TrimSpace(string(raw))
		}
	case parsed && body.Message != "":
		e.Message = string(body.Message)
		e.Code = body.Code
	case parsed:
		e.Message = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
	default:
		e.Message = statusText(resp)
	}
	return e
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = fmt.Sprintf("Request failed with status %d", resp.StatusCode)
	}
	return text
}

func decodeSuccess(status int, raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	env, ok, err := ParseEnvelope(raw)
	if errors.Is(err, errNotJSON) {
		// Unparseable 2xx bodies count as an empty payload.
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		return decodeInto(raw, out)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = msgOperationFailed
		}
		return &Error{Kind: KindEnvelope, Status: status, Code: env.Code, Message: msg}
	}
	return decodeInto(env.Data, out)
}

func decodeInto(raw json.RawMessage, out any) error {
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func endpointLabel(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Path != "" {
		return u.Path
	}
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
