package httpx

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestClient exposes the resty settings callers may tweak without importing resty.
type RestClient interface {
	SetHeader(key, value string) RestClient
	SetHeaders(headers map[string]string) RestClient
	SetTimeout(d time.Duration) RestClient
}

type restyAdapter struct{ c *resty.Client }

func (r restyAdapter) SetHeader(key, value string) RestClient {
	r.c.SetHeader(key, value)
	return r
}

func (r restyAdapter) SetHeaders(headers map[string]string) RestClient {
	r.c.SetHeaders(headers)
	return r
}

func (r restyAdapter) SetTimeout(d time.Duration) RestClient {
	r.c.SetTimeout(d)
	return r
}

type ClientOptions struct {
	BaseURL     string
	Timeout     time.Duration
	Headers     map[string]string
	TokenHeader string
	Token       string
	RestyConfig func(RestClient)
}

type ClientOption func(*ClientOptions)

func defaultClientOptions() ClientOptions {
	return ClientOptions{Timeout: 10 * time.Second, Headers: map[string]string{"Content-Type": "application/json"}}
}

func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) {
		if url != "" {
			o.BaseURL = url
		}
	}
}

func WithClientTimeout(d time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithHeaders adds static headers sent with every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithAuthToken makes the client carry token in header and adopt any
// replacement token the server embeds in the same header, as it does
// after a renewal.
func WithAuthToken(header, token string) ClientOption {
	return func(o *ClientOptions) {
		if header = strings.TrimSpace(header); header != "" {
			o.TokenHeader = header
			o.Token = strings.TrimSpace(token)
		}
	}
}

func WithRestyConfig(fn func(RestClient)) ClientOption {
	return func(o *ClientOptions) {
		o.RestyConfig = fn
	}
}

// ResponseError reports a non-2xx response.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Client is a resty-backed JSON client. Non-2xx responses are returned
// together with a *ResponseError.
type Client struct {
	resty       *resty.Client
	tokenHeader string

	mu    sync.RWMutex
	token string
}

func NewClient(opts ...ClientOption) *Client {
	cfg := defaultClientOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeaders(cfg.Headers)
	if cfg.RestyConfig != nil {
		cfg.RestyConfig(restyAdapter{rc})
	}

	c := &Client{resty: rc, tokenHeader: cfg.TokenHeader, token: cfg.Token}
	if c.tokenHeader != "" {
		rc.OnBeforeRequest(c.attachToken)
		rc.OnAfterResponse(c.adoptToken)
	}
	return c
}

// Token returns the token the client currently sends.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the token; an empty token stops sending the header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

func (c *Client) attachToken(_ *resty.Client, r *resty.Request) error {
	if r.Header.Get(c.tokenHeader) != "" {
		return nil
	}
	if token := c.Token(); token != "" {
		r.SetHeader(c.tokenHeader, token)
	}
	return nil
}

func (c *Client) adoptToken(_ *resty.Client, resp *resty.Response) error {
	if token := resp.Header().Get(c.tokenHeader); token != "" {
		c.SetToken(token)
	}
	return nil
}

type RequestOption func(*resty.Request)

func WithRequestHeaders(headers map[string]string) RequestOption {
	return func(r *resty.Request) {
		if len(headers) > 0 {
			r.SetHeaders(headers)
		}
	}
}

func WithQuery(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		if len(params) > 0 {
			r.SetQueryParams(params)
		}
	}
}

// WithBearer sets an Authorization: Bearer header.
func WithBearer(token string) RequestOption {
	return WithToken("Authorization", prefixed("Bearer ", token))
}

// WithToken sends token in header for a single request.
func WithToken(header, token string) RequestOption {
	return func(r *resty.Request) {
		header = strings.TrimSpace(header)
		token = strings.TrimSpace(token)
		if header != "" && token != "" {
			r.SetHeader(header, token)
		}
	}
}

func prefixed(prefix, token string) string {
	if token = strings.TrimSpace(token); token == "" {
		return ""
	}
	return prefix + token
}

func (c *Client) Get(ctx context.Context, path string, result any, opts ...RequestOption) (*resty.Response, error) {
	return c.do(ctx, resty.MethodGet, path, nil, result, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, result any, opts ...RequestOption) (*resty.Response, error) {
	return c.do(ctx, resty.MethodPost, path, body, result, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, result any, opts ...RequestOption) (*resty.Response, error) {
	return c.do(ctx, resty.MethodPut, path, body, result, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, result any, opts ...RequestOption) (*resty.Response, error) {
	return c.do(ctx, resty.MethodDelete, path, nil, result, opts...)
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any, opts ...RequestOption) (*resty.Response, error) {
	req := c.resty.R().SetContext(ctx)
	for _, opt := range opts {
		if opt != nil {
			opt(req)
		}
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return resp, err
	}
	if resp.IsError() {
		return resp, &ResponseError{Status: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return resp, nil
}
