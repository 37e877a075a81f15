package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultBaseURL is the API origin plus version prefix.
	DefaultBaseURL = "https://api.taxjar.com/v2"
	// DefaultTimeout bounds the wait for response headers.
	DefaultTimeout = 10 * time.Second
)

// Client is the shared request pipeline. The auth token and options are fixed
// at construction, so one Client may serve any number of concurrent calls.
type Client struct {
	http     *resty.Client
	baseURL  string
	timeout  time.Duration
	log      Logger
	validate *validator.Validate
}

type options struct {
	baseURL   string
	timeout   time.Duration
	log       Logger
	transport http.RoundTripper
	tracing   bool
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL overrides DefaultBaseURL, e.g. for the sandbox host.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger injects the logger used for request tracing and failures.
func WithLogger(log Logger) Option {
	return func(o *options) { o.log = log }
}

// WithTransport replaces the base round-tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTracing wraps outbound calls in OpenTelemetry client spans.
func WithTracing() Option {
	return func(o *options) { o.tracing = true }
}

// New builds a pipeline client authenticated with token. An empty token sends
// no Authorization header.
func New(token string, opts ...Option) *Client {
	o := options{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	rc := resty.New().
		SetTransport(pipelineTransport(o.timeout, o.transport, o.tracing)).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}

	return &Client{
		http:     rc,
		baseURL:  o.baseURL,
		timeout:  o.timeout,
		log:      ensureLogger(o.log),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// BaseURL returns the origin requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the response header timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// pipelineTransport applies the header timeout to http.Transport values so
// that only the wait for the first response byte is bounded.
func pipelineTransport(timeout time.Duration, rt http.RoundTripper, tracing bool) http.RoundTripper {
	switch t := rt.(type) {
	case nil:
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.ResponseHeaderTimeout = timeout
		rt = base
	case *http.Transport:
		base := t.Clone()
		base.ResponseHeaderTimeout = timeout
		rt = base
	}
	if tracing {
		rt = otelhttp.NewTransport(rt)
	}
	return rt
}

// Execute sends req and returns the raw envelope of a 2xx response. Every
// other outcome is reported as *Error.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	method, err := normalizeMethod(req.Method)
	if err != nil {
		return nil, c.fail(requestError(req.Method, req.Resource, err))
	}
	query, err := req.Query.encode()
	if err != nil {
		return nil, c.fail(requestError(method, req.Resource, err))
	}
	body, err := req.Body.encode()
	if err != nil {
		return nil, c.fail(requestError(method, req.Resource, err))
	}
	if len(body) > 0 && method == http.MethodGet {
		return nil, c.fail(requestError(method, req.Resource, errors.New("GET does not carry a body")))
	}
	target, err := joinURL(c.baseURL, req.Resource, query)
	if err != nil {
		return nil, c.fail(requestError(method, req.Resource, err))
	}

	c.log.DebugObj("taxjar request", "request", map[string]any{
		"method":   method,
		"resource": req.Resource,
	})
	if method == http.MethodGet {
		c.log.DebugObj("taxjar request resolved", "request_url", target)
	}

	r := c.http.R().SetContext(ctx)
	var rawBody string
	if len(body) > 0 {
		rawBody = body.Encode()
		r.SetHeader("Content-Type", formContentType).SetBody(rawBody)
	}

	resp, err := r.Execute(method, target)
	if err != nil {
		return nil, c.fail(classifyTransport(method, req.Resource, rawBody, resp, err))
	}
	if !resp.IsSuccess() {
		return nil, c.fail(&Error{
			Kind:        KindError,
			Message:     string(resp.Body()),
			Method:      method,
			Resource:    req.Resource,
			HTTPStatus:  resp.StatusCode(),
			RequestBody: rawBody,
		})
	}

	return &Response{
		StatusCode:  resp.StatusCode(),
		Body:        resp.Body(),
		method:      method,
		resource:    req.Resource,
		requestBody: rawBody,
	}, nil
}

func requestError(method, resource string, err error) *Error {
	return &Error{
		Kind:     KindError,
		Message:  err.Error(),
		Method:   method,
		Resource: resource,
		cause:    err,
	}
}

func (c *Client) fail(e *Error) *Error {
	c.log.WarnObj("taxjar request failed", "request_error", map[string]any{
		"kind":        string(e.Kind),
		"method":      e.Method,
		"resource":    e.Resource,
		"http_status": e.HTTPStatus,
		"message":     snippet(e.Message),
	})
	return e
}

// classifyTransport maps a resty send failure to a timeout or error kind. A
// response that arrived but whose body could not be read still reports its
// status.
func classifyTransport(method, resource, reqBody string, resp *resty.Response, err error) *Error {
	if isTimeout(err) {
		return newTimeoutError(method, resource, err)
	}

	e := &Error{
		Kind:        KindError,
		Message:     err.Error(),
		Method:      method,
		Resource:    resource,
		RequestBody: reqBody,
		cause:       err,
	}
	if resp != nil && resp.RawResponse != nil {
		e.HTTPStatus = resp.StatusCode()
		if b := resp.Body(); len(b) > 0 {
			e.Message = string(b)
		}
	}
	return e
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
