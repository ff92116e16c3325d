package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/curately/postops/observe"
	"github.com/curately/postops/resilience"
)

// maxErrorBody bounds how much of an error response body is kept on the
// typed status error.
const maxErrorBody = 2048

// Response is a completed HTTP exchange with a status below 400.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Body is a request body with its content type. Use FormBody or JSONBody to
// construct one.
type Body struct {
	contentType string
	data        []byte
	err         error
}

// FormBody encodes form values as application/x-www-form-urlencoded.
func FormBody(values url.Values) Body {
	return Body{
		contentType: "application/x-www-form-urlencoded",
		data:        []byte(values.Encode()),
	}
}

// JSONBody marshals v as an application/json body. Marshal failures surface
// on the first request attempt.
func JSONBody(v any) Body {
	data, err := json.Marshal(v)
	if err != nil {
		// Surface the failure at request time; the executor classifies
		// it as terminal.
		return Body{contentType: "application/json", err: err}
	}
	return Body{contentType: "application/json", data: data}
}

// Config configures a Client for one remote API.
type Config struct {
	// APIName identifies the remote system in labels and logs. Required.
	APIName string

	// BaseURL is the API root, e.g. "https://graph.facebook.com/v19.0".
	// Required.
	BaseURL string

	// BearerToken, when set, is sent as an Authorization header.
	BearerToken string

	// Executor drives retries. Default: resilience.NewExecutor with the
	// default policy.
	Executor *resilience.Executor

	// Breaker optionally guards the API with a circuit breaker. An open
	// circuit fails calls without reaching the network.
	Breaker *resilience.CircuitBreaker

	// HTTPClient overrides the underlying client. Default: a pooled
	// client shared by all calls to this API.
	HTTPClient *http.Client

	// Logger. Default: observe.NopLogger().
	Logger observe.Logger
}

// Client executes HTTP calls against one remote API through the retry
// executor. Safe for concurrent use.
type Client struct {
	apiName string
	baseURL string
	token   string
	exec    *resilience.Executor
	breaker *resilience.CircuitBreaker
	http    *http.Client
	logger  observe.Logger
}

// New creates a client for one remote API.
func New(config Config) (*Client, error) {
	if config.APIName == "" {
		return nil, errors.New("httpx: APIName is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("httpx: BaseURL is required")
	}
	if config.Executor == nil {
		config.Executor = resilience.NewExecutor(resilience.ExecutorConfig{})
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Client{
		apiName: config.APIName,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.BearerToken,
		exec:    config.Executor,
		breaker: config.Breaker,
		http:    config.HTTPClient,
		logger:  config.Logger.WithAPI(config.APIName),
	}, nil
}

// APIName returns the remote API name this client is bound to.
func (c *Client) APIName() string {
	return c.apiName
}

// Get issues a GET through the retry executor.
func (c *Client) Get(ctx context.Context, path string, query url.Values) resilience.Result {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST through the retry executor.
func (c *Client) Post(ctx context.Context, path string, body Body) resilience.Result {
	return c.do(ctx, http.MethodPost, path, nil, &body)
}

// Put issues a PUT through the retry executor.
func (c *Client) Put(ctx context.Context, path string, body Body) resilience.Result {
	return c.do(ctx, http.MethodPut, path, nil, &body)
}

// Patch issues a PATCH through the retry executor.
func (c *Client) Patch(ctx context.Context, path string, body Body) resilience.Result {
	return c.do(ctx, http.MethodPatch, path, nil, &body)
}

// Delete issues a DELETE through the retry executor.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) resilience.Result {
	return c.do(ctx, http.MethodDelete, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body *Body) resilience.Result {
	label := c.apiName + "_" + strings.ToLower(method)

	op := func(ctx context.Context) (any, error) {
		if c.breaker != nil {
			if err := c.breaker.Allow(); err != nil {
				return nil, err
			}
		}
		resp, err := c.roundTrip(ctx, method, path, query, body)
		if c.breaker != nil {
			c.breaker.Record(err)
		}
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	return c.exec.ExecuteWithRetry(ctx, label, op)
}

// roundTrip performs one HTTP exchange. Any response status >= 400 becomes a
// *resilience.StatusError so the retry loop can classify it.
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body *Body) (*Response, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		if body.err != nil {
			return nil, fmt.Errorf("httpx: encode body: %w", body.err)
		}
		reader = bytes.NewReader(body.data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpx: read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		snippet := data
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &resilience.StatusError{
			Code:       resp.StatusCode,
			Body:       snippet,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	c.logger.Debug(ctx, "request completed",
		observe.Field{Key: "method", Value: method},
		observe.Field{Key: "path", Value: path},
		observe.Field{Key: "status", Value: resp.StatusCode},
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
