package vitalband

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Client is the typed surface over the remote VitalBand API. Every call goes
// through the request pipeline; the client itself never persists session
// state (that is SessionController's job).
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	pipeline *Pipeline
	logger   Logger
	debug    bool
}

// ClientOption customizes client construction.
type ClientOption func(*Client)

// WithClientLogger overrides the logger used by the client and its pipeline.
func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug enables pretty-printed payload logging.
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithTransport overrides the pipeline's underlying transport, e.g. for
// tests.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.pipeline.base = rt
	}
}

// NewClient builds a client over the given config and session store.
func NewClient(cfg Config, store *SessionStore, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.GetBaseURL(), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, goerrors.New("invalid API base URL", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"base_url": cfg.GetBaseURL()})
	}

	c := &Client{
		baseURL:  base,
		pipeline: NewPipeline(store),
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.pipeline.logger = c.logger
	c.http = &http.Client{
		Transport: c.pipeline,
		Timeout:   cfg.GetRequestTimeout(),
	}

	return c, nil
}

// Pipeline exposes the request pipeline so a SessionController can register
// its teardown listener.
func (c *Client) Pipeline() *Pipeline {
	return c.pipeline
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type requestOptions struct {
	bearer string
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, opts requestOptions) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not serialize request body")
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(withAuthEpisode(ctx), method, c.endpoint(path, query), payload)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.bearer != "" {
		// Explicit credential, e.g. the who-am-I call right after login
		// before anything is persisted. The pipeline leaves it untouched.
		req.Header.Set(headerAuthorization, "Bearer "+opts.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "network error").
			WithTextCode(TextCodeNetworkError).
			WithMetadata(map[string]any{"path": path})
	}

	if resp.StatusCode >= 400 {
		expired := resp.Header.Get(headerSessionExpired) == "1"
		richErr := mapStatusError(resp.StatusCode, raw, expired)
		c.logger.Debug("request failed %s %s: %s", method, path, richErr.Message)
		return richErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "malformed server response").
			WithTextCode(TextCodeMalformedResponse).
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{
				"path":   path,
				"status": resp.StatusCode,
			})
	}

	if c.debug {
		c.logger.Debug("response %s %s: %s", method, path, print.MaybePrettyJSON(out))
	}

	return nil
}

func (c *Client) transportError(err error, path string) error {
	var netErr net.Error
	if (stderrors.As(err, &netErr) && netErr.Timeout()) || stderrors.Is(err, context.DeadlineExceeded) {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "request timed out").
			WithTextCode(TextCodeRequestTimeout).
			WithMetadata(map[string]any{"path": path})
	}
	return goerrors.Wrap(err, goerrors.CategoryOperation, "network error").
		WithTextCode(TextCodeNetworkError).
		WithMetadata(map[string]any{"path": path})
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, requestOptions{})
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out, requestOptions{})
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out, requestOptions{})
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil, requestOptions{})
}
