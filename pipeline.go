package vitalband

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// HeaderCSRFToken carries the CSRF binding value extracted from the
	// token payload; the server compares it against the same claim inside
	// the bearer token it receives (double submit).
	HeaderCSRFToken = "X-CSRF-TOKEN"
	// HeaderRequestID correlates a request across client logs and server
	// logs.
	HeaderRequestID = "X-Request-ID"

	headerAuthorization = "Authorization"
	// headerSessionExpired flags the response for the status mapper: this
	// 401 happened on an authenticated call and teardown has been signaled.
	headerSessionExpired = "X-Session-Expired"
)

var authEpisodeCtxKey = &contextKey{"auth-episode"}

// authEpisode marks a request that already went through the 401 teardown
// branch, so a replay cannot re-enter it. It rides on the request context
// because a RoundTripper must not modify the caller's request.
type authEpisode struct {
	tripped atomic.Bool
}

func withAuthEpisode(ctx context.Context) context.Context {
	return context.WithValue(ctx, authEpisodeCtxKey, &authEpisode{})
}

func authEpisodeFrom(ctx context.Context) *authEpisode {
	ep, _ := ctx.Value(authEpisodeCtxKey).(*authEpisode)
	return ep
}

// SessionExpiredSignal is the typed outcome of the pipeline detecting an
// authorization failure. A single top-level listener (the SessionController)
// turns it into teardown and navigation; the pipeline itself never navigates.
type SessionExpiredSignal struct {
	// Path is the API path whose call failed, for logging.
	Path string
	// RequestID is the correlation id of the failing call.
	RequestID string
	Status    int
}

// SessionExpiredHandler consumes expiry signals.
type SessionExpiredHandler func(SessionExpiredSignal)

// Pipeline is the single chokepoint every outbound API call passes through.
// On the way out it attaches the bearer token, the CSRF header, and a request
// id; on the way back it intercepts authorization failures and signals
// session teardown exactly once per failure episode.
type Pipeline struct {
	base   http.RoundTripper
	store  *SessionStore
	logger Logger

	mu        sync.Mutex
	onExpired SessionExpiredHandler
}

var _ http.RoundTripper = (*Pipeline)(nil)

// PipelineOption customizes pipeline construction.
type PipelineOption func(*Pipeline)

// WithBaseTransport overrides the underlying transport.
func WithBaseTransport(rt http.RoundTripper) PipelineOption {
	return func(p *Pipeline) {
		if rt != nil {
			p.base = rt
		}
	}
}

// WithPipelineLogger overrides the logger.
func WithPipelineLogger(logger Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline wraps the default transport around the given session store. The
// default expiry handler clears the store; registering a SessionController
// replaces it with the full teardown path.
func NewPipeline(store *SessionStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		base:   http.DefaultTransport,
		store:  store,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// OnSessionExpired registers the listener invoked when an authenticated call
// comes back 401. There is exactly one listener; the last registration wins.
func (p *Pipeline) OnSessionExpired(h SessionExpiredHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onExpired = h
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	requestID := uuid.NewString()
	out.Header.Set(HeaderRequestID, requestID)

	authed := out.Header.Get(headerAuthorization) != ""
	if !authed {
		sess, err := p.store.Read(req.Context())
		if err != nil {
			p.logger.Warn("request proceeds unauthenticated, store read failed: %v", err)
		}
		if sess != nil {
			out.Header.Set(headerAuthorization, "Bearer "+sess.Token)
			p.attachCSRF(out, sess.Token)
			authed = true
		}
	}

	resp, err := p.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		ep := authEpisodeFrom(req.Context())
		if ep == nil || ep.tripped.CompareAndSwap(false, true) {
			p.expire(SessionExpiredSignal{
				Path:      req.URL.Path,
				RequestID: requestID,
				Status:    resp.StatusCode,
			}, req)
			resp.Header.Set(headerSessionExpired, "1")
		}
	}

	return resp, nil
}

// attachCSRF decodes the token payload and attaches the embedded CSRF value.
// A token without the claim, or one that does not decode, is a soft failure:
// the request simply goes out without the header.
func (p *Pipeline) attachCSRF(req *http.Request, token string) {
	result := DecodeToken(token)
	if !result.Decoded() {
		p.logger.Debug("token payload not decodable, skipping CSRF header: %v", result.Err)
		return
	}
	if result.Claims.CSRF == "" {
		return
	}
	req.Header.Set(HeaderCSRFToken, result.Claims.CSRF)
}

// expire signals teardown for the current failure episode. The first 401 to
// arrive performs observable work; once the store reads absent, concurrent
// failures degrade to no-ops.
func (p *Pipeline) expire(signal SessionExpiredSignal, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, err := p.store.Read(req.Context())
	if err != nil {
		p.logger.Error("could not inspect session during teardown: %v", err)
		return
	}
	if sess == nil {
		// Another in-flight failure already tore the session down.
		return
	}

	p.logger.Info("authorization failure on %s, tearing down session", signal.Path)

	if p.onExpired != nil {
		p.onExpired(signal)
		return
	}

	// Standalone use without a controller: at least clear the store.
	if err := p.store.Clear(req.Context()); err != nil {
		p.logger.Error("could not clear expired session: %v", err)
	}
}
