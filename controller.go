package vitalband

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SessionState is the controller's answer to "am I logged in, as whom".
type SessionState string

const (
	// StateHydrating means storage has not been read yet; the UI renders a
	// placeholder instead of flash-redirecting to login.
	StateHydrating SessionState = "hydrating"
	// StateAuthenticated means a complete session is loaded.
	StateAuthenticated SessionState = "authenticated"
	// StateAnonymous means there is no session.
	StateAnonymous SessionState = "anonymous"
)

// ReturnToParam carries the originally requested location through the login
// redirect so the user lands back where they were.
const ReturnToParam = "from"

// SessionController owns the session for the lifetime of the process. It is
// the only component that mutates the SessionStore's semantic content; the
// pipeline's forced teardown delegates back into it, so there is exactly one
// way a session dies.
type SessionController struct {
	client   *Client
	store    *SessionStore
	nav      Navigator
	logger   Logger
	activity ActivitySink
	now      func() time.Time

	loginPath   string
	landingPath string

	deferHydration bool

	mu            sync.Mutex
	state         SessionState
	user          *User
	loginInFlight bool

	transitions map[SessionState]map[SessionState]struct{}
}

// SessionControllerOption customizes controller construction.
type SessionControllerOption func(*SessionController)

// WithNavigator wires the navigation surface that receives forced redirects.
func WithNavigator(nav Navigator) SessionControllerOption {
	return func(c *SessionController) {
		c.nav = nav
	}
}

// WithControllerLogger overrides the logger.
func WithControllerLogger(logger Logger) SessionControllerOption {
	return func(c *SessionController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithActivitySink sets the sink used to emit auth events.
func WithActivitySink(sink ActivitySink) SessionControllerOption {
	return func(c *SessionController) {
		c.activity = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) SessionControllerOption {
	return func(c *SessionController) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithDeferredHydration leaves the controller in Hydrating until Hydrate is
// called explicitly.
func WithDeferredHydration() SessionControllerOption {
	return func(c *SessionController) {
		c.deferHydration = true
	}
}

// WithLoginPath overrides the unauthenticated redirect target.
func WithLoginPath(path string) SessionControllerOption {
	return func(c *SessionController) {
		if path != "" {
			c.loginPath = path
		}
	}
}

// WithLandingPath overrides the authenticated-but-unauthorized redirect
// target.
func WithLandingPath(path string) SessionControllerOption {
	return func(c *SessionController) {
		if path != "" {
			c.landingPath = path
		}
	}
}

// NewSessionController builds the controller, hydrates from storage (unless
// deferred) and registers itself as the pipeline's teardown listener.
func NewSessionController(client *Client, store *SessionStore, opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		client:      client,
		store:       store,
		logger:      defLogger{},
		activity:    noopActivitySink{},
		now:         time.Now,
		loginPath:   DefaultLoginPath,
		landingPath: DefaultLandingPath,
		state:       StateHydrating,
		transitions: map[SessionState]map[SessionState]struct{}{
			StateHydrating: {
				StateAuthenticated: {},
				StateAnonymous:     {},
			},
			StateAuthenticated: {
				StateAnonymous: {},
			},
			StateAnonymous: {
				StateAuthenticated: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if client != nil {
		client.Pipeline().OnSessionExpired(c.HandleSessionExpired)
	}

	if !c.deferHydration {
		c.Hydrate(context.Background())
	}

	return c
}

// State returns the current session state.
func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentUser returns the authenticated principal, if any.
func (c *SessionController) CurrentUser() (*User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAuthenticated || c.user == nil {
		return nil, false
	}
	u := *c.user
	return &u, true
}

// LoginPath returns the unauthenticated redirect target.
func (c *SessionController) LoginPath() string { return c.loginPath }

// LandingPath returns the default authenticated landing view.
func (c *SessionController) LandingPath() string { return c.landingPath }

// Hydrate reads storage and resolves Hydrating into Authenticated or
// Anonymous. A token that is locally decodable and already expired counts as
// absent; the stale pair is purged rather than resurrected.
func (c *SessionController) Hydrate(ctx context.Context) {
	sess, err := c.store.Read(ctx)
	if err != nil {
		c.logger.Error("hydration read failed, treating session as absent: %v", err)
	}

	if sess != nil {
		if result := DecodeToken(sess.Token); result.Decoded() && result.Claims.Expired(c.now()) {
			c.logger.Info("stored token already expired, discarding session")
			if clearErr := c.store.Clear(ctx); clearErr != nil {
				c.logger.Error("could not discard expired session: %v", clearErr)
			}
			sess = nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateHydrating {
		return
	}
	if sess != nil {
		c.setState(StateAuthenticated, sess.User)
		c.emit(ctx, ActivityEvent{
			EventType: ActivityEventSessionHydrated,
			UserID:    strconv.FormatInt(sess.User.ID, 10),
		})
		return
	}
	c.setState(StateAnonymous, nil)
}

// Login authenticates the credential and establishes the session. A second
// invocation while one is pending is rejected without a network call.
func (c *SessionController) Login(ctx context.Context, email, password string) (*User, error) {
	c.mu.Lock()
	if c.loginInFlight {
		c.mu.Unlock()
		return nil, ErrLoginInFlight
	}
	c.loginInFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loginInFlight = false
		c.mu.Unlock()
	}()

	resp, err := c.client.Login(ctx, Credential{Email: email, Password: password})
	if err != nil {
		c.emit(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"email": email, "error": UserMessage(err)},
		})
		return nil, err
	}

	user := resp.User
	if user == nil {
		// Some deployments omit the user from the login response; resolve it
		// with the fresh token before anything is persisted.
		user, err = c.client.MeWithToken(ctx, resp.AccessToken)
		if err != nil {
			c.emit(ctx, ActivityEvent{
				EventType: ActivityEventLoginFailure,
				Metadata:  map[string]any{"email": email, "error": UserMessage(err)},
			})
			return nil, err
		}
	}

	if !user.Valid() {
		err := ErrMalformedResponse.Clone().WithMetadata(map[string]any{
			"reason": "login produced an incomplete user record",
		})
		c.emit(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"email": email, "error": err.Message},
		})
		return nil, err
	}

	sess := &Session{Token: resp.AccessToken, User: user}
	if err := c.store.Write(ctx, sess); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.setState(StateAuthenticated, user)
	c.mu.Unlock()

	c.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    strconv.FormatInt(user.ID, 10),
		Metadata:  map[string]any{"email": user.Email, "role": string(user.Role)},
	})

	out := *user
	return &out, nil
}

// RefreshUser re-fetches the principal and rewrites the stored snapshot, so
// role or profile changes made server-side become visible without a re-login.
func (c *SessionController) RefreshUser(ctx context.Context) (*User, error) {
	c.mu.Lock()
	if c.state != StateAuthenticated {
		c.mu.Unlock()
		return nil, ErrSessionExpired
	}
	c.mu.Unlock()

	user, err := c.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	if !user.Valid() {
		return nil, ErrMalformedResponse.Clone().WithMetadata(map[string]any{
			"reason": "identity refresh produced an incomplete user record",
		})
	}

	sess, err := c.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Torn down between the check and the fetch.
		return nil, ErrSessionExpired
	}
	sess.User = user
	if err := c.store.Write(ctx, sess); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state == StateAuthenticated {
		c.user = user
	}
	c.mu.Unlock()

	out := *user
	return &out, nil
}

// Logout clears the session. Calling it while already Anonymous is a no-op.
func (c *SessionController) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateAnonymous {
		c.mu.Unlock()
		return nil
	}
	previous := c.user
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.setState(StateAnonymous, nil)
	c.mu.Unlock()

	event := ActivityEvent{EventType: ActivityEventLogout}
	if previous != nil {
		event.UserID = strconv.FormatInt(previous.ID, 10)
	}
	c.emit(ctx, event)
	return nil
}

// HandleSessionExpired is the single teardown path for authorization
// failures detected by the pipeline. It is idempotent: once Anonymous,
// subsequent signals from the same failure episode degrade to no-ops, and a
// redirect is only issued when the application is not already on the login
// view.
func (c *SessionController) HandleSessionExpired(signal SessionExpiredSignal) {
	ctx := context.Background()

	c.mu.Lock()
	alreadyAnonymous := c.state == StateAnonymous
	previous := c.user
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("could not clear expired session: %v", err)
	}

	if alreadyAnonymous {
		return
	}

	c.mu.Lock()
	c.setState(StateAnonymous, nil)
	c.mu.Unlock()

	event := ActivityEvent{
		EventType: ActivityEventSessionExpired,
		Metadata: map[string]any{
			"path":       signal.Path,
			"request_id": signal.RequestID,
		},
	}
	if previous != nil {
		event.UserID = strconv.FormatInt(previous.ID, 10)
	}
	c.emit(ctx, event)

	c.redirectToLogin()
}

func (c *SessionController) redirectToLogin() {
	if c.nav == nil {
		return
	}
	current := c.nav.CurrentLocation()
	if isLoginLocation(current, c.loginPath) {
		return
	}
	c.nav.Navigate(LoginRedirect(c.loginPath, current))
}

// LoginRedirect builds the login location with the requested path+query
// preserved under the return-to parameter.
func LoginRedirect(loginPath, requested string) string {
	if requested == "" {
		return loginPath
	}
	return loginPath + "?" + ReturnToParam + "=" + url.QueryEscape(requested)
}

// ReturnTo recovers the originally requested location from a login location,
// falling back to the given default.
func ReturnTo(loginLocation, fallback string) string {
	u, err := url.Parse(loginLocation)
	if err != nil {
		return fallback
	}
	if from := u.Query().Get(ReturnToParam); from != "" {
		return from
	}
	return fallback
}

func isLoginLocation(location, loginPath string) bool {
	path := location
	if idx := strings.IndexByte(location, '?'); idx >= 0 {
		path = location[:idx]
	}
	return path == loginPath
}

// setState applies a transition; callers hold c.mu.
func (c *SessionController) setState(to SessionState, user *User) {
	from := c.state
	if from == to {
		c.user = user
		return
	}
	if allowed, ok := c.transitions[from]; ok {
		if _, exists := allowed[to]; !exists {
			c.logger.Error("refusing session transition %s -> %s", from, to)
			return
		}
	}
	c.state = to
	c.user = user
	c.logger.Debug("session state %s -> %s", from, to)
}

func (c *SessionController) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = c.now()
	}
	sink := normalizeActivitySink(c.activity)
	if err := sink.Record(ctx, event); err != nil {
		c.logger.Warn("activity sink record error: %v", err)
	}
}
