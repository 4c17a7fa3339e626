package vitalband

import (
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeSessionExpired     = "session_expired"
	TextCodeMalformedResponse  = "malformed_server_response"
	TextCodeValidationFailed   = "validation_failed"
	TextCodeConflict           = "resource_conflict"
	TextCodeNotFound           = "resource_not_found"
	TextCodeNetworkError       = "network_error"
	TextCodeRequestTimeout     = "request_timeout"
	TextCodeServerError        = "server_error"
	TextCodeLoginInFlight      = "login_in_flight"
	TextCodeInvalidTransition  = "invalid_session_transition"
	TextCodePartialSession     = "partial_session"
)

// ErrInvalidCredentials is returned when the server rejects a login.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrSessionExpired is returned when an authenticated call comes back 401.
// It is handled centrally by the session teardown path and is not a
// recoverable condition for call sites.
var ErrSessionExpired = errors.New("session expired", errors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedResponse is returned when a success response misses required
// fields, e.g. a register response without a user id.
var ErrMalformedResponse = errors.New("malformed server response", errors.CategoryOperation).
	WithTextCode(TextCodeMalformedResponse).
	WithCode(errors.CodeInternal)

// ErrValidation is returned for 400 responses carrying field-level detail.
var ErrValidation = errors.New("validation failed", errors.CategoryValidation).
	WithTextCode(TextCodeValidationFailed).
	WithCode(errors.CodeBadRequest)

// ErrConflict is returned for 409 responses, e.g. a duplicate email.
var ErrConflict = errors.New("resource conflict", errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeConflict)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("resource not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrNetwork is returned when the transport fails before a response arrives.
var ErrNetwork = errors.New("network error", errors.CategoryOperation).
	WithTextCode(TextCodeNetworkError)

// ErrTimeout is returned when a remote call exceeds the request timeout.
var ErrTimeout = errors.New("request timed out", errors.CategoryOperation).
	WithTextCode(TextCodeRequestTimeout)

// ErrServer is returned for 5xx responses.
var ErrServer = errors.New("server error", errors.CategoryInternal).
	WithTextCode(TextCodeServerError).
	WithCode(errors.CodeInternal)

// ErrLoginInFlight is returned when Login is invoked while a previous login
// has not resolved yet.
var ErrLoginInFlight = errors.New("login already in progress", errors.CategoryConflict).
	WithTextCode(TextCodeLoginInFlight).
	WithCode(errors.CodeConflict)

// ErrInvalidTransition is returned when a session state change is not allowed.
var ErrInvalidTransition = errors.New("invalid session state transition", errors.CategoryOperation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(errors.CodeInternal)

// ErrPartialSession is returned when a write would persist a token without a
// user or vice versa.
var ErrPartialSession = errors.New("refusing to persist a partial session", errors.CategoryValidation).
	WithTextCode(TextCodePartialSession).
	WithCode(errors.CodeBadRequest)

// IsSessionExpired reports whether err represents central session teardown.
func IsSessionExpired(err error) bool {
	return hasTextCode(err, TextCodeSessionExpired)
}

// IsInvalidCredentials reports whether err is a rejected login.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCredentials)
}

// IsMalformedResponse reports whether err is a structurally invalid success
// response.
func IsMalformedResponse(err error) bool {
	return hasTextCode(err, TextCodeMalformedResponse)
}

// IsValidationError reports whether err carries field-level validation detail.
func IsValidationError(err error) bool {
	return hasTextCode(err, TextCodeValidationFailed)
}

// IsNetworkError reports whether err is a transport failure or timeout.
func IsNetworkError(err error) bool {
	return hasTextCode(err, TextCodeNetworkError) || hasTextCode(err, TextCodeRequestTimeout)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.TextCode == code
}

// apiErrorBody is the error envelope the remote API uses. Validation failures
// arrive as a field -> messages map under "messages"; everything else carries
// a single "message" or "description".
type apiErrorBody struct {
	Message     string              `json:"message,omitempty"`
	Messages    map[string][]string `json:"messages,omitempty"`
	Description string              `json:"description,omitempty"`
}

// bestMessage picks the most specific server-provided detail: a field-level
// message first, then the generic message, then the fallback.
func (b apiErrorBody) bestMessage(fallback string) string {
	for _, msgs := range b.Messages {
		if len(msgs) > 0 && msgs[0] != "" {
			return msgs[0]
		}
	}
	if b.Message != "" {
		return b.Message
	}
	if b.Description != "" {
		return b.Description
	}
	return fallback
}

// mapStatusError converts a non-2xx response into the error taxonomy. The
// caller decides between invalid-credentials and session-expired for 401 via
// the sessionExpired flag, since only the pipeline knows whether the request
// carried a bearer token.
func mapStatusError(status int, body []byte, sessionExpired bool) *errors.Error {
	envelope := apiErrorBody{}
	if len(body) > 0 {
		// Best effort; an unparsable body degrades to the fallback message.
		_ = json.Unmarshal(body, &envelope)
	}

	var base *errors.Error
	switch {
	case status == http.StatusUnauthorized && sessionExpired:
		base = ErrSessionExpired
	case status == http.StatusUnauthorized:
		base = ErrInvalidCredentials
	case status == http.StatusNotFound:
		base = ErrNotFound
	case status == http.StatusConflict:
		base = ErrConflict
	case status >= 500:
		base = ErrServer
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		base = ErrValidation
	default:
		base = ErrValidation
	}

	rich := base.Clone()
	metadata := map[string]any{
		"status":  status,
		"message": envelope.bestMessage(rich.Message),
	}
	if len(envelope.Messages) > 0 {
		metadata["fields"] = envelope.Messages
	}
	return rich.WithMetadata(metadata)
}

// UserMessage extracts the most specific human-readable message from an error
// produced by this package; views render it verbatim, never a transport
// exception.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		if rich.Metadata != nil {
			if msg, ok := rich.Metadata["message"].(string); ok && msg != "" {
				return msg
			}
		}
		return rich.Message
	}
	return "something went wrong, please try again"
}
