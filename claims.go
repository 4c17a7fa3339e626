package vitalband

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenClaims is the locally decoded payload of an access token. The
// signature is never verified client-side; the issuing call is trusted and
// the decode exists only to surface embedded claims, chiefly the CSRF binding
// value echoed back on mutating requests.
type TokenClaims struct {
	Subject   string
	Role      UserRole
	CSRF      string
	ExpiresAt *time.Time
	IssuedAt  *time.Time
}

// Expired reports whether the token carries an expiry in the past. A token
// without an exp claim is never considered expired locally.
func (c *TokenClaims) Expired(now time.Time) bool {
	return c != nil && c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// DecodeResult reports a best-effort token decode. A failed decode is a soft
// condition: requests proceed without the CSRF header.
type DecodeResult struct {
	Claims *TokenClaims
	Err    error
}

// Decoded reports whether usable claims came out of the parse.
func (r DecodeResult) Decoded() bool {
	return r.Err == nil && r.Claims != nil
}

// DecodeToken parses the token payload without verifying its signature. It
// never panics; any parse problem lands in DecodeResult.Err.
func DecodeToken(raw string) DecodeResult {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return DecodeResult{
			Err: errors.Wrap(err, errors.CategoryBadInput, "unable to decode token payload"),
		}
	}
	return DecodeResult{Claims: claimsFromPayload(claims)}
}

func claimsFromPayload(payload jwt.MapClaims) *TokenClaims {
	out := &TokenClaims{}

	// The issuer serializes numeric subjects; normalize to a string.
	switch sub := payload["sub"].(type) {
	case string:
		out.Subject = sub
	case float64:
		out.Subject = fmt.Sprintf("%.0f", sub)
	}

	if role, ok := payload["role"].(string); ok {
		out.Role = UserRole(role)
	}
	if csrf, ok := payload["csrf"].(string); ok {
		out.CSRF = csrf
	}

	if exp, err := payload.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		out.ExpiresAt = &t
	}
	if iat, err := payload.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		out.IssuedAt = &t
	}

	return out
}
