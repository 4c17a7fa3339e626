package vitalband_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keneth-urbizagastegui/vitalband"
)

func TestDecodeToken(t *testing.T) {
	token := signToken(42, "admin", "csrf-value", time.Hour)

	result := vitalband.DecodeToken(token)
	require.True(t, result.Decoded())

	assert.Equal(t, "42", result.Claims.Subject)
	assert.Equal(t, vitalband.RoleAdmin, result.Claims.Role)
	assert.Equal(t, "csrf-value", result.Claims.CSRF)
	require.NotNil(t, result.Claims.ExpiresAt)
	assert.False(t, result.Claims.Expired(time.Now()))
}

func TestDecodeTokenWithoutCSRF(t *testing.T) {
	token := signToken(42, "client", "", time.Hour)

	result := vitalband.DecodeToken(token)
	require.True(t, result.Decoded())
	assert.Empty(t, result.Claims.CSRF)
}

func TestDecodeTokenGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-jwt", "a.b", "a.b.c", "....."} {
		result := vitalband.DecodeToken(raw)
		assert.False(t, result.Decoded(), "input %q should not decode", raw)
		assert.Error(t, result.Err)
	}
}

func TestTokenClaimsExpired(t *testing.T) {
	expired := vitalband.DecodeToken(signToken(1, "client", "", -time.Minute))
	require.True(t, expired.Decoded())
	assert.True(t, expired.Claims.Expired(time.Now()))

	var none *vitalband.TokenClaims
	assert.False(t, none.Expired(time.Now()), "nil claims are never expired")
}
