package vitalband_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keneth-urbizagastegui/vitalband"
)

func guardController(t *testing.T, user *vitalband.User, opts ...vitalband.SessionControllerOption) *vitalband.SessionController {
	t.Helper()
	server := httptest.NewServer((&apiStub{}).handler())
	t.Cleanup(server.Close)

	storage := newRecordingStorage()
	if user != nil {
		store := vitalband.NewSessionStore(storage)
		require.NoError(t, store.Write(context.Background(), &vitalband.Session{
			Token: "opaque-token",
			User:  user,
		}))
	}
	ctrl, _ := newTestController(t, server, storage, opts...)
	return ctrl
}

func TestAuthenticationGatePendingWhileHydrating(t *testing.T) {
	ctrl := guardController(t, nil, vitalband.WithDeferredHydration())
	gate := vitalband.AuthenticationGate(ctrl)

	decision := gate("/patients/7")
	assert.Equal(t, vitalband.GatePending, decision.Outcome)
	assert.False(t, decision.Allowed())
	assert.Empty(t, decision.Target, "pending never carries a redirect")
}

func TestAuthenticationGateRedirectsAnonymous(t *testing.T) {
	ctrl := guardController(t, nil)
	gate := vitalband.AuthenticationGate(ctrl)

	decision := gate("/patients/7?tab=alerts")
	assert.Equal(t, vitalband.GateRedirect, decision.Outcome)
	assert.Equal(t, "/login?from=%2Fpatients%2F7%3Ftab%3Dalerts", decision.Target)

	// The target must recover the original destination after login.
	assert.Equal(t, "/patients/7?tab=alerts",
		vitalband.ReturnTo(decision.Target, "/dashboard"))
}

func TestAuthenticationGateAllowsAuthenticated(t *testing.T) {
	ctrl := guardController(t, testUser())
	gate := vitalband.AuthenticationGate(ctrl)

	assert.True(t, gate("/patients/7").Allowed())
}

func TestRoleGateRedirectsWrongRoleToLanding(t *testing.T) {
	ctrl := guardController(t, testUser())
	gate := vitalband.RoleGate(ctrl, vitalband.RoleAdmin)

	decision := gate("/admin/patients")
	assert.Equal(t, vitalband.GateRedirect, decision.Outcome)
	assert.Equal(t, "/dashboard", decision.Target,
		"an authenticated user outside the role set goes to landing, not login")
}

func TestRoleGateAllowsMatchingRole(t *testing.T) {
	ctrl := guardController(t, adminUser())
	gate := vitalband.RoleGate(ctrl, vitalband.RoleAdmin)

	assert.True(t, gate("/admin/patients").Allowed())
}

func TestRoleGateAnonymousStillGoesToLogin(t *testing.T) {
	ctrl := guardController(t, nil)
	gate := vitalband.RoleGate(ctrl, vitalband.RoleAdmin)

	decision := gate("/admin/patients")
	assert.Equal(t, vitalband.GateRedirect, decision.Outcome)
	assert.Equal(t, "/login?from=%2Fadmin%2Fpatients", decision.Target)
}

func TestComposeShortCircuits(t *testing.T) {
	calls := 0
	deny := vitalband.Gate(func(string) vitalband.GateDecision {
		calls++
		return vitalband.GateDecision{Outcome: vitalband.GateRedirect, Target: "/login"}
	})
	after := vitalband.Gate(func(string) vitalband.GateDecision {
		calls++
		return vitalband.GateDecision{Outcome: vitalband.GateAllow}
	})

	decision := vitalband.Compose(deny, after)("/x")
	assert.Equal(t, vitalband.GateRedirect, decision.Outcome)
	assert.Equal(t, 1, calls, "composition stops at the first non-allow")

	assert.True(t, vitalband.Compose(after, nil)("/x").Allowed())
}
