package vitalband_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keneth-urbizagastegui/vitalband"
)

func TestUserRoleValidation(t *testing.T) {
	assert.True(t, vitalband.RoleAdmin.IsValid())
	assert.True(t, vitalband.RoleClient.IsValid())
	assert.False(t, vitalband.UserRole("superuser").IsValid())
	assert.False(t, vitalband.UserRole("").IsValid())
}

func TestUserRoleIn(t *testing.T) {
	assert.True(t, vitalband.RoleAdmin.In(vitalband.RoleAdmin, vitalband.RoleClient))
	assert.False(t, vitalband.RoleClient.In(vitalband.RoleAdmin))
	assert.False(t, vitalband.RoleClient.In())
}

func TestParseRole(t *testing.T) {
	role, ok := vitalband.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, vitalband.RoleAdmin, role)

	_, ok = vitalband.ParseRole("root")
	assert.False(t, ok)

	assert.Len(t, vitalband.GetAllRoles(), 2)
}
