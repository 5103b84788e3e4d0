package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAssignedRoleSuperAdmin(t *testing.T) {
	// A super admin may assign any valid role explicitly.
	for _, want := range []Role{
		RoleSuperAdmin, RoleSystemManager, RoleStationOwner,
		RoleStationManager, RoleCarWasher, RoleStationClient,
	} {
		got, ok := ResolveAssignedRole(RoleSuperAdmin, want)
		assert.True(t, ok, "super_admin should be able to assign %s", want)
		assert.Equal(t, want, got)
	}

	got, ok := ResolveAssignedRole(RoleSuperAdmin, "")
	assert.True(t, ok)
	assert.Equal(t, RoleStationOwner, got, "default role when unspecified")

	_, ok = ResolveAssignedRole(RoleSuperAdmin, Role("warehouse_admin"))
	assert.False(t, ok, "unknown roles are rejected even for super_admin")
}

func TestResolveAssignedRoleSystemManager(t *testing.T) {
	// System managers always produce station owners, whatever was asked.
	for _, requested := range []Role{"", RoleStationOwner, RoleSuperAdmin, RoleCarWasher} {
		got, ok := ResolveAssignedRole(RoleSystemManager, requested)
		assert.True(t, ok)
		assert.Equal(t, RoleStationOwner, got, "requested=%q", requested)
	}
}

func TestResolveAssignedRoleStationOwner(t *testing.T) {
	got, ok := ResolveAssignedRole(RoleStationOwner, "")
	assert.True(t, ok)
	assert.Equal(t, RoleCarWasher, got, "owner default is car_washer")

	for _, want := range []Role{RoleStationManager, RoleCarWasher, RoleStationClient} {
		got, ok := ResolveAssignedRole(RoleStationOwner, want)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	for _, denied := range []Role{RoleSuperAdmin, RoleSystemManager, RoleStationOwner} {
		_, ok := ResolveAssignedRole(RoleStationOwner, denied)
		assert.False(t, ok, "owner must not create %s", denied)
	}
}

func TestResolveAssignedRoleSubordinatesDenied(t *testing.T) {
	// No subordinate role may register accounts at all.
	for _, actor := range []Role{RoleStationManager, RoleCarWasher, RoleStationClient} {
		_, ok := ResolveAssignedRole(actor, RoleCarWasher)
		assert.False(t, ok, "%s must not register accounts", actor)
		_, ok = ResolveAssignedRole(actor, "")
		assert.False(t, ok)
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleStationOwner.Valid())
	assert.False(t, Role("admin_garage").Valid(), "legacy role names are gone")
	assert.True(t, RoleStationClient.Subordinate())
	assert.False(t, RoleStationOwner.Subordinate())
}
