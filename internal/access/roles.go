// Package access contains the pure authorization rules of the application:
// the role set and its creation hierarchy, the claims value decoded from a
// bearer token, subscription status classification and the manager quota
// report. Nothing in this package touches the database; handlers and
// middleware feed it data and act on its decisions.
package access

// Role is the closed set of account roles. The first three are top-level
// accounts; the last three are subordinate employee accounts scoped to a
// single station owner.
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RoleSystemManager  Role = "system_manager"
	RoleStationOwner   Role = "station_owner"
	RoleStationManager Role = "station_manager"
	RoleCarWasher      Role = "car_washer"
	RoleStationClient  Role = "station_client"
)

// allRoles indexes every valid role for membership checks.
var allRoles = map[Role]bool{
	RoleSuperAdmin:     true,
	RoleSystemManager:  true,
	RoleStationOwner:   true,
	RoleStationManager: true,
	RoleCarWasher:      true,
	RoleStationClient:  true,
}

// subordinateRoles are the roles a station owner may hand out. Accounts
// with these roles always carry an owner_id.
var subordinateRoles = map[Role]bool{
	RoleStationManager: true,
	RoleCarWasher:      true,
	RoleStationClient:  true,
}

// creatable maps an actor role to the set of roles it may assign when
// registering a new account. Roles absent from the outer map cannot
// register accounts at all. A nil inner map means "any valid role".
var creatable = map[Role]map[Role]bool{
	RoleSuperAdmin:    nil,
	RoleSystemManager: {RoleStationOwner: true},
	RoleStationOwner:  subordinateRoles,
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool { return allRoles[r] }

// Subordinate reports whether r is an employee role scoped to an owner.
func (r Role) Subordinate() bool { return subordinateRoles[r] }

// ResolveAssignedRole decides which role a new account receives when actor
// registers it. requested may be empty, in which case the actor's default
// applies: station owners default to car_washer, everyone else to
// station_owner. A system manager always produces a station_owner no matter
// what was requested. The second return value is false when the actor is
// not allowed to register an account with the requested role.
func ResolveAssignedRole(actor, requested Role) (Role, bool) {
	allowed, ok := creatable[actor]
	if !ok {
		return "", false
	}
	// System managers can only ever mint station owners; the request is
	// ignored rather than rejected so that client UIs need no special case.
	if actor == RoleSystemManager {
		return RoleStationOwner, true
	}
	if requested == "" {
		if actor == RoleStationOwner {
			return RoleCarWasher, true
		}
		return RoleStationOwner, true
	}
	if !requested.Valid() {
		return "", false
	}
	if allowed == nil || allowed[requested] {
		return requested, true
	}
	return "", false
}
