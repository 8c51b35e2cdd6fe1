package shared

// RADIUS subscriber permissions.
const (
	PermRadiusUsersView       = "radius.users.view"
	PermRadiusUsersCreate     = "radius.users.create"
	PermRadiusUsersUpdate     = "radius.users.update"
	PermRadiusUsersDelete     = "radius.users.delete"
	PermRadiusUsersDisconnect = "radius.users.disconnect"
	PermRadiusUsersExport     = "radius.users.export"

	PermRadiusProfilesView   = "radius.profiles.view"
	PermRadiusProfilesCreate = "radius.profiles.create"
	PermRadiusProfilesUpdate = "radius.profiles.update"
	PermRadiusProfilesDelete = "radius.profiles.delete"

	PermRadiusGroupsView   = "radius.groups.view"
	PermRadiusGroupsUpdate = "radius.groups.update"

	PermRadiusSessionsView   = "radius.sessions.view"
	PermRadiusAccountingView = "radius.accounting.view"
)

// RadiusScopes lists all permissions related to RADIUS subscribers.
func RadiusScopes() []string {
	return []string{
		PermRadiusUsersView,
		PermRadiusUsersCreate,
		PermRadiusUsersUpdate,
		PermRadiusUsersDelete,
		PermRadiusUsersDisconnect,
		PermRadiusUsersExport,
		PermRadiusProfilesView,
		PermRadiusProfilesCreate,
		PermRadiusProfilesUpdate,
		PermRadiusProfilesDelete,
		PermRadiusGroupsView,
		PermRadiusGroupsUpdate,
		PermRadiusSessionsView,
		PermRadiusAccountingView,
	}
}
