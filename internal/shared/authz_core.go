package shared

// Workspace administration permissions.
const (
	PermUsersView        = "users.view"
	PermUsersCreate      = "users.create"
	PermUsersUpdate      = "users.update"
	PermUsersDelete      = "users.delete"
	PermUsersImpersonate = "users.impersonate"

	PermRolesView   = "roles.view"
	PermRolesCreate = "roles.create"
	PermRolesUpdate = "roles.update"
	PermRolesDelete = "roles.delete"

	PermPermissionsView = "permissions.view"

	PermSettingsView   = "settings.view"
	PermSettingsUpdate = "settings.update"

	PermDashboardView = "dashboard.view"
	PermAuditView     = "audit.view"
)

// CoreScopes lists all permissions related to workspace administration.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersCreate,
		PermUsersUpdate,
		PermUsersDelete,
		PermUsersImpersonate,
		PermRolesView,
		PermRolesCreate,
		PermRolesUpdate,
		PermRolesDelete,
		PermPermissionsView,
		PermSettingsView,
		PermSettingsUpdate,
		PermDashboardView,
		PermAuditView,
	}
}
