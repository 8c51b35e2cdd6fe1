// Package routemap holds the route permission table of the API. Entries are
// ordered: within a method, a route must be declared before any route that
// generalizes it with a wildcard at the same position.
package routemap

import (
	"net/http"

	"github.com/openradius/openradius/internal/authz"
	"github.com/openradius/openradius/internal/shared"
)

// Entries returns the full table in evaluation order.
func Entries() []authz.RouteEntry {
	var all []authz.RouteEntry
	all = append(all, SelfService()...)
	all = append(all, Workspace()...)
	all = append(all, Radius()...)
	all = append(all, Billing()...)
	all = append(all, Network()...)
	return all
}

// Table compiles Entries.
func Table() (*authz.Table, error) {
	return authz.NewTable(Entries())
}

// SelfService covers endpoints every signed-in user may call on their own behalf.
func SelfService() []authz.RouteEntry {
	return []authz.RouteEntry{
		authz.AuthenticatedRoute(http.MethodGet, "api/users/me"),
		authz.AuthenticatedRoute(http.MethodPut, "api/users/me/preferences"),
		authz.AuthenticatedRoute(http.MethodPost, "api/users/exit-impersonation"),
		authz.AuthenticatedRoute(http.MethodGet, "api/notifications"),
		authz.AuthenticatedRoute(http.MethodPost, "api/notifications/*/read"),
	}
}

// Workspace covers users, roles and settings of a workspace.
func Workspace() []authz.RouteEntry {
	return []authz.RouteEntry{
		authz.Route(http.MethodGet, "api/users", shared.PermUsersView),
		authz.Route(http.MethodGet, "api/users/*", shared.PermUsersView),
		authz.Route(http.MethodPost, "api/users", shared.PermUsersCreate),
		authz.Route(http.MethodPost, "api/users/*/impersonate", shared.PermUsersImpersonate),
		authz.Route(http.MethodPut, "api/users/*", shared.PermUsersUpdate),
		authz.Route(http.MethodDelete, "api/users/*", shared.PermUsersDelete),

		authz.Route(http.MethodGet, "api/roles", shared.PermRolesView),
		authz.Route(http.MethodGet, "api/roles/*/permissions", shared.PermRolesView),
		authz.Route(http.MethodGet, "api/roles/*", shared.PermRolesView),
		authz.Route(http.MethodPost, "api/roles", shared.PermRolesCreate),
		authz.Route(http.MethodPut, "api/roles/*/permissions", shared.PermRolesUpdate),
		authz.Route(http.MethodPut, "api/roles/*", shared.PermRolesUpdate),
		authz.Route(http.MethodDelete, "api/roles/*", shared.PermRolesDelete),

		authz.Route(http.MethodGet, "api/permissions", shared.PermPermissionsView),

		authz.Route(http.MethodGet, "api/settings", shared.PermSettingsView),
		authz.Route(http.MethodPut, "api/settings", shared.PermSettingsUpdate),

		authz.Route(http.MethodGet, "api/dashboard", shared.PermDashboardView),
		authz.Route(http.MethodGet, "api/dashboard/*", shared.PermDashboardView),
		authz.Route(http.MethodGet, "api/audit-logs", shared.PermAuditView),
		authz.Route(http.MethodGet, "api/audit-logs/*", shared.PermAuditView),
	}
}

// Radius covers subscribers, profiles, groups and sessions.
func Radius() []authz.RouteEntry {
	return []authz.RouteEntry{
		authz.Route(http.MethodGet, "api/radius/users/export", shared.PermRadiusUsersExport),
		authz.Route(http.MethodGet, "api/radius/users/*/sessions", shared.PermRadiusUsersView),
		authz.Route(http.MethodGet, "api/radius/users/*/accounting", shared.PermRadiusAccountingView),
		authz.Route(http.MethodGet, "api/radius/users/*", shared.PermRadiusUsersView),
		authz.Route(http.MethodGet, "api/radius/users", shared.PermRadiusUsersView),
		authz.Route(http.MethodPost, "api/radius/users/import", shared.PermRadiusUsersCreate),
		authz.Route(http.MethodPost, "api/radius/users/*/disconnect", shared.PermRadiusUsersDisconnect),
		authz.Route(http.MethodPost, "api/radius/users/*/restore", shared.PermRadiusUsersUpdate),
		authz.Route(http.MethodPost, "api/radius/users", shared.PermRadiusUsersCreate),
		authz.Route(http.MethodPut, "api/radius/users/*", shared.PermRadiusUsersUpdate),
		authz.Route(http.MethodPatch, "api/radius/users/*/profile", shared.PermRadiusUsersUpdate),
		authz.Route(http.MethodDelete, "api/radius/users/*", shared.PermRadiusUsersDelete),

		authz.Route(http.MethodGet, "api/radius/profiles", shared.PermRadiusProfilesView),
		authz.Route(http.MethodGet, "api/radius/profiles/*", shared.PermRadiusProfilesView),
		authz.Route(http.MethodPost, "api/radius/profiles", shared.PermRadiusProfilesCreate),
		authz.Route(http.MethodPut, "api/radius/profiles/*", shared.PermRadiusProfilesUpdate),
		authz.Route(http.MethodDelete, "api/radius/profiles/*", shared.PermRadiusProfilesDelete),

		authz.Route(http.MethodGet, "api/radius/groups", shared.PermRadiusGroupsView),
		authz.Route(http.MethodGet, "api/radius/groups/*", shared.PermRadiusGroupsView),
		authz.Route(http.MethodPut, "api/radius/groups/*", shared.PermRadiusGroupsUpdate),

		authz.Route(http.MethodGet, "api/radius/sessions/online", shared.PermRadiusSessionsView),
		authz.Route(http.MethodGet, "api/radius/sessions", shared.PermRadiusSessionsView),
		authz.Route(http.MethodGet, "api/radius/accounting", shared.PermRadiusAccountingView),
	}
}

// Billing covers invoices, payments, wallets and add-ons.
func Billing() []authz.RouteEntry {
	return []authz.RouteEntry{
		authz.Route(http.MethodGet, "api/billing/invoices", shared.PermBillingInvoicesView),
		authz.Route(http.MethodGet, "api/billing/invoices/*", shared.PermBillingInvoicesView),
		authz.Route(http.MethodPost, "api/billing/invoices/*/void", shared.PermBillingInvoicesVoid),
		authz.Route(http.MethodPost, "api/billing/invoices", shared.PermBillingInvoicesCreate),

		authz.Route(http.MethodGet, "api/billing/payments", shared.PermBillingPaymentsView),
		authz.Route(http.MethodGet, "api/billing/payments/*", shared.PermBillingPaymentsView),
		authz.Route(http.MethodPost, "api/billing/payments/*/refund", shared.PermBillingPaymentsRefund),
		authz.Route(http.MethodPost, "api/billing/payments", shared.PermBillingPaymentsCreate),

		authz.Route(http.MethodGet, "api/billing/wallets/*", shared.PermBillingWalletView),
		authz.Route(http.MethodPost, "api/billing/wallets/*/topup", shared.PermBillingWalletTopUp),

		authz.Route(http.MethodGet, "api/billing/addons", shared.PermBillingAddonsView),
		authz.Route(http.MethodPut, "api/billing/addons/*", shared.PermBillingAddonsUpdate),
	}
}

// Network covers NAS devices, IP pools, OLTs and monitoring.
func Network() []authz.RouteEntry {
	return []authz.RouteEntry{
		authz.Route(http.MethodGet, "api/network/nas", shared.PermNetworkNasView),
		authz.Route(http.MethodGet, "api/network/nas/*", shared.PermNetworkNasView),
		authz.Route(http.MethodPost, "api/network/nas", shared.PermNetworkNasCreate),
		authz.Route(http.MethodPut, "api/network/nas/*", shared.PermNetworkNasUpdate),
		authz.Route(http.MethodDelete, "api/network/nas/*", shared.PermNetworkNasDelete),

		authz.Route(http.MethodGet, "api/network/ip-pools", shared.PermNetworkIPPoolsView),
		authz.Route(http.MethodGet, "api/network/ip-pools/*", shared.PermNetworkIPPoolsView),
		authz.Route(http.MethodPut, "api/network/ip-pools/*", shared.PermNetworkIPPoolsUpdate),

		authz.Route(http.MethodGet, "api/network/olts", shared.PermNetworkOltView),
		authz.Route(http.MethodGet, "api/network/olts/*/onus", shared.PermNetworkOltView),
		authz.Route(http.MethodGet, "api/network/olts/*", shared.PermNetworkOltView),
		authz.Route(http.MethodPut, "api/network/olts/*", shared.PermNetworkOltUpdate),

		authz.Route(http.MethodGet, "api/network/monitoring", shared.PermNetworkMonitoring),
		authz.Route(http.MethodGet, "api/network/monitoring/*", shared.PermNetworkMonitoring),
	}
}
