package shared

// Network inventory permissions.
const (
	PermNetworkNasView   = "network.nas.view"
	PermNetworkNasCreate = "network.nas.create"
	PermNetworkNasUpdate = "network.nas.update"
	PermNetworkNasDelete = "network.nas.delete"

	PermNetworkIPPoolsView   = "network.ippools.view"
	PermNetworkIPPoolsUpdate = "network.ippools.update"

	PermNetworkOltView    = "network.olt.view"
	PermNetworkOltUpdate  = "network.olt.update"
	PermNetworkMonitoring = "network.monitoring.view"
)

// NetworkScopes lists all permissions related to the network inventory.
func NetworkScopes() []string {
	return []string{
		PermNetworkNasView,
		PermNetworkNasCreate,
		PermNetworkNasUpdate,
		PermNetworkNasDelete,
		PermNetworkIPPoolsView,
		PermNetworkIPPoolsUpdate,
		PermNetworkOltView,
		PermNetworkOltUpdate,
		PermNetworkMonitoring,
	}
}

// AllScopes lists every permission the route table can require.
func AllScopes() []string {
	var all []string
	all = append(all, CoreScopes()...)
	all = append(all, RadiusScopes()...)
	all = append(all, BillingScopes()...)
	all = append(all, NetworkScopes()...)
	return all
}
