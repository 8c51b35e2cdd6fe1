package rbac

// Role represents a named bundle of permissions inside a workspace.
type Role struct {
	ID        int64
	Name      string
	IsDeleted bool
}

// Permission represents an atomic capability such as "radius.users.delete".
type Permission struct {
	ID        int64
	Name      string
	IsDeleted bool
}

// RolePermission ties a permission to a role.
type RolePermission struct {
	RoleID       int64
	PermissionID int64
}

// UserRole links a workspace user to a role.
type UserRole struct {
	UserID int64
	RoleID int64
}

// Requirement asks for a single permission. Two requirements are equal when
// their permission strings are equal.
type Requirement struct {
	Permission string
}

// Effect is the outcome of evaluating a requirement.
type Effect int

const (
	// Indeterminate means the resolver did not decide, because the principal is
	// not authenticated. The pipeline answers 401.
	Indeterminate Effect = iota
	Allow
	Deny
)

func (e Effect) String() string {
	switch e {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "indeterminate"
	}
}

// Reason explains an Outcome.
type Reason string

// Reasons reported by the resolver.
const (
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonAdminBypass       Reason = "admin_bypass"
	ReasonGranted           Reason = "granted"
	ReasonNotGranted        Reason = "not_granted"
	ReasonMissingIdentity   Reason = "missing_identity"
	ReasonAuthenticatedOnly Reason = "authenticated_only"
	ReasonRoleRequired      Reason = "role_required"
	ReasonUnmappedRoute     Reason = "unmapped_route"
)

// Outcome is an evaluated requirement.
type Outcome struct {
	Effect Effect
	Reason Reason
}
