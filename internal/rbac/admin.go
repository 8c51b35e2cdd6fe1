package rbac

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"

	"github.com/openradius/openradius/internal/auth"
)

// RoleSet is an immutable, case-insensitive set of role names.
type RoleSet struct {
	names  []string
	folded map[string]struct{}
}

// NewRoleSet builds a RoleSet.
func NewRoleSet(names ...string) RoleSet {
	set := RoleSet{names: make([]string, 0, len(names)), folded: make(map[string]struct{}, len(names))}
	for _, n := range names {
		key := fold(n)
		if key == "" {
			continue
		}
		if _, dup := set.folded[key]; dup {
			continue
		}
		set.folded[key] = struct{}{}
		set.names = append(set.names, n)
	}
	return set
}

// Contains reports whether role is in the set, ignoring case and surrounding space.
func (s RoleSet) Contains(role string) bool {
	_, ok := s.folded[fold(role)]
	return ok
}

// ContainsAny reports whether any of roles is in the set.
func (s RoleSet) ContainsAny(roles []string) bool {
	for _, r := range roles {
		if s.Contains(r) {
			return true
		}
	}
	return false
}

// Names returns the role names as declared.
func (s RoleSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// cases.Caser keeps state, so each call builds its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// AdminRoles satisfy every permission requirement without a store lookup.
var AdminRoles = NewRoleSet(
	"admin",
	"administrator",
	"super-administrator",
	"super administrator",
	"super_administrator",
	"superadministrator",
)

// AdminRoleNames lists the admin bypass roles.
func AdminRoleNames() []string {
	return AdminRoles.Names()
}

// IsAdmin reports whether the principal holds an admin bypass role, either in
// the embedded realm access payload or in the flat role claims. It never fails:
// a malformed payload contributes no roles.
func IsAdmin(p *auth.Principal) bool {
	if !p.IsAuthenticated() {
		return false
	}
	for _, raw := range p.ClaimValues(auth.ClaimRealmAccess) {
		if AdminRoles.ContainsAny(RealmRoles(raw)) {
			return true
		}
	}
	return AdminRoles.ContainsAny(p.FlatRoles())
}

// PrincipalRoles returns every role the principal carries.
func PrincipalRoles(p *auth.Principal) []string {
	var roles []string
	for _, raw := range p.ClaimValues(auth.ClaimRealmAccess) {
		roles = append(roles, RealmRoles(raw)...)
	}
	return append(roles, p.FlatRoles()...)
}

// RealmRoles extracts the role list from a realm access payload such as
// {"roles":["admin","offline_access"]}. Anything unexpected yields no roles.
func RealmRoles(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	list, ok := payload["roles"].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			roles = append(roles, s)
		}
	}
	return roles
}
