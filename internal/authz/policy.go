package authz

import (
	"fmt"
	"strings"

	"github.com/openradius/openradius/internal/rbac"
)

// PermissionPolicyPrefix marks policy keys that are synthesized on demand.
const PermissionPolicyPrefix = "Permission:"

// Built-in policy names served by DefaultPolicies.
const (
	PolicyAuthenticated = "Authenticated"
	PolicyAdminOnly     = "AdminOnly"
)

// PolicyKind tags how a Policy is evaluated.
type PolicyKind int

const (
	// BuiltInPolicy is a statically registered policy.
	BuiltInPolicy PolicyKind = iota
	// PermissionPolicy requires a single permission from the capability resolver.
	PermissionPolicy
)

func (k PolicyKind) String() string {
	if k == PermissionPolicy {
		return "permission"
	}
	return "builtin"
}

// Policy is what a request must satisfy.
type Policy struct {
	Name                 string
	Kind                 PolicyKind
	RequireAuthenticated bool
	// AnyRole, when set on a built-in policy, requires one of the roles
	// (case-insensitive) on the principal.
	AnyRole []string
	// Requirement is set for PermissionPolicy.
	Requirement rbac.Requirement
}

// PolicyResolver resolves a policy key to a Policy.
type PolicyResolver interface {
	ResolvePolicy(key string) (Policy, error)
}

// PermissionPolicyKey returns the policy key for a permission name.
func PermissionPolicyKey(permission string) string {
	return PermissionPolicyPrefix + permission
}

// StaticPolicies is a fixed set of named policies.
type StaticPolicies map[string]Policy

// ResolvePolicy implements PolicyResolver.
func (s StaticPolicies) ResolvePolicy(key string) (Policy, error) {
	p, ok := s[key]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, key)
	}
	return p, nil
}

// DefaultPolicies returns the built-in policies.
func DefaultPolicies() StaticPolicies {
	return StaticPolicies{
		PolicyAuthenticated: {Name: PolicyAuthenticated, Kind: BuiltInPolicy, RequireAuthenticated: true},
		PolicyAdminOnly: {
			Name:                 PolicyAdminOnly,
			Kind:                 BuiltInPolicy,
			RequireAuthenticated: true,
			AnyRole:              rbac.AdminRoleNames(),
		},
	}
}

// PolicyProvider synthesizes permission policies and delegates every other key
// to a fallback resolver. Permission policies are never registered up front.
type PolicyProvider struct {
	fallback PolicyResolver
}

// NewPolicyProvider constructs a PolicyProvider. A nil fallback uses DefaultPolicies.
func NewPolicyProvider(fallback PolicyResolver) *PolicyProvider {
	if fallback == nil {
		fallback = DefaultPolicies()
	}
	return &PolicyProvider{fallback: fallback}
}

// ResolvePolicy implements PolicyResolver.
func (p *PolicyProvider) ResolvePolicy(key string) (Policy, error) {
	if name, ok := strings.CutPrefix(key, PermissionPolicyPrefix); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return Policy{}, fmt.Errorf("%w: empty permission in %q", ErrUnknownPolicy, key)
		}
		return Policy{
			Name:                 key,
			Kind:                 PermissionPolicy,
			RequireAuthenticated: true,
			Requirement:          rbac.Requirement{Permission: name},
		}, nil
	}
	return p.fallback.ResolvePolicy(key)
}
