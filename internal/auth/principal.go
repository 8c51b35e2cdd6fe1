package auth

import (
	"context"
	"strconv"
	"strings"
)

// Claim names consumed by the authorization engine.
const (
	ClaimSubject      = "sub"
	ClaimSystemUserID = "systemUserId"
	ClaimRealmAccess  = "realm_access"
	ClaimRole         = "role"
	ClaimRoles        = "roles"
	// ClaimTypeRole is the long-form role claim type some identity stacks emit.
	ClaimTypeRole = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"

	claimSystemUserIDAlt = "system_user_id"
)

// Claims is a multi-valued claim set keyed by claim type.
type Claims map[string][]string

// Add appends a value for name.
func (c Claims) Add(name, value string) {
	c[name] = append(c[name], value)
}

// Principal is the authenticated caller as seen by the rest of the pipeline.
type Principal struct {
	Authenticated bool
	Subject       string
	Claims        Claims
}

// Anonymous returns an unauthenticated principal.
func Anonymous() *Principal {
	return &Principal{Claims: Claims{}}
}

// NewPrincipal returns an authenticated principal with the given claims.
func NewPrincipal(subject string, claims Claims) *Principal {
	if claims == nil {
		claims = Claims{}
	}
	if subject == "" {
		subject = first(claims[ClaimSubject])
	}
	return &Principal{Authenticated: true, Subject: subject, Claims: claims}
}

// IsAuthenticated is nil-safe.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.Authenticated
}

// Claim returns the first value of a claim.
func (p *Principal) Claim(name string) string {
	if p == nil {
		return ""
	}
	return first(p.Claims[name])
}

// ClaimValues returns every value of a claim.
func (p *Principal) ClaimValues(name string) []string {
	if p == nil {
		return nil
	}
	return p.Claims[name]
}

// SystemUserID returns the tenant-local numeric user id, if the principal carries one.
func (p *Principal) SystemUserID() (int64, bool) {
	for _, name := range []string{ClaimSystemUserID, claimSystemUserIDAlt} {
		raw := strings.TrimSpace(p.Claim(name))
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// FlatRoles returns the values of the short and long-form role claims.
func (p *Principal) FlatRoles() []string {
	if p == nil {
		return nil
	}
	var roles []string
	for _, name := range []string{ClaimRole, ClaimRoles, ClaimTypeRole} {
		roles = append(roles, p.Claims[name]...)
	}
	return roles
}

// RealmAccess returns the raw embedded realm access payload.
func (p *Principal) RealmAccess() string {
	return p.Claim(ClaimRealmAccess)
}

// LogSubject identifies the principal in logs.
func (p *Principal) LogSubject() string {
	if p == nil || p.Subject == "" {
		return "anonymous"
	}
	return p.Subject
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

type principalContextKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// FromContext returns the principal stored in context, or an anonymous one.
func FromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalContextKey{}).(*Principal); ok && p != nil {
		return p
	}
	return Anonymous()
}
