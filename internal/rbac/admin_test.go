package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openradius/openradius/internal/auth"
)

func withClaims(claims auth.Claims) *auth.Principal {
	return auth.NewPrincipal("alice", claims)
}

func TestIsAdminFromRealmAccess(t *testing.T) {
	cases := map[string]struct {
		realm string
		want  bool
	}{
		"admin":            {`{"roles":["offline_access","admin"]}`, true},
		"mixed case":       {`{"roles":["Super-Administrator"]}`, true},
		"space separated":  {`{"roles":["SUPER ADMINISTRATOR"]}`, true},
		"non admin":        {`{"roles":["editor","viewer"]}`, false},
		"malformed json":   {`{"roles":["admin"`, false},
		"roles not a list": {`{"roles":"admin"}`, false},
		"empty":            {``, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := withClaims(auth.Claims{auth.ClaimRealmAccess: {tc.realm}})
			assert.Equal(t, tc.want, IsAdmin(p))
		})
	}
}

func TestIsAdminFromFlatRoles(t *testing.T) {
	assert.True(t, IsAdmin(withClaims(auth.Claims{auth.ClaimRole: {"Administrator"}})))
	assert.True(t, IsAdmin(withClaims(auth.Claims{auth.ClaimTypeRole: {"super_administrator"}})))
	assert.True(t, IsAdmin(withClaims(auth.Claims{auth.ClaimRoles: {"viewer", " admin "}})))
	assert.False(t, IsAdmin(withClaims(auth.Claims{auth.ClaimRole: {"administrators"}})))
	assert.False(t, IsAdmin(auth.Anonymous()))
	assert.False(t, IsAdmin(nil))
}

func TestIsAdminMalformedRealmFallsBackToFlatRoles(t *testing.T) {
	p := withClaims(auth.Claims{
		auth.ClaimRealmAccess: {`not json`},
		auth.ClaimRole:        {"admin"},
	})
	assert.True(t, IsAdmin(p))
}

func TestPrincipalRolesCombinesSources(t *testing.T) {
	p := withClaims(auth.Claims{
		auth.ClaimRealmAccess: {`{"roles":["noc"]}`},
		auth.ClaimRole:        {"billing"},
	})
	assert.ElementsMatch(t, []string{"noc", "billing"}, PrincipalRoles(p))
}

func TestRoleSet(t *testing.T) {
	set := NewRoleSet("Admin", "admin", " ", "NOC")
	assert.Equal(t, []string{"Admin", "NOC"}, set.Names())
	assert.True(t, set.Contains("noc"))
	assert.False(t, set.Contains(""))
	assert.True(t, set.ContainsAny([]string{"viewer", "ADMIN"}))
	assert.False(t, set.ContainsAny(nil))
}

func TestRealmRolesSkipsNonStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, RealmRoles(`{"roles":["a",1,null,"","b"]}`))
	assert.Nil(t, RealmRoles(`[]`))
}
