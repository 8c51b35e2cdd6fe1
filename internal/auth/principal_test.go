package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemUserID(t *testing.T) {
	cases := map[string]struct {
		claims Claims
		id     int64
		ok     bool
	}{
		"camel case":  {Claims{ClaimSystemUserID: {"42"}}, 42, true},
		"snake case":  {Claims{claimSystemUserIDAlt: {" 7 "}}, 7, true},
		"missing":     {Claims{}, 0, false},
		"not number":  {Claims{ClaimSystemUserID: {"abc"}}, 0, false},
		"zero":        {Claims{ClaimSystemUserID: {"0"}}, 0, false},
		"negative":    {Claims{ClaimSystemUserID: {"-1"}}, 0, false},
		"blank first": {Claims{ClaimSystemUserID: {""}, claimSystemUserIDAlt: {"9"}}, 9, true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			id, ok := NewPrincipal("alice", tc.claims).SystemUserID()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.id, id)
		})
	}
}

func TestPrincipalNilSafety(t *testing.T) {
	var p *Principal
	assert.False(t, p.IsAuthenticated())
	assert.Empty(t, p.Claim(ClaimRole))
	assert.Nil(t, p.FlatRoles())
	assert.Equal(t, "anonymous", p.LogSubject())
	_, ok := p.SystemUserID()
	assert.False(t, ok)
}

func TestFlatRoles(t *testing.T) {
	claims := Claims{}
	claims.Add(ClaimRole, "editor")
	claims.Add(ClaimRoles, "noc")
	claims.Add(ClaimTypeRole, "billing")
	assert.Equal(t, []string{"editor", "noc", "billing"}, NewPrincipal("alice", claims).FlatRoles())
}

func TestPrincipalContext(t *testing.T) {
	assert.False(t, FromContext(context.Background()).IsAuthenticated())

	p := NewPrincipal("", Claims{ClaimSubject: {"sub-1"}})
	assert.Equal(t, "sub-1", p.Subject)
	assert.Same(t, p, FromContext(WithPrincipal(context.Background(), p)))
	assert.False(t, FromContext(WithPrincipal(context.Background(), nil)).IsAuthenticated())
}
