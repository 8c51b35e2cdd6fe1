package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openradius/openradius/internal/authz"
)

func sampleEntries() []authz.RouteEntry {
	return []authz.RouteEntry{
		authz.Route(http.MethodGet, "api/nas/*/status", "network.monitoring.view"),
		authz.Route(http.MethodGet, "api/nas/*", "network.nas.view"),
		authz.AuthenticatedRoute(http.MethodGet, "api/users/me"),
	}
}

func TestRoutesCommandHuman(t *testing.T) {
	var out bytes.Buffer
	code := RoutesCommand(sampleEntries(), RoutesOptions{Stdout: &out})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "api/nas/*/status")
	assert.Contains(t, out.String(), "(authenticated)")
	assert.Contains(t, out.String(), "3 route(s), table is valid.")
}

func TestRoutesCommandRejectsShadowedEntries(t *testing.T) {
	entries := append(sampleEntries(), authz.Route(http.MethodGet, "api/nas/export", "network.nas.view"))

	var out bytes.Buffer
	code := RoutesCommand(entries, RoutesOptions{Stdout: &out, JSONOutput: true})
	assert.Equal(t, 10, code)

	var summary RoutesSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.False(t, summary.OK)
	assert.NotEmpty(t, summary.Error)
	assert.Len(t, summary.Entries, 4)
}

func TestExplainCommand(t *testing.T) {
	table := authz.MustTable(sampleEntries())

	var out bytes.Buffer
	code := ExplainCommand(table, ExplainOptions{Method: "get", Path: "/api/nas/4/status", Stdout: &out, JSONOutput: true})
	require.Equal(t, 0, code)
	var exp Explanation
	require.NoError(t, json.Unmarshal(out.Bytes(), &exp))
	assert.True(t, exp.Matched)
	assert.Equal(t, 0, exp.Index)
	assert.Equal(t, "network.monitoring.view", exp.Permission)

	out.Reset()
	code = ExplainCommand(table, ExplainOptions{Method: "GET", Path: "/api/billing", Unmapped: authz.UnmappedDeny, Stdout: &out})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "unmapped, denied")

	out.Reset()
	code = ExplainCommand(table, ExplainOptions{Method: "GET", Path: "/api/users/me", Stdout: &out})
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "requires authentication only")

	out.Reset()
	code = ExplainCommand(table, ExplainOptions{Method: "GET", Path: "/api/nas/4/status?window=1h", Stdout: &out, JSONOutput: true})
	require.Equal(t, 0, code)
	require.NoError(t, json.Unmarshal(out.Bytes(), &exp))
	assert.Equal(t, "api/nas/4/status", exp.Path)
	assert.Equal(t, "network.monitoring.view", exp.Permission)

	var errOut bytes.Buffer
	code = ExplainCommand(table, ExplainOptions{Method: "FETCH", Path: "/api", Stdout: &out, Stderr: &errOut})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "usage")
}
