package perf

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openradius/openradius/internal/auth"
	"github.com/openradius/openradius/internal/authz"
	"github.com/openradius/openradius/internal/rbac"
	"github.com/openradius/openradius/internal/routemap"
	"github.com/openradius/openradius/internal/shared"
	"github.com/openradius/openradius/internal/tenant"
)

type memoryStore map[int64][]string

func (s memoryStore) Store(context.Context) (rbac.Store, error) { return s, nil }

func (s memoryStore) HasPermission(_ context.Context, userID int64, permission string) (bool, error) {
	return slices.Contains(s[userID], permission), nil
}

func (s memoryStore) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return s[userID], nil
}

type request struct {
	method, path string
}

var mix = []request{
	{http.MethodGet, "/api/radius/users"},
	{http.MethodGet, "/api/radius/users/1042/sessions"},
	{http.MethodDelete, "/api/radius/users/1042"},
	{http.MethodGet, "/api/network/olts/7/onus"},
	{http.MethodPost, "/api/billing/payments/9/refund"},
	{http.MethodGet, "/api/users/me"},
	{http.MethodGet, "/api/unknown/thing"},
}

func newEngine(tb testing.TB, opts ...rbac.Option) *authz.Engine {
	tb.Helper()
	table, err := routemap.Table()
	require.NoError(tb, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memoryStore{5: shared.RadiusScopes()}
	engine, err := authz.NewEngine(authz.Options{
		Table:      table,
		Authorizer: rbac.NewResolver(store, append(opts, rbac.WithLogger(logger))...),
		Logger:     logger,
	})
	require.NoError(tb, err)
	return engine
}

func operator() *auth.Principal {
	return auth.NewPrincipal("operator", auth.Claims{auth.ClaimSystemUserID: {"5"}})
}

func BenchmarkDecide(b *testing.B) {
	engine := newEngine(b)
	p := operator()
	ctx := tenant.WithID(context.Background(), "acme")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := mix[i%len(mix)]
		if _, err := engine.Decide(ctx, p, req.method, req.path); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecideCached(b *testing.B) {
	cache, err := rbac.NewMemoryCache(1024, time.Minute)
	require.NoError(b, err)
	engine := newEngine(b, rbac.WithCache(cache))
	p := operator()
	ctx := tenant.WithID(context.Background(), "acme")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := mix[i%len(mix)]
		if _, err := engine.Decide(ctx, p, req.method, req.path); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTableMatch(b *testing.B) {
	table, err := routemap.Table()
	require.NoError(b, err)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := mix[i%len(mix)]
		table.Match(req.method, req.path)
	}
}

// The store round trip dominates in production; without it a decision has to
// stay far below the SlowAuthorization alert threshold.
func TestDecisionLatencyTarget(t *testing.T) {
	engine := newEngine(t)
	p := operator()
	ctx := tenant.WithID(context.Background(), "acme")

	samples := make([]time.Duration, 0, 50*len(mix))
	for i := 0; i < 50; i++ {
		for _, req := range mix {
			start := time.Now()
			_, err := engine.Decide(ctx, p, req.method, req.path)
			samples = append(samples, time.Since(start))
			require.NoError(t, err)
		}
	}
	threshold := 5 * time.Millisecond
	if p95 := percentile95(samples); p95 > threshold {
		t.Fatalf("authorization latency regression: p95=%s threshold=%s", p95, threshold)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
