package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthrough(next http.Handler) http.Handler { return next }

func declaredRouter(engine *Engine) chi.Router {
	r := chi.NewRouter()
	if engine != nil {
		r.Use(engine.Middleware)
	}
	r.Route("/api/radius/users", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Method(http.MethodGet, "/{id}/audit", Declare("radius.users.audit", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		r.With(passthrough).Method(http.MethodPost, "/{id}/disconnect", Declare("radius.users.disconnect", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
	})
	return r
}

func TestCollectDeclared(t *testing.T) {
	entries, err := CollectDeclared(declaredRouter(nil))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byMethod := map[string]RouteEntry{}
	for _, e := range entries {
		byMethod[e.Method] = e
	}
	assert.Equal(t, "/api/radius/users/{id}/audit", byMethod[http.MethodGet].Pattern)
	assert.Equal(t, "radius.users.audit", byMethod[http.MethodGet].Permission)
	assert.Equal(t, "/api/radius/users/{id}/disconnect", byMethod[http.MethodPost].Pattern, "chained handlers are unwrapped")
}

func TestCollectDeclaredRejectsCatchAll(t *testing.T) {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/files/*", Declare("files.view", func(http.ResponseWriter, *http.Request) {}))

	_, err := CollectDeclared(r)
	assert.ErrorIs(t, err, ErrInvalidRouteTable)
}

func TestDeclaredHandlersAreAuthorized(t *testing.T) {
	store := &grantStore{grants: map[int64][]string{
		7: {"radius.users.view", "radius.users.audit"},
		8: {"radius.users.view"},
	}}
	engine, _ := newMiddlewareEngine(t, store)
	router := declaredRouter(engine)

	entries, err := CollectDeclared(router)
	require.NoError(t, err)
	require.NoError(t, engine.SetDeclared(entries))

	rr := serveAs(t, router, userWith("7", nil), http.MethodGet, "/api/radius/users/3/audit")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serveAs(t, router, userWith("8", nil), http.MethodGet, "/api/radius/users/3/audit")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serveAs(t, router, userWith("7", nil), http.MethodPost, "/api/radius/users/3/disconnect")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDeclaredHandlerFailsClosedWithoutDecision(t *testing.T) {
	router := declaredRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/radius/users/3/audit", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	// Allowed by the table, but the declaration was never installed.
	store := &grantStore{grants: map[int64][]string{7: {"radius.users.view"}}}
	engine, _ := newMiddlewareEngine(t, store)
	router = declaredRouter(engine)
	rr = serveAs(t, router, userWith("7", nil), http.MethodGet, "/api/radius/users/3/audit")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestEngineDeclareLogsThroughEngineLogger(t *testing.T) {
	store := &grantStore{grants: map[int64][]string{7: {"radius.users.view"}}}
	engine, logs := newTestEngine(t, store, UnmappedAuthenticated)

	r := chi.NewRouter()
	r.Use(engine.Middleware)
	r.Method(http.MethodGet, "/api/radius/users/{id}/audit", engine.Declare("radius.users.audit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := serveAs(t, r, userWith("7", nil), http.MethodGet, "/api/radius/users/3/audit")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, logs.String(), "declared handler reached without its decision")
	assert.Contains(t, logs.String(), `"permission":"radius.users.audit"`)
}

func TestSortBySpecificity(t *testing.T) {
	sorted := SortBySpecificity([]RouteEntry{
		Route(http.MethodGet, "api/nas/{id}", "nas.view"),
		Route(http.MethodGet, "api/nas/{id}/status", "monitoring.view"),
		Route(http.MethodGet, "api/nas/export", "nas.export"),
		Route(http.MethodGet, "api/nas", "nas.view"),
	})

	patterns := make([]string, 0, len(sorted))
	for _, e := range sorted {
		patterns = append(patterns, e.Pattern)
	}
	require.Len(t, patterns, 4)
	assert.Equal(t, "nas.view", sorted[0].Permission)
	assert.Equal(t, "nas.export", sorted[1].Permission)
	assert.Equal(t, "nas.view", sorted[2].Permission)
	assert.Equal(t, "monitoring.view", sorted[3].Permission)

	_, err := NewTable(sorted)
	assert.NoError(t, err, "sorted declarations never shadow each other")
}
