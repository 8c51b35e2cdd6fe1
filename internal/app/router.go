package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openradius/openradius/internal/authz"
	"github.com/openradius/openradius/internal/observability"
	"github.com/openradius/openradius/internal/rbac"
	"github.com/openradius/openradius/internal/shared"
	"github.com/openradius/openradius/internal/tenant"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Authenticate   func(http.Handler) http.Handler
	TenantResolver tenant.Resolver
	Engine         *authz.Engine
	RBACHandler    *rbac.Handler
	Metrics        *observability.Metrics
	// MountAPI registers additional API handlers below /api.
	MountAPI func(r chi.Router)
}

// NewRouter constructs the chi.Router with OpenRadius defaults and installs
// the handler level permission declarations on the engine.
func NewRouter(params RouterParams) (http.Handler, error) {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.Authenticate != nil {
			r.Use(params.Authenticate)
		}
		r.Use(params.TenantResolver.Middleware)
		r.Use(params.Engine.Middleware)

		if params.RBACHandler != nil {
			r.Route("/users", params.RBACHandler.MountRoutes)
		}
		r.Method(http.MethodGet, "/authz/routes", params.Engine.Declare(shared.PermPermissionsView, params.Engine.RoutesHandler))
		if params.MountAPI != nil {
			params.MountAPI(r)
		}
	})

	declared, err := authz.CollectDeclared(r)
	if err != nil {
		return nil, err
	}
	if err := params.Engine.SetDeclared(declared); err != nil {
		return nil, err
	}
	return r, nil
}
