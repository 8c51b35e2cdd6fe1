package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openradius/openradius/internal/auth"
	"github.com/openradius/openradius/internal/platform/httpx"
	"github.com/openradius/openradius/internal/rbac"
	"github.com/openradius/openradius/internal/shared"
)

// DecisionHeader carries the decision id on refused responses so clients can
// quote it when reporting a problem.
const DecisionHeader = "X-Authz-Decision"

type decisionContextKey struct{}

// WithDecision stores the decision in context.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, d)
}

// DecisionFromContext returns the decision the middleware made for the request.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

// Middleware authorizes every request before the handler runs. It expects the
// principal and workspace on the context.
//
//	allowed            -> handler
//	unauthenticated    -> 401
//	denied             -> 403
//	store unavailable  -> 503
//	anything else      -> 500
func (e *Engine) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := rbac.WithRequestMemo(r.Context())
		principal := auth.FromContext(ctx)

		d, err := e.Decide(ctx, principal, r.Method, RoutingPath(r))
		ctx = shared.ContextWithRoute(ctx, d.Route)
		ctx = WithDecision(ctx, d)
		if err != nil {
			e.fail(w, r.WithContext(ctx), d, err, time.Since(start))
			return
		}
		e.observe(d.Effect.String(), string(d.Reason), d.Source, time.Since(start))

		switch d.Effect {
		case rbac.Allow:
			next.ServeHTTP(w, r.WithContext(ctx))
		case rbac.Deny:
			w.Header().Set(DecisionHeader, d.ID.String())
			httpx.Problem(w, http.StatusForbidden, "Forbidden", d.Err().Error())
		default:
			w.Header().Set("WWW-Authenticate", `Bearer realm="openradius"`)
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthenticated.Error())
		}
	})
}

// RoutingPath returns the path chi routes the request on: the raw path when the
// request carries escapes such as %2F, the decoded path otherwise. Matching on
// anything else lets "/users/7%2Fx" reach a "/users/{id}" handler while the
// table sees four segments.
func RoutingPath(r *http.Request) string {
	if r.URL.RawPath != "" {
		return r.URL.RawPath
	}
	return r.URL.Path
}

func (e *Engine) fail(w http.ResponseWriter, r *http.Request, d Decision, err error, elapsed time.Duration) {
	ctx := r.Context()
	w.Header().Set(DecisionHeader, d.ID.String())
	switch {
	case errors.Is(err, context.Canceled):
		e.observe("error", "canceled", d.Source, elapsed)
		e.logger.DebugContext(ctx, "authorization abandoned", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Request Canceled", "")
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		e.observe("error", "store_unavailable", d.Source, elapsed)
		e.logger.ErrorContext(ctx, "permission store unavailable",
			slog.String("permission", d.Permission),
			slog.String("sqlstate", rbac.SQLState(err)),
			slog.Any("error", err),
		)
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "permission lookup unavailable")
	default:
		e.observe("error", "internal", d.Source, elapsed)
		e.logger.ErrorContext(ctx, "authorization failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (e *Engine) observe(effect, reason string, source Source, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveDecision(effect, reason, string(source), elapsed)
}
