package tenant

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/openradius/openradius/internal/auth"
	"github.com/openradius/openradius/internal/platform/httpx"
)

// Resolver places the workspace id on the request context. When Claim is set,
// authenticated callers are bound to the workspace in their token: the header
// is ignored and a token without the claim is rejected, because a system user
// id only means something inside the workspace that issued it. Header alone
// serves deployments whose tokens carry no workspace.
type Resolver struct {
	Header string
	Claim  string
	Logger *slog.Logger
}

// Middleware resolves the workspace or rejects the request with 400.
func (res Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := auth.FromContext(r.Context())
		bound := res.Claim != "" && principal.IsAuthenticated()
		var raw string
		if bound {
			raw = strings.TrimSpace(principal.Claim(res.Claim))
		} else if res.Header != "" {
			raw = strings.TrimSpace(r.Header.Get(res.Header))
		}
		if raw == "" {
			// Anonymous callers are turned away with 401 by the authorization step.
			if !principal.IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}
			if bound {
				res.warn(r, "token carries no workspace claim", slog.String("claim", res.Claim))
			}
			httpx.Problem(w, http.StatusBadRequest, "Workspace Required", ErrUnresolved.Error())
			return
		}
		id, err := ParseID(raw)
		if err != nil {
			res.warn(r, "rejected workspace id", slog.String("value", raw))
			httpx.Problem(w, http.StatusBadRequest, "Invalid Workspace", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

func (res Resolver) warn(r *http.Request, msg string, attrs ...any) {
	if res.Logger != nil {
		res.Logger.WarnContext(r.Context(), msg, attrs...)
	}
}
