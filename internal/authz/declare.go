package authz

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openradius/openradius/internal/platform/httpx"
)

// DeclaredHandler is a handler that names the permission it requires. The
// declaration is collected from the router and wins over the route table.
type DeclaredHandler struct {
	Permission string
	Handler    http.Handler
	// Logger reports handlers reached without their decision. Nil means
	// slog.Default.
	Logger *slog.Logger
}

// Declare wraps h with a required permission. An empty permission declares an
// authenticated-only endpoint.
func Declare(permission string, h http.HandlerFunc) *DeclaredHandler {
	return &DeclaredHandler{Permission: strings.TrimSpace(permission), Handler: h}
}

// Declare is the package level Declare logging through the engine's logger.
func (e *Engine) Declare(permission string, h http.HandlerFunc) *DeclaredHandler {
	declared := Declare(permission, h)
	declared.Logger = e.logger
	return declared
}

// ServeHTTP runs the wrapped handler only when the request was allowed by a
// decision for this declaration. A declared handler mounted outside the
// authorization middleware, or missed by CollectDeclared, fails closed.
func (h *DeclaredHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d, ok := DecisionFromContext(r.Context())
	if !ok || !d.Allowed() || d.Source != SourceDeclared || d.Permission != h.Permission {
		logger := h.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "declared handler reached without its decision",
			slog.String("permission", h.Permission),
			slog.String("path", r.URL.Path),
		)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", ErrNotEvaluated.Error())
		return
	}
	h.Handler.ServeHTTP(w, r)
}

// CollectDeclared walks the router and returns one entry per declared handler,
// keyed by the chi route pattern.
func CollectDeclared(routes chi.Routes) ([]RouteEntry, error) {
	var entries []RouteEntry
	err := chi.Walk(routes, func(method, route string, handler http.Handler, _ ...func(http.Handler) http.Handler) error {
		declared, ok := unwrapDeclared(handler)
		if !ok {
			return nil
		}
		if !KnownMethod(method) {
			return fmt.Errorf("%w: declared %s %s uses an unsupported method", ErrInvalidRouteTable, method, route)
		}
		if strings.HasSuffix(route, "*") {
			return fmt.Errorf("%w: declared %s %s ends in a catch-all", ErrInvalidRouteTable, method, route)
		}
		entries = append(entries, RouteEntry{Method: method, Pattern: route, Permission: declared.Permission})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func unwrapDeclared(h http.Handler) (*DeclaredHandler, bool) {
	for {
		switch v := h.(type) {
		case *DeclaredHandler:
			return v, true
		case *chi.ChainHandler:
			h = v.Endpoint
		default:
			return nil, false
		}
	}
}

// SortBySpecificity orders entries so that, among patterns of the same length,
// literals come before wildcards segment by segment. This is the order chi
// itself prefers when routing.
func SortBySpecificity(entries []RouteEntry) []RouteEntry {
	out := make([]RouteEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := splitPath(out[i].Pattern), splitPath(out[j].Pattern)
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			wa, wb := isWildcard(a[k]), isWildcard(b[k])
			if wa != wb {
				return !wa
			}
		}
		return false
	})
	return out
}
