package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openradius/openradius/internal/auth"
	"github.com/openradius/openradius/internal/platform/httpx"
	"github.com/openradius/openradius/internal/tenant"
)

// ClaimImpersonator names the claim carrying the subject of an operator
// acting on behalf of another user.
const ClaimImpersonator = "impersonator"

// Handler serves the self-access endpoints of the signed-in user.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver) *Handler {
	return &Handler{logger: logger, resolver: resolver}
}

// MountRoutes registers the self-access routes below /users.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Post("/exit-impersonation", h.exitImpersonation)
}

type profileResponse struct {
	Subject      string   `json:"subject"`
	SystemUserID *int64   `json:"systemUserId,omitempty"`
	Workspace    string   `json:"workspace,omitempty"`
	Roles        []string `json:"roles"`
	Admin        bool     `json:"admin"`
	Permissions  []string `json:"permissions"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	perms, admin, err := h.resolver.EffectivePermissions(r.Context(), principal)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load effective permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := profileResponse{
		Subject:     principal.LogSubject(),
		Roles:       PrincipalRoles(principal),
		Admin:       admin,
		Permissions: perms,
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	if id, ok := principal.SystemUserID(); ok {
		resp.SystemUserID = &id
	}
	if tid, ok := tenant.IDFromContext(r.Context()); ok {
		resp.Workspace = tid.String()
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// exitImpersonation ends an impersonated session. Tokens are stateless, so
// the call is recorded and the client discards the impersonation token.
func (h *Handler) exitImpersonation(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	impersonator := principal.Claim(ClaimImpersonator)
	if impersonator == "" {
		httpx.Problem(w, http.StatusConflict, "Not Impersonating", "the current session is not an impersonation")
		return
	}
	h.logger.InfoContext(r.Context(), "impersonation ended",
		slog.String("subject", principal.LogSubject()),
		slog.String("impersonator", impersonator),
	)
	w.WriteHeader(http.StatusNoContent)
}
