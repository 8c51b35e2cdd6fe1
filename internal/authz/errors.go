package authz

import (
	"errors"
	"fmt"

	"github.com/openradius/openradius/internal/platform/httpx"
	"github.com/openradius/openradius/internal/rbac"
	"github.com/openradius/openradius/internal/tenant"
)

var (
	// ErrUnauthenticated indicates the request carries no authenticated principal.
	ErrUnauthenticated = fmt.Errorf("authz: unauthenticated: %w", httpx.ErrUnauthorized)
	// ErrPermissionDenied indicates the principal lacks the required permission.
	ErrPermissionDenied = fmt.Errorf("authz: permission denied: %w", httpx.ErrForbidden)
	// ErrMissingIdentity indicates an authenticated principal without a
	// workspace user id. It is answered like ErrPermissionDenied.
	ErrMissingIdentity = fmt.Errorf("authz: missing system user id: %w", ErrPermissionDenied)
	// ErrUnmappedRoute indicates no route entry matched and the engine is configured to deny.
	ErrUnmappedRoute = fmt.Errorf("authz: unmapped route: %w", ErrPermissionDenied)
	// ErrUnknownPolicy indicates a policy key nobody can resolve.
	ErrUnknownPolicy = errors.New("authz: unknown policy")
	// ErrInvalidRouteTable indicates a route table that cannot be used.
	ErrInvalidRouteTable = errors.New("authz: invalid route table")
	// ErrNotEvaluated indicates a declared handler ran without a matching authorization decision.
	ErrNotEvaluated = errors.New("authz: request was not evaluated")

	// ErrStoreUnavailable indicates the permission lookup could not complete.
	ErrStoreUnavailable = rbac.ErrStoreUnavailable
	// ErrTenantUnresolved indicates a permission lookup without a workspace.
	ErrTenantUnresolved = tenant.ErrUnresolved
)
