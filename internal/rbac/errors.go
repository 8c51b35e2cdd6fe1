package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openradius/openradius/internal/platform/httpx"
)

var (
	// ErrStoreUnavailable indicates the permission lookup could not complete.
	// It is never converted into an Allow or a Deny.
	ErrStoreUnavailable = fmt.Errorf("rbac: permission store: %w", httpx.ErrUnavailable)
	// ErrInvalidCacheTTL indicates a cache TTL outside the documented revocation window.
	ErrInvalidCacheTTL = errors.New("rbac: invalid cache ttl")
)

// storeError wraps a store failure. Client cancellation is passed through
// unwrapped so callers can tell an abandoned request from an outage.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("rbac: %s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// SQLState returns the PostgreSQL error code carried by err, if any.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
