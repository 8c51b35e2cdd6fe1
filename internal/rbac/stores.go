package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openradius/openradius/internal/platform/db"
	"github.com/openradius/openradius/internal/tenant"
)

// StoreProvider returns the permission store of the workspace on ctx.
type StoreProvider interface {
	Store(ctx context.Context) (Store, error)
}

// TenantStores resolves stores through the workspace pool provider.
type TenantStores struct {
	Pools tenant.Provider
}

// Store implements StoreProvider.
func (s TenantStores) Store(ctx context.Context) (Store, error) {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, tenant.ErrUnresolved)
	}
	return pooledStore{pools: s.Pools, id: id}, nil
}

// pooledStore holds the workspace pool and a connection only while a query
// runs.
type pooledStore struct {
	pools tenant.Provider
	id    tenant.ID
}

func (s pooledStore) withRepository(ctx context.Context, fn func(*Repository) error) error {
	pool, release, err := s.pools.Pool(ctx, s.id)
	if err != nil {
		return storeError("open store", err)
	}
	defer release()

	err = db.WithConn(ctx, pool, func(conn *pgxpool.Conn) error {
		return fn(NewRepository(conn))
	})
	if err != nil {
		return wrapAcquire(err)
	}
	return nil
}

func (s pooledStore) HasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	var granted bool
	err := s.withRepository(ctx, func(repo *Repository) error {
		var err error
		granted, err = repo.HasPermission(ctx, userID, permission)
		return err
	})
	return granted, err
}

func (s pooledStore) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	var perms []string
	err := s.withRepository(ctx, func(repo *Repository) error {
		var err error
		perms, err = repo.EffectivePermissions(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// Repository errors are already classified; acquire failures are not.
func wrapAcquire(err error) error {
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.Canceled) {
		return err
	}
	return storeError("acquire", err)
}
