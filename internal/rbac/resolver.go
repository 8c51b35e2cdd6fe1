package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/openradius/openradius/internal/auth"
	"github.com/openradius/openradius/internal/tenant"
)

// Resolver decides whether a principal holds a permission. It is safe for
// concurrent use; the only state it shares between requests is the optional
// cache.
type Resolver struct {
	stores StoreProvider
	cache  PermissionCache
	logger *slog.Logger
	group  singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables cross-request caching of permission sets.
func WithCache(cache PermissionCache) Option {
	return func(r *Resolver) { r.cache = cache }
}

// WithLogger sets the audit logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver constructs a Resolver.
func NewResolver(stores StoreProvider, opts ...Option) *Resolver {
	r := &Resolver{stores: stores, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Authorize evaluates req for p. The steps short-circuit in order:
// unauthenticated principals are Indeterminate, admins are allowed without
// touching the store, principals without a system user id are denied, and
// everyone else is answered by the workspace store.
//
// A non-nil error means no decision was reached; it is never an Allow.
func (r *Resolver) Authorize(ctx context.Context, p *auth.Principal, req Requirement) (Outcome, error) {
	if !p.IsAuthenticated() {
		return Outcome{Effect: Indeterminate, Reason: ReasonUnauthenticated}, nil
	}
	if IsAdmin(p) {
		return Outcome{Effect: Allow, Reason: ReasonAdminBypass}, nil
	}

	userID, ok := p.SystemUserID()
	if !ok {
		r.logger.WarnContext(ctx, "principal has no system user id",
			slog.String("subject", p.LogSubject()),
			slog.String("permission", req.Permission),
		)
		return Outcome{Effect: Deny, Reason: ReasonMissingIdentity}, nil
	}

	if err := ctx.Err(); err != nil {
		return Outcome{Effect: Indeterminate}, err
	}
	granted, err := r.granted(ctx, userID, req.Permission)
	if err != nil {
		return Outcome{Effect: Indeterminate}, err
	}
	if !granted {
		r.logger.InfoContext(ctx, "permission denied",
			slog.String("subject", p.LogSubject()),
			slog.Int64("user_id", userID),
			slog.String("permission", req.Permission),
		)
		return Outcome{Effect: Deny, Reason: ReasonNotGranted}, nil
	}
	return Outcome{Effect: Allow, Reason: ReasonGranted}, nil
}

func (r *Resolver) granted(ctx context.Context, userID int64, permission string) (bool, error) {
	tid, _ := tenant.IDFromContext(ctx)
	key := memoKey{tenant: tid, userID: userID, permission: permission}
	memo := memoFromContext(ctx)
	if granted, ok := memo.get(key); ok {
		return granted, nil
	}

	var (
		granted bool
		err     error
	)
	if r.cache == nil {
		granted, err = r.hasPermission(ctx, tid, userID, permission)
	} else {
		var perms []string
		perms, err = r.permissionSet(ctx, tid, userID)
		granted = slices.Contains(perms, permission)
	}
	if err != nil {
		return false, err
	}
	memo.put(key, granted)
	return granted, nil
}

func (r *Resolver) hasPermission(ctx context.Context, tid tenant.ID, userID int64, permission string) (bool, error) {
	flightKey := "has:" + tid.String() + ":" + strconv.FormatInt(userID, 10) + ":" + permission
	v, err := r.coalesce(ctx, flightKey, func(ctx context.Context) (any, error) {
		store, err := r.stores.Store(ctx)
		if err != nil {
			return false, err
		}
		return store.HasPermission(ctx, userID, permission)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (r *Resolver) permissionSet(ctx context.Context, tid tenant.ID, userID int64) ([]string, error) {
	perms, found, err := r.cache.Get(ctx, tid, userID)
	if err != nil {
		r.logger.WarnContext(ctx, "permission cache read failed", slog.Any("error", err))
	} else if found {
		return perms, nil
	}

	flightKey := "set:" + tid.String() + ":" + strconv.FormatInt(userID, 10)
	v, err := r.coalesce(ctx, flightKey, func(ctx context.Context) (any, error) {
		return r.loadPermissionSet(ctx, tid, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// loadPermissionSet reads the set from the store and caches it unless the
// workspace was invalidated while the query ran.
func (r *Resolver) loadPermissionSet(ctx context.Context, tid tenant.ID, userID int64) ([]string, error) {
	gen, cacheErr := r.cache.Generation(ctx, tid)
	store, err := r.stores.Store(ctx)
	if err != nil {
		return nil, err
	}
	perms, err := store.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cacheErr == nil {
		var stored bool
		stored, cacheErr = r.cache.SetIfGeneration(ctx, tid, userID, gen, perms)
		if cacheErr == nil && !stored {
			r.logger.DebugContext(ctx, "permission set invalidated during load, not cached",
				slog.Int64("user_id", userID))
		}
	}
	if cacheErr != nil {
		r.logger.WarnContext(ctx, "permission cache write failed", slog.Any("error", cacheErr))
	}
	return perms, nil
}

// coalesce shares one in-flight load between concurrent callers. A caller
// whose own context is still live does not inherit the cancellation of the
// caller that started the load.
func (r *Resolver) coalesce(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	ch := r.group.DoChan(key, func() (any, error) {
		return load(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil && res.Shared && ctx.Err() == nil &&
			(errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)) {
			return load(ctx)
		}
		return res.Val, res.Err
	}
}

// Invalidate drops the cached permissions of one user.
func (r *Resolver) Invalidate(ctx context.Context, tid tenant.ID, userID int64) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Invalidate(ctx, tid, userID); err != nil {
		return fmt.Errorf("rbac: invalidate: %w", err)
	}
	return nil
}

// InvalidateTenant drops the cached permissions of a whole workspace.
func (r *Resolver) InvalidateTenant(ctx context.Context, tid tenant.ID) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.InvalidateTenant(ctx, tid); err != nil {
		return fmt.Errorf("rbac: invalidate tenant: %w", err)
	}
	return nil
}

// EffectivePermissions lists the permissions a principal holds in the
// workspace on ctx. Admins hold every permission and get a nil list with
// admin set to true.
func (r *Resolver) EffectivePermissions(ctx context.Context, p *auth.Principal) (perms []string, admin bool, err error) {
	if !p.IsAuthenticated() {
		return nil, false, nil
	}
	if IsAdmin(p) {
		return nil, true, nil
	}
	userID, ok := p.SystemUserID()
	if !ok {
		return []string{}, false, nil
	}
	if r.cache != nil {
		tid, _ := tenant.IDFromContext(ctx)
		perms, err = r.permissionSet(ctx, tid, userID)
		return perms, false, err
	}
	store, err := r.stores.Store(ctx)
	if err != nil {
		return nil, false, err
	}
	perms, err = store.EffectivePermissions(ctx, userID)
	return perms, false, err
}
