package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store answers permission questions for the users of one workspace.
type Store interface {
	// HasPermission reports whether a live role of the user grants a live
	// permission with the given name.
	HasPermission(ctx context.Context, userID int64, permission string) (bool, error)
	// EffectivePermissions returns the distinct live permission names of the user.
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads role and permission rows from a workspace database.
type Repository struct {
	db DBTX
}

// NewRepository constructs a Repository.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

const hasPermissionSQL = `
SELECT EXISTS (
	SELECT 1
	FROM "UserRoles" ur
	JOIN "Roles" r ON r."Id" = ur."RoleId"
	JOIN "RolePermissions" rp ON rp."RoleId" = r."Id"
	JOIN "Permissions" p ON p."Id" = rp."PermissionId"
	WHERE ur."UserId" = $1
	  AND r."IsDeleted" = false
	  AND p."IsDeleted" = false
	  AND p."Name" = $2
)`

const effectivePermissionsSQL = `
SELECT DISTINCT p."Name"
FROM "UserRoles" ur
JOIN "Roles" r ON r."Id" = ur."RoleId"
JOIN "RolePermissions" rp ON rp."RoleId" = r."Id"
JOIN "Permissions" p ON p."Id" = rp."PermissionId"
WHERE ur."UserId" = $1
  AND r."IsDeleted" = false
  AND p."IsDeleted" = false
ORDER BY p."Name"`

// HasPermission implements Store.
func (r *Repository) HasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, hasPermissionSQL, userID, permission).Scan(&exists); err != nil {
		return false, storeError("has permission", err)
	}
	return exists, nil
}

// EffectivePermissions implements Store.
func (r *Repository) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, effectivePermissionsSQL, userID)
	if err != nil {
		return nil, storeError("effective permissions", err)
	}
	perms, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storeError("effective permissions", err)
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}

var _ Store = (*Repository)(nil)
