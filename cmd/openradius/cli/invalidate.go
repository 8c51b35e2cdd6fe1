package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/openradius/openradius/internal/tenant"
)

// Invalidator drops cached permission sets and tells every replica to do the
// same. rbac.RedisCache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, tid tenant.ID, userID int64) error
	InvalidateTenant(ctx context.Context, tid tenant.ID) error
}

// InvalidateOptions defines the arguments of the invalidate command.
type InvalidateOptions struct {
	Workspace string
	// User is the system user id; empty invalidates the whole workspace.
	User   string
	Stdout io.Writer
	Stderr io.Writer
}

// InvalidateCommand revokes cached permissions after a role or grant change.
func InvalidateCommand(ctx context.Context, inv Invalidator, opts InvalidateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	tid, err := tenant.ParseID(opts.Workspace)
	if err != nil {
		_, _ = fmt.Fprintln(opts.Stderr, "invalidate: usage: invalidate WORKSPACE [SYSTEM_USER_ID]")
		return 1
	}
	if opts.User == "" {
		if err := inv.InvalidateTenant(ctx, tid); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "invalidate: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "invalidated workspace %s\n", tid)
		return 0
	}
	userID, err := strconv.ParseInt(opts.User, 10, 64)
	if err != nil || userID <= 0 {
		_, _ = fmt.Fprintf(opts.Stderr, "invalidate: invalid system user id %q\n", opts.User)
		return 1
	}
	if err := inv.Invalidate(ctx, tid, userID); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "invalidate: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "invalidated user %d in workspace %s\n", userID, tid)
	return 0
}
