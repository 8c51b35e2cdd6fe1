// Package tenant resolves the workspace a request belongs to and hands out the
// workspace's relational store.
package tenant

import (
	"context"
	"errors"
	"regexp"
)

// ID identifies a workspace.
type ID string

func (id ID) String() string { return string(id) }

var (
	// ErrUnresolved indicates the request carries no workspace.
	ErrUnresolved = errors.New("tenant: workspace not resolved")
	// ErrInvalidID indicates a workspace id outside the accepted alphabet.
	ErrInvalidID = errors.New("tenant: invalid workspace id")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ParseID validates a raw workspace id. The id ends up in a database name, so
// only a conservative alphabet is accepted.
func ParseID(raw string) (ID, error) {
	if !idPattern.MatchString(raw) {
		return "", ErrInvalidID
	}
	return ID(raw), nil
}

type idContextKey struct{}

// WithID stores the workspace id in context.
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, idContextKey{}, id)
}

// IDFromContext returns the workspace id stored in context.
func IDFromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(idContextKey{}).(ID)
	return id, ok && id != ""
}
