package rbac

import (
	"context"
	"sync"

	"github.com/openradius/openradius/internal/tenant"
)

type memoKey struct {
	tenant     tenant.ID
	userID     int64
	permission string
}

// requestMemo remembers store answers for the lifetime of one request.
type requestMemo struct {
	mu     sync.Mutex
	grants map[memoKey]bool
}

type memoContextKey struct{}

// WithRequestMemo returns a context whose permission lookups are answered at
// most once per (workspace, user, permission).
func WithRequestMemo(ctx context.Context) context.Context {
	if memoFromContext(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, memoContextKey{}, &requestMemo{grants: make(map[memoKey]bool)})
}

func memoFromContext(ctx context.Context) *requestMemo {
	m, _ := ctx.Value(memoContextKey{}).(*requestMemo)
	return m
}

func (m *requestMemo) get(key memoKey) (bool, bool) {
	if m == nil {
		return false, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	granted, ok := m.grants[key]
	return granted, ok
}

func (m *requestMemo) put(key memoKey, granted bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.grants[key] = granted
	m.mu.Unlock()
}
