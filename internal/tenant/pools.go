package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Provider hands out the relational store of a workspace. The pool stays open
// at least until release is called; extra calls to release are no-ops.
type Provider interface {
	Pool(ctx context.Context, id ID) (pool *pgxpool.Pool, release func(), err error)
}

// PoolFactory opens a pool for a DSN.
type PoolFactory func(ctx context.Context, dsn string) (*pgxpool.Pool, error)

// poolEntry counts the callers holding a pool. Fields are guarded by
// PoolProvider.mu.
type poolEntry struct {
	id      ID
	pool    *pgxpool.Pool
	holders int
	evicted bool
	closed  bool
}

// PoolProvider lazily opens one pgx pool per workspace and keeps the most
// recently used ones open. An evicted pool is closed once its last holder
// releases it.
type PoolProvider struct {
	dsnTemplate string
	open        PoolFactory
	logger      *slog.Logger

	mu    sync.Mutex
	pools *lru.Cache[ID, *poolEntry]
}

// NewPoolProvider constructs a PoolProvider. dsnTemplate must contain exactly
// one %s verb, replaced by the workspace id.
func NewPoolProvider(dsnTemplate string, size int, open PoolFactory, logger *slog.Logger) (*PoolProvider, error) {
	if strings.Count(dsnTemplate, "%s") != 1 {
		return nil, fmt.Errorf("tenant: dsn template must contain one %%s, got %q", dsnTemplate)
	}
	if open == nil {
		open = func(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
			return pgxpool.New(ctx, dsn)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 32
	}
	p := &PoolProvider{dsnTemplate: dsnTemplate, open: open, logger: logger}
	pools, err := lru.NewWithEvict[ID, *poolEntry](size, func(_ ID, e *poolEntry) {
		// Runs inside Add, Purge or Remove, all called with p.mu held.
		e.evicted = true
		p.closeIdle(e)
	})
	if err != nil {
		return nil, fmt.Errorf("tenant: pool cache: %w", err)
	}
	p.pools = pools
	return p, nil
}

// Pool implements Provider.
func (p *PoolProvider) Pool(ctx context.Context, id ID) (*pgxpool.Pool, func(), error) {
	if id == "" {
		return nil, nil, ErrUnresolved
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.pools.Get(id)
	if !ok {
		pool, err := p.open(ctx, p.DSN(id))
		if err != nil {
			return nil, nil, fmt.Errorf("tenant: open pool for %s: %w", id, err)
		}
		e = &poolEntry{id: id, pool: pool}
		p.pools.Add(id, e)
	}
	e.holders++
	var once sync.Once
	return e.pool, func() { once.Do(func() { p.release(e) }) }, nil
}

func (p *PoolProvider) release(e *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.holders--
	p.closeIdle(e)
}

// closeIdle closes an evicted pool nobody holds. Callers hold p.mu.
func (p *PoolProvider) closeIdle(e *poolEntry) {
	if !e.evicted || e.holders > 0 || e.closed {
		return
	}
	e.closed = true
	p.logger.Info("closing workspace pool", slog.String("tenant", e.id.String()))
	go e.pool.Close()
}

// DSN renders the connection string of a workspace.
func (p *PoolProvider) DSN(id ID) string {
	return fmt.Sprintf(p.dsnTemplate, id)
}

// Len returns the number of cached pools.
func (p *PoolProvider) Len() int {
	return p.pools.Len()
}

// Close closes every pool, held or not. It is meant for shutdown, after the
// HTTP server has drained.
func (p *PoolProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.pools.Keys() {
		if e, ok := p.pools.Peek(id); ok && !e.closed {
			e.closed = true
			e.pool.Close()
		}
	}
	p.pools.Purge()
}
