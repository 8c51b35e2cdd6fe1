package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openradius/openradius/internal/auth"
	"github.com/openradius/openradius/internal/rbac"
	"github.com/openradius/openradius/internal/shared"
)

// UnmappedPolicy decides what happens to requests no table entry matches.
type UnmappedPolicy string

const (
	// UnmappedAuthenticated lets any authenticated principal through.
	UnmappedAuthenticated UnmappedPolicy = "authenticated"
	// UnmappedDeny refuses the request.
	UnmappedDeny UnmappedPolicy = "deny"
)

// ParseUnmappedPolicy parses a configured policy name.
func ParseUnmappedPolicy(raw string) (UnmappedPolicy, error) {
	switch UnmappedPolicy(raw) {
	case "", UnmappedAuthenticated:
		return UnmappedAuthenticated, nil
	case UnmappedDeny:
		return UnmappedDeny, nil
	}
	return "", fmt.Errorf("authz: unknown unmapped policy %q", raw)
}

// Source tells where the required permission of a request came from.
type Source string

const (
	SourceDeclared Source = "declared"
	SourceTable    Source = "table"
	SourceUnmapped Source = "unmapped"
)

// Decision is the outcome of authorizing one request.
type Decision struct {
	ID         uuid.UUID
	Effect     rbac.Effect
	Reason     rbac.Reason
	Source     Source
	Permission string
	// Route is the matched entry rendered as "METHOD pattern", or the
	// normalized request when nothing matched.
	Route string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Effect == rbac.Allow
}

// Err returns the error describing a refused decision, or nil when allowed.
func (d Decision) Err() error {
	switch {
	case d.Effect == rbac.Allow:
		return nil
	case d.Effect == rbac.Indeterminate:
		return ErrUnauthenticated
	case d.Reason == rbac.ReasonMissingIdentity:
		return ErrMissingIdentity
	case d.Reason == rbac.ReasonUnmappedRoute:
		return ErrUnmappedRoute
	default:
		return ErrPermissionDenied
	}
}

// Authorizer answers permission requirements for a principal.
type Authorizer interface {
	Authorize(ctx context.Context, p *auth.Principal, req rbac.Requirement) (rbac.Outcome, error)
}

// DecisionRecorder receives one observation per decision.
type DecisionRecorder interface {
	ObserveDecision(effect, reason, source string, elapsed time.Duration)
}

// Options configures an Engine.
type Options struct {
	Table      *Table
	Policies   PolicyResolver
	Authorizer Authorizer
	Unmapped   UnmappedPolicy
	Logger     *slog.Logger
	Metrics    DecisionRecorder
}

// Engine maps requests to policies and evaluates them. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	table      *Table
	declared   atomic.Pointer[Table]
	policies   PolicyResolver
	authorizer Authorizer
	unmapped   UnmappedPolicy
	logger     *slog.Logger
	metrics    DecisionRecorder
}

// NewEngine constructs an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Table == nil {
		return nil, fmt.Errorf("%w: route table required", ErrInvalidRouteTable)
	}
	if opts.Authorizer == nil {
		return nil, fmt.Errorf("authz: authorizer required: %w", shared.ErrMisconfigured)
	}
	unmapped, err := ParseUnmappedPolicy(string(opts.Unmapped))
	if err != nil {
		return nil, err
	}
	e := &Engine{
		table:      opts.Table,
		policies:   opts.Policies,
		authorizer: opts.Authorizer,
		unmapped:   unmapped,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if e.policies == nil {
		e.policies = NewPolicyProvider(nil)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// SetDeclared installs the handler level permission declarations. They take
// precedence over the route table. Call it once the router is assembled and
// before the server starts.
func (e *Engine) SetDeclared(entries []RouteEntry) error {
	t, err := NewTable(SortBySpecificity(entries))
	if err != nil {
		return fmt.Errorf("declared routes: %w", err)
	}
	e.declared.Store(t)
	return nil
}

// Table returns the route table.
func (e *Engine) Table() *Table {
	return e.table
}

// Declared returns the installed declarations, or nil.
func (e *Engine) Declared() *Table {
	return e.declared.Load()
}

// Lookup finds the entry governing a request. Declared entries win over the
// route table.
func (e *Engine) Lookup(method, path string) (RouteEntry, Source, bool) {
	if m, ok := e.declared.Load().Match(method, path); ok {
		return m.Entry, SourceDeclared, true
	}
	if m, ok := e.table.Match(method, path); ok {
		return m.Entry, SourceTable, true
	}
	return RouteEntry{}, SourceUnmapped, false
}

// Decide authorizes method and path for p. A non-nil error means no decision
// could be reached; the returned Decision is then never allowed.
func (e *Engine) Decide(ctx context.Context, p *auth.Principal, method, path string) (Decision, error) {
	d := Decision{ID: uuid.New()}
	entry, source, found := e.Lookup(method, path)
	d.Source = source
	if found {
		d.Route = entry.Method + " " + entry.Pattern
		d.Permission = entry.Permission
	} else {
		d.Route = method + " " + NormalizePath(path)
	}
	ctx = shared.ContextWithRoute(ctx, d.Route)
	ctx = shared.ContextWithLogAttrs(ctx, slog.String("decision_id", d.ID.String()))

	var key string
	switch {
	case found && !entry.AuthenticatedOnly():
		key = PermissionPolicyKey(entry.Permission)
	case found, e.unmapped == UnmappedAuthenticated:
		key = PolicyAuthenticated
	default:
		return e.refuseUnmapped(ctx, p, d), nil
	}

	policy, err := e.policies.ResolvePolicy(key)
	if err != nil {
		return refused(d), fmt.Errorf("authz: resolve %s: %w", key, err)
	}
	outcome, err := e.evaluate(ctx, p, policy)
	if err != nil {
		return refused(d), err
	}
	if outcome.Effect == rbac.Allow {
		if err := ctx.Err(); err != nil {
			return refused(d), err
		}
	}
	d.Effect, d.Reason = outcome.Effect, outcome.Reason
	if !found && d.Effect == rbac.Allow {
		d.Reason = rbac.ReasonUnmappedRoute
	}
	return d, nil
}

func (e *Engine) evaluate(ctx context.Context, p *auth.Principal, policy Policy) (rbac.Outcome, error) {
	if policy.RequireAuthenticated && !p.IsAuthenticated() {
		return rbac.Outcome{Effect: rbac.Indeterminate, Reason: rbac.ReasonUnauthenticated}, nil
	}
	if policy.Kind == PermissionPolicy {
		return e.authorizer.Authorize(ctx, p, policy.Requirement)
	}
	if len(policy.AnyRole) > 0 {
		if rbac.NewRoleSet(policy.AnyRole...).ContainsAny(rbac.PrincipalRoles(p)) {
			return rbac.Outcome{Effect: rbac.Allow, Reason: rbac.ReasonGranted}, nil
		}
		e.logger.InfoContext(ctx, "role requirement not met",
			slog.String("subject", p.LogSubject()),
			slog.String("policy", policy.Name),
		)
		return rbac.Outcome{Effect: rbac.Deny, Reason: rbac.ReasonRoleRequired}, nil
	}
	return rbac.Outcome{Effect: rbac.Allow, Reason: rbac.ReasonAuthenticatedOnly}, nil
}

func (e *Engine) refuseUnmapped(ctx context.Context, p *auth.Principal, d Decision) Decision {
	if !p.IsAuthenticated() {
		d.Effect, d.Reason = rbac.Indeterminate, rbac.ReasonUnauthenticated
		return d
	}
	e.logger.InfoContext(ctx, "unmapped route denied", slog.String("subject", p.LogSubject()))
	d.Effect, d.Reason = rbac.Deny, rbac.ReasonUnmappedRoute
	return d
}

func refused(d Decision) Decision {
	d.Effect, d.Reason = rbac.Indeterminate, ""
	return d
}
