package shared

import (
	"context"
	"log/slog"
)

type routeContextKey struct{}

// ContextWithRoute stores the matched route label in context.
func ContextWithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeContextKey{}, route)
}

// RouteFromContext extracts the matched route label from context.
func RouteFromContext(ctx context.Context) string {
	route, _ := ctx.Value(routeContextKey{}).(string)
	return route
}

type logAttrsContextKey struct{}

// ContextWithLogAttrs appends attributes that the context-aware log handler
// adds to every record logged with ctx.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing := LogAttrsFromContext(ctx)
	merged := make([]slog.Attr, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, logAttrsContextKey{}, merged)
}

// LogAttrsFromContext returns the attributes stored by ContextWithLogAttrs.
func LogAttrsFromContext(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(logAttrsContextKey{}).([]slog.Attr)
	return attrs
}
