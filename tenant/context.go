package tenant

import (
	"context"

	"github.com/labstack/echo/v4"
)

type contextKey string

const currentTenantKey contextKey = "current_tenant"

// WithCurrent returns a context carrying the tenant for the current unit of
// work. The slot is per-context: concurrently running units of work each
// derive their own context and cannot leak the value into one another.
func WithCurrent(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, currentTenantKey, name)
}

// Current returns the tenant set for the current unit of work, if any
func Current(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(currentTenantKey).(string)
	return name, ok
}

// CurrentFromEcho returns the tenant set on the request's context. Handlers
// put it there explicitly with WithCurrent; nothing is discovered
// automatically.
func CurrentFromEcho(c echo.Context) (string, bool) {
	return Current(c.Request().Context())
}
