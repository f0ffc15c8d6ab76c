package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestCurrentTenantRoundTrip(t *testing.T) {
	ctx := WithCurrent(context.Background(), "acme")

	name, ok := Current(ctx)
	assert.True(t, ok)
	assert.Equal(t, "acme", name)
}

func TestCurrentTenantAbsent(t *testing.T) {
	name, ok := Current(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "", name)
}

func TestCurrentTenantDoesNotLeakAcrossContexts(t *testing.T) {
	base := context.Background()
	first := WithCurrent(base, "acme")
	second := WithCurrent(base, "globex")

	name, _ := Current(first)
	assert.Equal(t, "acme", name)

	name, _ = Current(second)
	assert.Equal(t, "globex", name)

	// The parent context stays untouched
	_, ok := Current(base)
	assert.False(t, ok)
}

func TestCurrentTenantOverride(t *testing.T) {
	ctx := WithCurrent(context.Background(), "acme")
	ctx = WithCurrent(ctx, "globex")

	name, ok := Current(ctx)
	assert.True(t, ok)
	assert.Equal(t, "globex", name)
}

func TestCurrentFromEcho(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/tenants", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	_, ok := CurrentFromEcho(c)
	assert.False(t, ok)

	c.SetRequest(req.WithContext(WithCurrent(req.Context(), "acme")))

	name, ok := CurrentFromEcho(c)
	assert.True(t, ok)
	assert.Equal(t, "acme", name)
}
