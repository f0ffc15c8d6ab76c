package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/tenancy/logger"
	"github.com/suteetoe/tenancy/prometheus"
	"github.com/suteetoe/tenancy/tenant"
	"go.uber.org/zap"
)

var manager *tenant.Manager

// Initialize stores the tenant manager used by the handlers
func Initialize(m *tenant.Manager) {
	manager = m
}

// statusForKind maps a tenant failure classification to an HTTP status
func statusForKind(kind tenant.Kind) int {
	switch kind {
	case tenant.KindReservedName, tenant.KindInvalidName:
		return http.StatusUnprocessableEntity
	case tenant.KindDuplicateNamespace:
		return http.StatusConflict
	case tenant.KindNamespaceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse renders a failed tenant operation. The detail field carries
// the database engine's error text verbatim so operators keep the full
// diagnostic information.
func errorResponse(c echo.Context, err error) error {
	kind := tenant.KindOf(err)
	prometheus.RecordTenantError(string(kind))
	resp := echo.Map{
		"error":  string(kind),
		"detail": err.Error(),
	}
	if name, ok := tenant.CurrentFromEcho(c); ok {
		resp["tenant"] = name
	}
	return c.JSON(statusForKind(kind), resp)
}

// CreateTenant provisions a new tenant schema and runs its migrations
func CreateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("create")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		log.Error("Invalid tenant data", zap.String("name", req.Name))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackTenantOperation("create")(time.Now())

	// The tenant becomes the current one for this unit of work
	ctx := tenant.WithCurrent(c.Request().Context(), req.Name)
	c.SetRequest(c.Request().WithContext(ctx))

	if err := manager.Create(ctx, req.Name); err != nil {
		log.Error("Failed to create tenant", logger.Tenant(req.Name), zap.Error(err))
		return errorResponse(c, err)
	}

	log.Info("Tenant created", logger.Tenant(req.Name))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Tenant created successfully",
		"name":    req.Name,
	})
}

// DropTenant removes a tenant schema and everything in it
func DropTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("drop")

	name := c.Param("name")
	defer prometheus.TrackTenantOperation("drop")(time.Now())

	ctx := tenant.WithCurrent(c.Request().Context(), name)
	c.SetRequest(c.Request().WithContext(ctx))

	if err := manager.Drop(ctx, name); err != nil {
		log.Error("Failed to drop tenant", logger.Tenant(name), zap.Error(err))
		return errorResponse(c, err)
	}

	log.Info("Tenant dropped", logger.Tenant(name))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tenant dropped successfully",
		"name":    name,
	})
}

// RenameTenant renames a tenant schema in a single atomic statement
func RenameTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("rename")

	name := c.Param("name")

	var req struct {
		NewName string `json:"new_name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant rename request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.NewName == "" {
		log.Error("Invalid tenant rename data", logger.Tenant(name))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_name is required"})
	}

	defer prometheus.TrackTenantOperation("rename")(time.Now())

	ctx := tenant.WithCurrent(c.Request().Context(), name)
	c.SetRequest(c.Request().WithContext(ctx))

	if err := manager.Rename(ctx, name, req.NewName); err != nil {
		log.Error("Failed to rename tenant",
			logger.Tenant(name),
			zap.String("new_name", req.NewName),
			zap.Error(err))
		return errorResponse(c, err)
	}

	log.Info("Tenant renamed", logger.Tenant(name), zap.String("new_name", req.NewName))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tenant renamed successfully",
		"name":    req.NewName,
	})
}

// ListTenants returns all provisioned tenants in lexicographic order
func ListTenants(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("list")

	defer prometheus.TrackTenantOperation("list")(time.Now())

	tenants, err := manager.All(c.Request().Context())
	if err != nil {
		log.Error("Failed to list tenants", zap.Error(err))
		return errorResponse(c, err)
	}

	prometheus.UpdateTenantCount(len(tenants))
	return c.JSON(http.StatusOK, echo.Map{"tenants": tenants})
}

// TenantExists reports whether a tenant is provisioned
func TenantExists(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("exists")

	name := c.Param("name")
	defer prometheus.TrackTenantOperation("exists")(time.Now())

	exists, err := manager.Exists(c.Request().Context(), name)
	if err != nil {
		log.Error("Failed to check tenant existence", logger.Tenant(name), zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"name":   name,
		"exists": exists,
	})
}

// MigrateTenant applies pending migration scripts to an existing tenant
func MigrateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("migrate")

	name := c.Param("name")
	defer prometheus.TrackTenantOperation("migrate")(time.Now())

	ctx := tenant.WithCurrent(c.Request().Context(), name)
	c.SetRequest(c.Request().WithContext(ctx))

	applied, err := manager.Migrate(ctx, name)
	if err != nil {
		log.Error("Failed to migrate tenant", logger.Tenant(name), zap.Error(err))
		return errorResponse(c, err)
	}

	prometheus.RecordMigrationsApplied(len(applied))
	log.Info("Tenant migrated",
		logger.Tenant(name),
		zap.Int64s("applied", applied))
	return c.JSON(http.StatusOK, echo.Map{
		"name":    name,
		"applied": applied,
	})
}
