package tenant

import (
	"context"

	"gorm.io/gorm"
)

// Options configures a Manager. Zero values fall back to the defaults the
// service configuration uses.
type Options struct {
	// MigrationsDir is the root directory holding migration scripts.
	MigrationsDir string
	// DefaultSchema is the shared application schema, excluded from tenant
	// listings and existence checks.
	DefaultSchema string
	// ReservedNames extends the built-in reserved set.
	ReservedNames []string
	// TenantField is the map key used to extract a tenant identifier when a
	// map is passed where a tenant name is expected.
	TenantField string
}

// Manager is the public façade for tenant schema lifecycle: create, drop,
// rename, migrate, list and existence checks. The reserved-name rule is
// enforced here, before any DDL reaches the database.
type Manager struct {
	store       *SchemaStore
	migrator    *Migrator
	reserved    *ReservedNames
	tenantField string
}

// New creates a tenant manager over an open database handle
func New(db *gorm.DB, opts Options) *Manager {
	if opts.MigrationsDir == "" {
		opts.MigrationsDir = "migrations"
	}
	if opts.DefaultSchema == "" {
		opts.DefaultSchema = "public"
	}
	if opts.TenantField == "" {
		opts.TenantField = DefaultTenantField
	}
	reserved := NewReservedNames(opts.ReservedNames...)
	return &Manager{
		store:       NewSchemaStore(db, reserved, opts.DefaultSchema),
		migrator:    NewMigrator(db, opts.MigrationsDir),
		reserved:    reserved,
		tenantField: opts.TenantField,
	}
}

// ResolveTenant extracts a tenant schema name from the supported tenant
// value shapes, looking maps up under the configured tenant field
func (m *Manager) ResolveTenant(tenant any) (string, error) {
	return ResolveNameField(tenant, m.tenantField)
}

// IsReserved reports whether the name may never become a tenant
func (m *Manager) IsReserved(name string) bool {
	return m.reserved.IsReserved(name)
}

// Create provisions a new tenant schema and immediately runs its pending
// migrations, so a freshly created tenant is schema-current. When schema
// creation fails, migrations are not attempted and the create error is
// returned as-is.
func (m *Manager) Create(ctx context.Context, name string) error {
	if m.reserved.IsReserved(name) {
		return reservedError(name)
	}
	if err := m.store.CreateSchema(ctx, name); err != nil {
		return err
	}
	if _, err := m.migrator.Migrate(ctx, name); err != nil {
		return err
	}
	return nil
}

// Drop removes the tenant's schema and everything in it. Dropping an absent
// tenant surfaces the engine's native not-found error.
func (m *Manager) Drop(ctx context.Context, name string) error {
	if m.reserved.IsReserved(name) {
		return reservedError(name)
	}
	return m.store.DropSchema(ctx, name)
}

// Rename atomically renames a tenant. Migrations are not re-run; the
// tenant's migration history travels with the rename.
func (m *Manager) Rename(ctx context.Context, oldName, newName string) error {
	if m.reserved.IsReserved(oldName) {
		return reservedError(oldName)
	}
	if m.reserved.IsReserved(newName) {
		return reservedError(newName)
	}
	return m.store.RenameSchema(ctx, oldName, newName)
}

// All returns every tenant, ordered lexicographically by name
func (m *Manager) All(ctx context.Context) ([]string, error) {
	return m.store.ListSchemas(ctx)
}

// Exists reports whether the tenant is provisioned. Reserved names are
// always reported absent.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	return m.store.SchemaExists(ctx, name)
}

// Migrate applies pending migration scripts to an existing tenant and
// returns the versions applied in this run, ascending. An empty slice means
// nothing was pending.
func (m *Manager) Migrate(ctx context.Context, name string) ([]int64, error) {
	if m.reserved.IsReserved(name) {
		return nil, reservedError(name)
	}
	return m.migrator.Migrate(ctx, name)
}

// MigrationsPath resolves the directory holding tenant-scope migration
// scripts
func (m *Manager) MigrationsPath() string {
	return m.migrator.MigrationsPath()
}
