package tenant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	// tenantMigrationsDir is the fixed leaf directory for tenant-scope
	// migration scripts under the migrations root.
	tenantMigrationsDir = "tenants"
	// sharedMigrationsDir is the sibling leaf for default-schema scripts.
	// The migrator never touches it; it exists so both trees share one root.
	sharedMigrationsDir = "main"
	// trackingTable records applied versions inside each tenant schema.
	trackingTable = "schema_migrations"
)

// script is one versioned migration file
type script struct {
	version int64
	path    string
}

// Migrator applies pending migration scripts to a tenant schema and records
// applied versions in that schema's own tracking table. Migration history is
// never shared across tenants.
type Migrator struct {
	db  *gorm.DB
	dir string
}

// NewMigrator creates a migrator reading scripts from the given migrations
// root directory
func NewMigrator(db *gorm.DB, migrationsDir string) *Migrator {
	return &Migrator{db: db, dir: migrationsDir}
}

// MigrationsPath resolves the directory holding tenant-scope migration
// scripts
func (m *Migrator) MigrationsPath() string {
	return filepath.Join(m.dir, tenantMigrationsDir)
}

// SharedMigrationsPath resolves the directory holding shared/default-schema
// migration scripts
func (m *Migrator) SharedMigrationsPath() string {
	return filepath.Join(m.dir, sharedMigrationsDir)
}

// Migrate applies all pending scripts to the tenant's schema, strictly in
// ascending version order, and returns the versions applied in this run.
// The run stops at the first failing script; scripts already applied in the
// same run stay applied. The returned error carries the engine's native
// message verbatim.
func (m *Migrator) Migrate(ctx context.Context, name string) ([]int64, error) {
	applied := make([]int64, 0)

	if err := validIdent(name); err != nil {
		return applied, err
	}
	schema := quoteIdent(name)

	// The tracking table lives inside the tenant's schema and is created on
	// the first run. A missing schema fails here with the engine's own
	// "does not exist" error.
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s.%s (version bigint PRIMARY KEY, inserted_at timestamptz NOT NULL DEFAULT now())",
		schema, trackingTable,
	)
	if err := m.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return applied, classifyMigration(name, err)
	}

	var appliedVersions []int64
	err := m.db.WithContext(ctx).
		Raw(fmt.Sprintf("SELECT version FROM %s.%s", schema, trackingTable)).
		Scan(&appliedVersions).Error
	if err != nil {
		return applied, classifyMigration(name, err)
	}
	seen := make(map[int64]struct{}, len(appliedVersions))
	for _, v := range appliedVersions {
		seen[v] = struct{}{}
	}

	scripts, err := loadScripts(m.MigrationsPath())
	if err != nil {
		return applied, err
	}

	for _, s := range scripts {
		if _, done := seen[s.version]; done {
			continue
		}

		body, err := os.ReadFile(s.path)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration script %s: %w", s.path, err)
		}

		// One transaction per script: the script body plus its version row
		// commit or fail together, scoped to the tenant's schema.
		err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("SET LOCAL search_path TO " + schema).Error; err != nil {
				return err
			}
			if err := tx.Exec(string(body)).Error; err != nil {
				return err
			}
			insert := fmt.Sprintf("INSERT INTO %s.%s (version) VALUES (?)", schema, trackingTable)
			return tx.Exec(insert, s.version).Error
		})
		if err != nil {
			return applied, classifyMigration(name, err)
		}

		applied = append(applied, s.version)
	}

	return applied, nil
}

// loadScripts reads the migration directory and returns the versioned .sql
// scripts in ascending version order. Files without a numeric version prefix
// are ignored. A missing directory means there is nothing to apply.
func loadScripts(dir string) ([]script, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}

	scripts := make([]script, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, found := strings.Cut(entry.Name(), "_")
		if !found {
			continue
		}
		version, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil {
			continue
		}
		scripts = append(scripts, script{version: version, path: filepath.Join(dir, entry.Name())})
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].version < scripts[j].version })
	return scripts, nil
}
