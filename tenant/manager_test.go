package tenant

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database-backed tests run against a disposable Postgres pointed at by
// TENANT_TEST_DSN, e.g.
//
//	TENANT_TEST_DSN="host=localhost user=postgres password=password dbname=tenancy_test sslmode=disable"
//
// and are skipped when the variable is unset.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TENANT_TEST_DSN")
	if dsn == "" {
		t.Skip("TENANT_TEST_DSN not set; skipping database-backed test")
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func testManager(t *testing.T, db *gorm.DB) *Manager {
	t.Helper()
	return New(db, Options{
		MigrationsDir: filepath.Join("testdata", "migrations"),
	})
}

// cleanSchema removes a schema before and after a test so runs are
// repeatable against the same database
func cleanSchema(t *testing.T, db *gorm.DB, name string) {
	t.Helper()
	drop := func() {
		db.Exec("DROP SCHEMA IF EXISTS " + quoteIdent(name) + " CASCADE")
	}
	drop()
	t.Cleanup(drop)
}

func TestCreateProvisionsAndMigrates(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	cleanSchema(t, db, "trenant_create")

	require.NoError(t, m.Create(context.Background(), "trenant_create"))

	exists, err := m.Exists(context.Background(), "trenant_create")
	require.NoError(t, err)
	assert.True(t, exists)

	// A freshly created tenant is schema-current: the scripts already ran
	var tables int64
	err = db.Raw(
		"SELECT count(*) FROM information_schema.tables WHERE table_schema = ? AND table_name IN ('users', 'notes')",
		"trenant_create",
	).Scan(&tables).Error
	require.NoError(t, err)
	assert.Equal(t, int64(2), tables)
}

func TestCreateDuplicateSurfacesNativeError(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	cleanSchema(t, db, "trenant_dup")

	require.NoError(t, m.Create(context.Background(), "trenant_dup"))

	err := m.Create(context.Background(), "trenant_dup")
	require.Error(t, err)
	assert.Equal(t, KindDuplicateNamespace, KindOf(err))
	assert.Contains(t, err.Error(), "already exists")
	assert.Contains(t, err.Error(), "42P06")
}

func TestDropRemovesTenant(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	cleanSchema(t, db, "trenant_drop")

	require.NoError(t, m.Create(context.Background(), "trenant_drop"))
	require.NoError(t, m.Drop(context.Background(), "trenant_drop"))

	exists, err := m.Exists(context.Background(), "trenant_drop")
	require.NoError(t, err)
	assert.False(t, exists)

	// Drop is not idempotent: the engine's not-found error comes through
	err = m.Drop(context.Background(), "trenant_drop")
	require.Error(t, err)
	assert.Equal(t, KindNamespaceNotFound, KindOf(err))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRenameKeepsMigrationHistory(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	cleanSchema(t, db, "trenant_old")
	cleanSchema(t, db, "trenant_new")

	require.NoError(t, m.Create(context.Background(), "trenant_old"))
	require.NoError(t, m.Rename(context.Background(), "trenant_old", "trenant_new"))

	oldExists, err := m.Exists(context.Background(), "trenant_old")
	require.NoError(t, err)
	assert.False(t, oldExists)

	newExists, err := m.Exists(context.Background(), "trenant_new")
	require.NoError(t, err)
	assert.True(t, newExists)

	// History traveled with the rename, so nothing is pending
	applied, err := m.Migrate(context.Background(), "trenant_new")
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestAllReturnsTenantsInLexicographicOrder(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	for _, name := range []string{"lolo", "lala", "lili"} {
		cleanSchema(t, db, name)
		require.NoError(t, m.Create(context.Background(), name))
	}

	all, err := m.All(context.Background())
	require.NoError(t, err)

	got := make([]string, 0, 3)
	for _, name := range all {
		switch name {
		case "lala", "lili", "lolo":
			got = append(got, name)
		}
	}
	assert.Equal(t, []string{"lala", "lili", "lolo"}, got)
}

func TestReservedNamesAreNeverTenants(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)

	// Reserved names report absent even though same-named schemas exist
	for _, name := range []string{"public", "information_schema", "pg_catalog", "pg_toast", "pg_whatever"} {
		exists, err := m.Exists(context.Background(), name)
		require.NoError(t, err)
		assert.False(t, exists, name)
	}

	err := m.Create(context.Background(), "public")
	require.Error(t, err)
	assert.Equal(t, KindReservedName, KindOf(err))

	err = m.Drop(context.Background(), "pg_catalog")
	require.Error(t, err)
	assert.Equal(t, KindReservedName, KindOf(err))

	err = m.Rename(context.Background(), "lala", "information_schema")
	require.Error(t, err)
	assert.Equal(t, KindReservedName, KindOf(err))

	_, err = m.Migrate(context.Background(), "pg_toast")
	require.Error(t, err)
	assert.Equal(t, KindReservedName, KindOf(err))
}

func TestExistsIsFalseForUnknownTenant(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)

	exists, err := m.Exists(context.Background(), "never_created_tenant")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMigrateAppliesPendingVersionsInOrder(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	cleanSchema(t, db, "trenant_migrate")

	// Schema-only tenant: create the namespace without the automatic migrate
	require.NoError(t, m.store.CreateSchema(context.Background(), "trenant_migrate"))

	applied, err := m.Migrate(context.Background(), "trenant_migrate")
	require.NoError(t, err)
	assert.Equal(t, []int64{20160711125401, 20160711125402}, applied)

	// A second run with nothing pending applies nothing
	applied, err = m.Migrate(context.Background(), "trenant_migrate")
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrateSurfacesScriptFailureVerbatim(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	cleanSchema(t, db, "trenant_dirty")

	require.NoError(t, m.Create(context.Background(), "trenant_dirty"))

	// Empty the tracking table so the scripts re-run into existing tables
	require.NoError(t, db.Exec(`DELETE FROM "trenant_dirty".schema_migrations`).Error)

	_, err := m.Migrate(context.Background(), "trenant_dirty")
	require.Error(t, err)
	assert.Equal(t, KindMigrationFailed, KindOf(err))
	assert.Contains(t, err.Error(), `"users"`)
	assert.Contains(t, err.Error(), "already exists")
}

func TestMigrateMissingTenant(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	cleanSchema(t, db, "trenant_ghost")

	_, err := m.Migrate(context.Background(), "trenant_ghost")
	require.Error(t, err)
	assert.Equal(t, KindNamespaceNotFound, KindOf(err))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestManagerResolveTenantUsesConfiguredField(t *testing.T) {
	m := New(nil, Options{TenantField: "slug"})

	name, err := m.ResolveTenant(map[string]any{"slug": "acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", name)

	_, err = m.ResolveTenant(map[string]any{"id": "acme"})
	assert.Error(t, err)
}

func TestManagerResolveTenantDefaultField(t *testing.T) {
	m := New(nil, Options{})

	name, err := m.ResolveTenant(map[string]string{"id": "globex"})
	require.NoError(t, err)
	assert.Equal(t, "globex", name)

	name, err = m.ResolveTenant("initech")
	require.NoError(t, err)
	assert.Equal(t, "initech", name)
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	db := testDB(t)
	m := testManager(t, db)
	cleanSchema(t, db, "trenant_race")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Create(context.Background(), "trenant_race")
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
			assert.Equal(t, KindDuplicateNamespace, KindOf(err))
		}
	}
	assert.Equal(t, 1, failures)
}
