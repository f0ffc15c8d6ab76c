package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

type account struct {
	Slug string
}

func (a account) TenantSchema() string {
	return a.Slug
}

func TestWithTenantOnRecord(t *testing.T) {
	record := NewRecord("users", map[string]any{"email": "jane@acme.test"})

	got, err := WithTenant(record, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Schema)
	assert.Equal(t, `"acme"."users"`, got.Qualified())

	// The original value is untouched
	assert.Equal(t, "", record.Schema)
}

func TestWithTenantOnChangeset(t *testing.T) {
	cs := Change(NewRecord("users", nil), map[string]any{"name": "Jane"})

	got, err := WithTenant(cs, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Record.Schema)
	assert.Equal(t, `"acme"."users"`, got.Qualified())
	assert.Equal(t, "Jane", got.Changes["name"])
}

func TestWithTenantOnQuery(t *testing.T) {
	q := NewQuery("users").Where("name = ?", "Jane").Order("id desc").Limit(10)

	got, err := WithTenant(q, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Schema)
	assert.Equal(t, `"acme"."users"`, got.Qualified())

	// The original descriptor is untouched
	assert.Equal(t, "", q.Schema)
}

func TestWithTenantFromMap(t *testing.T) {
	record := NewRecord("users", nil)

	got, err := WithTenant(record, map[string]any{"id": "globex"})
	require.NoError(t, err)
	assert.Equal(t, "globex", got.Schema)

	got, err = WithTenant(record, map[string]string{"id": "initech"})
	require.NoError(t, err)
	assert.Equal(t, "initech", got.Schema)
}

func TestWithTenantFromSchemaNamer(t *testing.T) {
	got, err := WithTenant(NewQuery("notes"), account{Slug: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Schema)
}

func TestWithTenantUnsupportedValue(t *testing.T) {
	_, err := WithTenant(NewRecord("users", nil), 42)
	assert.Error(t, err)
}

func TestResolveNameFieldCustomKey(t *testing.T) {
	name, err := ResolveNameField(map[string]any{"slug": "acme"}, "slug")
	require.NoError(t, err)
	assert.Equal(t, "acme", name)

	_, err = ResolveNameField(map[string]any{"slug": "acme"}, "id")
	assert.Error(t, err)
}

func TestQueryWhereDoesNotShareConditions(t *testing.T) {
	base := NewQuery("users").Where("active = ?", true)

	first := base.Where("name = ?", "Jane")
	second := base.Where("name = ?", "John")

	assert.Len(t, base.conds, 1)
	assert.Len(t, first.conds, 2)
	assert.Len(t, second.conds, 2)
	assert.Equal(t, []any{"Jane"}, first.conds[1].args)
	assert.Equal(t, []any{"John"}, second.conds[1].args)
}

func TestQualifiedWithoutSchema(t *testing.T) {
	assert.Equal(t, `"users"`, NewRecord("users", nil).Qualified())
}

func scopeDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestScopeQualifiesTable(t *testing.T) {
	tx := Scope("acme")(scopeDB(t).Table("users"))

	require.NoError(t, tx.Error)
	assert.Equal(t, "users", tx.Statement.Table)
	// The dummy dialector quotes with backticks
	assert.Equal(t, "`acme`.`users`", tx.Statement.TableExpr.SQL)
}

func TestScopeLeavesQualifiedTableAlone(t *testing.T) {
	tx := Scope("acme")(scopeDB(t).Table("other.users"))

	require.NoError(t, tx.Error)
	assert.Equal(t, "`other`.`users`", tx.Statement.TableExpr.SQL)
}

func TestScopeRequiresExplicitTable(t *testing.T) {
	tx := Scope("acme")(scopeDB(t).Session(&gorm.Session{NewDB: true}))

	assert.Error(t, tx.Error)
	assert.Contains(t, tx.Error.Error(), "explicit table")
}
