package tenant

import (
	"context"
	"regexp"
	"sort"

	"gorm.io/gorm"
)

// identPattern is the shape every schema identifier must have before it is
// interpolated into DDL. This is not an existence check.
var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validIdent(name string) error {
	if !identPattern.MatchString(name) {
		return invalidNameError(name)
	}
	return nil
}

// quoteIdent double-quotes an identifier that already passed the shape check
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// SchemaStore executes schema DDL and reads the namespace catalog. It holds
// no state of its own between calls; the database is the source of truth.
type SchemaStore struct {
	db            *gorm.DB
	reserved      *ReservedNames
	defaultSchema string
}

// NewSchemaStore creates a schema store over an open database handle
func NewSchemaStore(db *gorm.DB, reserved *ReservedNames, defaultSchema string) *SchemaStore {
	return &SchemaStore{db: db, reserved: reserved, defaultSchema: defaultSchema}
}

// CreateSchema issues CREATE SCHEMA for the given tenant name. There is no
// existence pre-check: the engine's own atomicity decides who wins a
// concurrent create, and the loser gets the native duplicate error
// (SQLSTATE 42P06) passed through.
func (s *SchemaStore) CreateSchema(ctx context.Context, name string) error {
	if err := validIdent(name); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Exec("CREATE SCHEMA " + quoteIdent(name)).Error; err != nil {
		return classifyDB(name, err)
	}
	return nil
}

// DropSchema issues DROP SCHEMA .. CASCADE, removing every contained table
// including the tenant's migration-tracking table. Dropping an absent schema
// surfaces the engine's native "does not exist" error; callers wanting an
// idempotent drop must check existence first.
func (s *SchemaStore) DropSchema(ctx context.Context, name string) error {
	if err := validIdent(name); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Exec("DROP SCHEMA " + quoteIdent(name) + " CASCADE").Error; err != nil {
		return classifyDB(name, err)
	}
	return nil
}

// RenameSchema renames a schema in a single ALTER SCHEMA statement, so there
// is no window where the tenant is absent. Contained objects and migration
// history travel with the rename.
func (s *SchemaStore) RenameSchema(ctx context.Context, oldName, newName string) error {
	if err := validIdent(oldName); err != nil {
		return err
	}
	if err := validIdent(newName); err != nil {
		return err
	}
	stmt := "ALTER SCHEMA " + quoteIdent(oldName) + " RENAME TO " + quoteIdent(newName)
	if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return classifyDB(oldName, err)
	}
	return nil
}

// ListSchemas returns the manageable tenant schemas in lexicographic order.
// Reserved names and the default application schema are filtered out.
func (s *SchemaStore) ListSchemas(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Raw("SELECT schema_name FROM information_schema.schemata").
		Scan(&names).Error
	if err != nil {
		return nil, classifyDB("", err)
	}

	tenants := make([]string, 0, len(names))
	for _, name := range names {
		if s.reserved.IsReserved(name) || name == s.defaultSchema {
			continue
		}
		tenants = append(tenants, name)
	}
	sort.Strings(tenants)
	return tenants, nil
}

// SchemaExists reports whether a manageable schema with the given name is
// present in the catalog. Reserved names are always reported absent, even
// when a same-named schema exists.
func (s *SchemaStore) SchemaExists(ctx context.Context, name string) (bool, error) {
	if s.reserved.IsReserved(name) || name == s.defaultSchema {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Raw("SELECT count(*) FROM information_schema.schemata WHERE schema_name = ?", name).
		Scan(&count).Error
	if err != nil {
		return false, classifyDB(name, err)
	}
	return count > 0, nil
}
