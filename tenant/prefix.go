package tenant

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// DefaultTenantField is the map key used to extract a tenant identifier
// when a map is passed where a tenant name is expected.
const DefaultTenantField = "id"

// SchemaCarrier is the capability contract shared by every data-access
// value that can carry a schema qualifier: records, changesets and queries
// all implement it, so callers never branch on the concrete kind.
type SchemaCarrier[T any] interface {
	// WithSchema returns a copy of the value targeting the given schema.
	// It never executes anything.
	WithSchema(schema string) T
}

// SchemaNamer resolves a domain value (an account, an organization) to the
// schema name of its tenant.
type SchemaNamer interface {
	TenantSchema() string
}

// WithTenant attaches the resolved tenant schema to a data-access value and
// returns the new value. The tenant argument is a plain schema name, any
// SchemaNamer, or a map carrying the identifier under the "id" key.
func WithTenant[T SchemaCarrier[T]](target T, tenant any) (T, error) {
	name, err := ResolveName(tenant)
	if err != nil {
		return target, err
	}
	return target.WithSchema(name), nil
}

// ResolveName extracts a tenant schema name from the supported tenant value
// shapes using the default identifier field
func ResolveName(tenant any) (string, error) {
	return ResolveNameField(tenant, DefaultTenantField)
}

// ResolveNameField extracts a tenant schema name, looking maps up under the
// given identifier field
func ResolveNameField(tenant any, field string) (string, error) {
	switch v := tenant.(type) {
	case string:
		return v, nil
	case SchemaNamer:
		return v.TenantSchema(), nil
	case map[string]string:
		if name, ok := v[field]; ok {
			return name, nil
		}
	case map[string]any:
		if raw, ok := v[field]; ok {
			if name, ok := raw.(string); ok {
				return name, nil
			}
			return fmt.Sprintf("%v", raw), nil
		}
	}
	return "", fmt.Errorf("cannot resolve a tenant name from %T", tenant)
}

// Scope returns a gorm scope that routes a query built with Table at the
// named tenant's schema:
//
//	db.Scopes(tenant.Scope("acme")).Table("users").Find(&users)
//
// Scopes run when the query executes, so the table is known by then. A query
// without an explicit table cannot be qualified and fails with an error.
func Scope(tenant string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		table := db.Statement.Table
		if table == "" {
			db.AddError(errors.New("tenant scope requires a query with an explicit table"))
			return db
		}
		// Table("a.b") keeps only "b" in Statement.Table; the schema
		// qualifier lives in the rendered table expression
		if expr := db.Statement.TableExpr; expr != nil && strings.Contains(expr.SQL, ".") {
			return db
		}
		if strings.Contains(table, ".") {
			return db
		}
		return db.Table(tenant + "." + table)
	}
}

// qualify renders a schema-qualified, quoted table reference
func qualify(schema, table string) string {
	if schema == "" {
		return quoteIdent(table)
	}
	return quoteIdent(schema) + "." + quoteIdent(table)
}

// Record is a bare model instance bound to a table, optionally carrying the
// schema qualifier that routes it at one tenant's tables.
type Record struct {
	Table  string
	Schema string
	Model  any
}

// NewRecord wraps a model value destined for the given table
func NewRecord(table string, model any) Record {
	return Record{Table: table, Model: model}
}

// WithSchema returns a copy of the record targeting the given schema
func (r Record) WithSchema(schema string) Record {
	r.Schema = schema
	return r
}

// Qualified returns the quoted, schema-qualified table reference
func (r Record) Qualified() string {
	return qualify(r.Schema, r.Table)
}

// Session returns a gorm handle scoped to the record's qualified table,
// ready for Create/First/Delete against the right tenant
func (r Record) Session(db *gorm.DB) *gorm.DB {
	return db.Table(r.Qualified())
}

// Changeset is a pending-mutation descriptor: a record plus the changes
// intended for it. Nothing is executed until the caller hands it to gorm.
type Changeset struct {
	Record  Record
	Changes map[string]any
}

// Change builds a changeset over a record
func Change(record Record, changes map[string]any) Changeset {
	return Changeset{Record: record, Changes: changes}
}

// WithSchema returns a copy of the changeset targeting the given schema
func (c Changeset) WithSchema(schema string) Changeset {
	c.Record = c.Record.WithSchema(schema)
	return c
}

// Qualified returns the quoted, schema-qualified table reference
func (c Changeset) Qualified() string {
	return c.Record.Qualified()
}

// Session returns a gorm handle scoped to the changeset's qualified table;
// pair it with Updates(c.Changes) or Create to execute the mutation
func (c Changeset) Session(db *gorm.DB) *gorm.DB {
	return c.Record.Session(db)
}

// condition is one WHERE clause fragment of a Query
type condition struct {
	expr string
	args []any
}

// Query is a composable query descriptor. Building it is pure; Session
// materializes it against a live gorm handle.
type Query struct {
	Table   string
	Schema  string
	conds   []condition
	orderBy string
	limit   int
}

// NewQuery starts a query descriptor over the given table
func NewQuery(table string) Query {
	return Query{Table: table}
}

// WithSchema returns a copy of the query targeting the given schema
func (q Query) WithSchema(schema string) Query {
	q.Schema = schema
	return q
}

// Where appends a condition and returns the extended query
func (q Query) Where(expr string, args ...any) Query {
	conds := make([]condition, len(q.conds), len(q.conds)+1)
	copy(conds, q.conds)
	q.conds = append(conds, condition{expr: expr, args: args})
	return q
}

// Order sets the ordering clause and returns the query
func (q Query) Order(expr string) Query {
	q.orderBy = expr
	return q
}

// Limit caps the result size and returns the query
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Qualified returns the quoted, schema-qualified table reference
func (q Query) Qualified() string {
	return qualify(q.Schema, q.Table)
}

// Session materializes the descriptor on a gorm handle scoped to the
// query's qualified table
func (q Query) Session(db *gorm.DB) *gorm.DB {
	tx := db.Table(q.Qualified())
	for _, c := range q.conds {
		tx = tx.Where(c.expr, c.args...)
	}
	if q.orderBy != "" {
		tx = tx.Order(q.orderBy)
	}
	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}
	return tx
}
