package tenant

import "strings"

// reservedPrefix marks Postgres system schemas (pg_catalog, pg_toast,
// pg_temp_* and friends). Any name carrying it is off limits.
const reservedPrefix = "pg_"

// defaultReservedNames are never manageable as tenants, regardless of
// whether a same-named schema exists in the catalog.
var defaultReservedNames = []string{
	"public",
	"information_schema",
	"pg_catalog",
	"pg_toast",
}

// ReservedNames decides which identifiers may never become tenant schemas.
// It is a pure predicate: no I/O, no database access.
type ReservedNames struct {
	literals map[string]struct{}
}

// NewReservedNames builds the reserved-name predicate from the built-in set
// plus any operator-supplied extras
func NewReservedNames(extra ...string) *ReservedNames {
	literals := make(map[string]struct{}, len(defaultReservedNames)+len(extra))
	for _, name := range defaultReservedNames {
		literals[name] = struct{}{}
	}
	for _, name := range extra {
		literals[name] = struct{}{}
	}
	return &ReservedNames{literals: literals}
}

// IsReserved reports whether the given name denotes a system or internal
// schema the manager must never touch
func (r *ReservedNames) IsReserved(name string) bool {
	if strings.HasPrefix(name, reservedPrefix) {
		return true
	}
	_, ok := r.literals[name]
	return ok
}
