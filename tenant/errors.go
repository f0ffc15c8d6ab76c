package tenant

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a tenant operation failure. The values double as metric
// and log labels.
type Kind string

const (
	// KindReservedName means the target name is reserved; no database call
	// was made.
	KindReservedName Kind = "reserved_name"
	// KindInvalidName means the target name is not a valid schema
	// identifier; no database call was made.
	KindInvalidName Kind = "invalid_name"
	// KindDuplicateNamespace means a schema with the target name already
	// exists (SQLSTATE 42P06).
	KindDuplicateNamespace Kind = "duplicate_namespace"
	// KindNamespaceNotFound means the target schema is absent
	// (SQLSTATE 3F000).
	KindNamespaceNotFound Kind = "namespace_not_found"
	// KindMigrationFailed means a migration script's DDL/DML failed.
	KindMigrationFailed Kind = "migration_failed"
	// KindDatabaseFailure covers other engine-reported errors.
	KindDatabaseFailure Kind = "database_failure"
	// KindConnectionFailure covers transport and pool-level failures.
	KindConnectionFailure Kind = "connection_failure"
)

// Error is a typed failure from a tenant operation. Detail preserves the
// database engine's native error text verbatim; callers and tests depend on
// matching the original message, so it is never paraphrased.
type Error struct {
	Kind   Kind
	Tenant string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure classification from an error chain. It
// returns an empty Kind for plain errors.
func KindOf(err error) Kind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return ""
}

// reservedError is raised before any database call is attempted
func reservedError(name string) error {
	return &Error{
		Kind:   KindReservedName,
		Tenant: name,
		Detail: fmt.Sprintf("cannot manage the tenant %q because it is a reserved name", name),
	}
}

func invalidNameError(name string) error {
	return &Error{
		Kind:   KindInvalidName,
		Tenant: name,
		Detail: fmt.Sprintf("invalid tenant name %q: expected letters, digits or underscores, not starting with a digit", name),
	}
}

// classifyDB wraps an error from schema DDL or catalog access. Postgres
// errors are classified by SQLSTATE; the native text travels through
// unchanged.
func classifyDB(name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := KindDatabaseFailure
		switch pgErr.Code {
		case "42P06": // duplicate_schema
			kind = KindDuplicateNamespace
		case "23505": // unique_violation on pg_namespace, the loser of a concurrent create
			kind = KindDuplicateNamespace
		case "3F000": // invalid_schema_name
			kind = KindNamespaceNotFound
		}
		return &Error{Kind: kind, Tenant: name, Detail: pgErr.Error(), Err: err}
	}
	return &Error{Kind: KindConnectionFailure, Tenant: name, Detail: err.Error(), Err: err}
}

// classifyMigration wraps an error raised while applying migration scripts.
// A missing schema is still reported as such; everything else the engine
// rejects during a run is a script failure.
func classifyMigration(name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := KindMigrationFailed
		if pgErr.Code == "3F000" {
			kind = KindNamespaceNotFound
		}
		return &Error{Kind: kind, Tenant: name, Detail: pgErr.Error(), Err: err}
	}
	return &Error{Kind: KindConnectionFailure, Tenant: name, Detail: err.Error(), Err: err}
}
