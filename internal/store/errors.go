package store

import (
	"errors"

	"github.com/MKhiriev/go-sync-core/internal/validators"
)

// Sentinel errors returned by the store to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrValidation is returned when a record payload is rejected by its
	// schema before anything is written. It is the same value as
	// [validators.ErrValidation], so either can be matched.
	ErrValidation = validators.ErrValidation

	// ErrNotFound is returned when an operation targets a local id (or
	// server id) that is not present in the store.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an identity or state invariant would be
	// violated: re-assigning a server id, mutating a tombstone, or purging a
	// record that is not a confirmed tombstone.
	ErrConflict = errors.New("record state conflict")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT against the
	// database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when iterating a multi-row result fails.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrEncodingPayload is returned when a payload cannot be encoded to or
	// decoded from its stored JSON form.
	ErrEncodingPayload = errors.New("failed to encode payload")
)
