package types

import (
	"errors"
	"fmt"
	"strings"
)

// Schema and row operation errors.
var (
	// ErrNotFound reports that the target of a read, update, or delete
	// is absent. It is a normal outcome, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrNoSchema reports a write to a table that has no schema.
	ErrNoSchema = errors.New("table has no schema")

	// ErrSchemaExists reports a schema create on a table that already
	// has one. Schemas are immutable except by explicit drop.
	ErrSchemaExists = errors.New("schema already exists")

	// ErrInvalidSchema reports a schema with an empty field list.
	ErrInvalidSchema = errors.New("schema must list at least one field")

	// ErrFieldMismatch reports a record whose keys are not exactly the
	// schema fields. The wrapping FieldMismatchError names the fields.
	ErrFieldMismatch = errors.New("record fields do not match schema")
)

// Transaction errors.
var (
	// ErrTxAborted reports that a watched key changed between watch and
	// commit; the queued writes were discarded. Backends return it from
	// Tx.Commit, callers normally see it only through the retry loop.
	ErrTxAborted = errors.New("transaction aborted by concurrent modification")

	// ErrConcurrency reports that the bounded retry loop exhausted its
	// attempts without committing. It is fatal and always surfaced.
	ErrConcurrency = errors.New("concurrent modification retries exhausted")
)

// FieldMismatchError reports which record fields diverge from the table
// schema. Missing lists schema fields absent from the record; Extra lists
// record fields the schema does not declare.
type FieldMismatchError struct {
	Table   string
	Missing []string
	Extra   []string
}

func (e *FieldMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing ["+strings.Join(e.Missing, ", ")+"]")
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "extra ["+strings.Join(e.Extra, ", ")+"]")
	}
	return fmt.Sprintf("table %q: %s: %s", e.Table, ErrFieldMismatch, strings.Join(parts, ", "))
}

// Unwrap lets errors.Is(err, ErrFieldMismatch) match.
func (e *FieldMismatchError) Unwrap() error { return ErrFieldMismatch }
