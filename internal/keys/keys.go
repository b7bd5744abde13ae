// Package keys derives store key names from table names, row ids, field
// names and values, and session ids. The derivations are pure functions
// and the resulting strings are a compatibility contract: any store
// populated by an earlier deployment must remain readable, so the
// formats here never change.
package keys

// Key name segments.
const (
	segSchema  = ":schema"
	segRows    = ":rows"
	segNextID  = ":next_id"
	segIndex   = ":index:"
	segSorted  = ":sorted:"
	sessPrefix = "session:"
)

// TableSchema returns the key of the table's schema hash.
func TableSchema(table string) string { return table + segSchema }

// TableRows returns the key of the table's membership set, the set of
// all live row ids.
func TableRows(table string) string { return table + segRows }

// TableNextID returns the key of the table's id counter.
func TableNextID(table string) string { return table + segNextID }

// Row returns the key of a row hash.
func Row(table, id string) string { return table + ":" + id }

// FieldIndex returns the key of the set of row ids whose field holds
// value.
func FieldIndex(table, field, value string) string {
	return table + segIndex + field + ":" + value
}

// FieldIndexPattern returns the glob pattern matching every field-value
// index key of the table.
func FieldIndexPattern(table string) string { return table + segIndex + "*" }

// TableSorted returns the key of the sorted index bound to a table
// field.
func TableSorted(table, field string) string { return table + segSorted + field }

// SortedPattern returns the glob pattern matching every sorted index
// key bound to the table.
func SortedPattern(table string) string { return table + segSorted + "*" }

// Session returns the key of a session entry.
func Session(id string) string { return sessPrefix + id }

// SchemaPattern returns the glob pattern matching every schema key in
// the store, used to enumerate tables.
func SchemaPattern() string { return "*" + segSchema }
