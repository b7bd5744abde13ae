// Package types defines the Store primitives interface, record and row
// value types, configuration, and standard errors for the Shelf
// table-modeling layer.
//
// Shelf models schema-validated tables, secondary field indexes, sorted
// indexes, and sessions on top of a key-value store that offers strings,
// hashes, sets, sorted sets, and an optimistic watch/commit transaction.
// The Store interface in this package captures exactly that primitive
// surface; the backends under internal/ implement it.
package types
