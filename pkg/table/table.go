// Package table models schema-validated tables on top of the store
// primitives: one hash per row, a membership set of live row ids per
// table, and a set of row ids per observed (field, value) pair.
//
// The row hash and the membership set are kept strictly consistent:
// every mutation that touches both does so in one atomic submission.
// Field-value indexes are a derived projection maintained best-effort
// after the row write commits; a crash between the two can leave an
// index entry stale until the next write or a rebuild. See
// RebuildIndexes.
package table

import (
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Store provides table operations over a backing key-value store.
// Methods are safe for concurrent use; contended mutations on the same
// row are resolved by the store's optimistic transaction, with losers
// retrying up to the configured bound.
type Store struct {
	st      types.Store
	retries int
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRetries sets the optimistic retry bound for conditioned mutations.
func WithRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retries = n
		}
	}
}

// WithLogger sets the logger used for best-effort maintenance warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a table store over st.
func New(st types.Store, opts ...Option) *Store {
	s := &Store{
		st:      st,
		retries: types.DefaultTxRetries,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// nowMillis returns the current time as a millisecond epoch string, the
// format of the _created_at and _updated_at system fields.
func nowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// validateExact checks that rec's keys are exactly the schema fields.
// Both missing and extra fields are errors, reported separately.
func validateExact(table string, schema []string, rec types.Record) error {
	want := make(map[string]bool, len(schema))
	var missing, extra []string
	for _, f := range schema {
		want[f] = true
		if _, ok := rec[f]; !ok {
			missing = append(missing, f)
		}
	}
	for f := range rec {
		if !want[f] {
			extra = append(extra, f)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return &types.FieldMismatchError{Table: table, Missing: missing, Extra: extra}
}

// validatePartial checks that every key of rec is a schema field.
// Missing fields are fine for a partial update; extras, including the
// system fields, are not.
func validatePartial(table string, schema []string, rec types.Record) error {
	want := make(map[string]bool, len(schema))
	for _, f := range schema {
		want[f] = true
	}
	var extra []string
	for f := range rec {
		if !want[f] {
			extra = append(extra, f)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return &types.FieldMismatchError{Table: table, Extra: extra}
}
