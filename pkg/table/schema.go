package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/shelf/internal/keys"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// fieldKind is the value stored per schema field. All fields are
// string-valued today; keeping a kind slot means existing schemas stay
// readable if that ever widens.
const fieldKind = "string"

// CreateSchema persists the field set for table. It fails with
// ErrSchemaExists when the table already has a schema and with
// ErrInvalidSchema when fields is empty or contains an empty or system
// field name. A schema, once created, is immutable except by DropTable.
func (s *Store) CreateSchema(ctx context.Context, table string, fields []string) error {
	if table == "" || len(fields) == 0 {
		return types.ErrInvalidSchema
	}
	for _, f := range fields {
		if f == "" || types.IsSystemField(f) {
			return fmt.Errorf("%w: bad field name %q", types.ErrInvalidSchema, f)
		}
	}

	exists, err := s.st.Exists(ctx, keys.TableSchema(table))
	if err != nil {
		return fmt.Errorf("checking schema for %q: %w", table, err)
	}
	if exists {
		return fmt.Errorf("table %q: %w", table, types.ErrSchemaExists)
	}

	spec := make(map[string]string, len(fields))
	for _, f := range fields {
		spec[f] = fieldKind
	}
	if err := s.st.HSet(ctx, keys.TableSchema(table), spec); err != nil {
		return fmt.Errorf("writing schema for %q: %w", table, err)
	}
	return nil
}

// GetSchema returns the table's schema fields in sorted order, or
// ErrNoSchema when the table is undefined.
func (s *Store) GetSchema(ctx context.Context, table string) ([]string, error) {
	spec, err := s.st.HGetAll(ctx, keys.TableSchema(table))
	if err != nil {
		return nil, fmt.Errorf("reading schema for %q: %w", table, err)
	}
	if len(spec) == 0 {
		return nil, fmt.Errorf("table %q: %w", table, types.ErrNoSchema)
	}
	fields := make([]string, 0, len(spec))
	for f := range spec {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields, nil
}

// TableExists reports whether table has a schema.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	exists, err := s.st.Exists(ctx, keys.TableSchema(table))
	if err != nil {
		return false, fmt.Errorf("checking schema for %q: %w", table, err)
	}
	return exists, nil
}

// ListTables enumerates every table with a schema, in sorted order.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	var cursor uint64
	for {
		page, next, err := s.st.ScanKeys(ctx, cursor, keys.SchemaPattern(), scanPageSize)
		if err != nil {
			return nil, fmt.Errorf("scanning schemas: %w", err)
		}
		for _, k := range page {
			tables = append(tables, strings.TrimSuffix(k, ":schema"))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(tables)
	return tables, nil
}

// DropTable removes the table's rows, field-value indexes, bound
// sorted indexes (schema fields or not, found by keyspace scan),
// schema, membership set, and id counter. It fails with ErrNotFound
// when the table is undefined.
//
// The removal is not transactional: a crash mid-drop may leave orphaned
// row or index keys behind. Callers must not rely on drop atomicity;
// re-running the drop removes what the first pass left.
func (s *Store) DropTable(ctx context.Context, table string) error {
	if _, err := s.GetSchema(ctx, table); err != nil {
		if errors.Is(err, types.ErrNoSchema) {
			return fmt.Errorf("table %q: %w", table, types.ErrNotFound)
		}
		return err
	}

	ids, err := s.st.SMembers(ctx, keys.TableRows(table))
	if err != nil {
		return fmt.Errorf("listing rows of %q: %w", table, err)
	}
	for _, id := range ids {
		row, err := s.st.HGetAll(ctx, keys.Row(table, id))
		if err != nil {
			return fmt.Errorf("reading row %s of %q: %w", id, table, err)
		}
		if err := s.deindexRow(ctx, table, id, row); err != nil {
			return err
		}
		if _, err := s.st.Del(ctx, keys.Row(table, id)); err != nil {
			return fmt.Errorf("deleting row %s of %q: %w", id, table, err)
		}
	}

	// Sorted indexes may be bound to non-schema fields; scan rather
	// than derive their keys from the schema.
	sorted, err := s.scanMatching(ctx, keys.SortedPattern(table))
	if err != nil {
		return fmt.Errorf("scanning sorted indexes of %q: %w", table, err)
	}

	doomed := []string{keys.TableSchema(table), keys.TableRows(table), keys.TableNextID(table)}
	doomed = append(doomed, sorted...)
	if _, err := s.st.Del(ctx, doomed...); err != nil {
		return fmt.Errorf("dropping table %q: %w", table, err)
	}
	return nil
}
