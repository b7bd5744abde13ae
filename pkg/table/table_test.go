package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/memory"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// newTestStore returns a table store over a fresh in-memory backend,
// plus the backend for direct primitive-level assertions.
func newTestStore(t *testing.T, opts ...Option) (*Store, *memory.Store) {
	t.Helper()
	mem := memory.New()
	return New(mem, opts...), mem
}

// mustCreate is the common fixture: a "users" table with name and email.
func mustCreate(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.CreateSchema(context.Background(), "users", []string{"name", "email"}))
}

func TestValidateExact(t *testing.T) {
	schema := []string{"a", "b"}

	require.NoError(t, validateExact("t", schema, types.Record{"a": "1", "b": "2"}))

	err := validateExact("t", schema, types.Record{"a": "1"})
	var fm *types.FieldMismatchError
	require.ErrorAs(t, err, &fm)
	require.Equal(t, []string{"b"}, fm.Missing)
	require.Empty(t, fm.Extra)

	err = validateExact("t", schema, types.Record{"a": "1", "b": "2", "c": "3"})
	require.ErrorAs(t, err, &fm)
	require.Equal(t, []string{"c"}, fm.Extra)
}

func TestValidatePartial(t *testing.T) {
	schema := []string{"a", "b"}

	require.NoError(t, validatePartial("t", schema, types.Record{"b": "2"}))
	require.NoError(t, validatePartial("t", schema, types.Record{}))

	err := validatePartial("t", schema, types.Record{"c": "3"})
	var fm *types.FieldMismatchError
	require.ErrorAs(t, err, &fm)
	require.Equal(t, []string{"c"}, fm.Extra)

	// System fields cannot be written through a partial update.
	err = validatePartial("t", schema, types.Record{types.FieldCreatedAt: "0"})
	require.ErrorAs(t, err, &fm)
}
