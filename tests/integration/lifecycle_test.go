// End-to-end table lifecycle over every embedded backend: schema,
// insert, find, update, delete, drop.
package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

func TestTableLifecycle(t *testing.T) {
	for name, cfg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := newTables(openBackend(t, cfg))

			require.NoError(t, tbl.CreateSchema(ctx, "t", []string{"a"}))

			id1, err := tbl.Insert(ctx, "t", types.Record{"a": "x"})
			require.NoError(t, err)
			assert.Equal(t, "1", id1)

			id2, err := tbl.Insert(ctx, "t", types.Record{"a": "y"})
			require.NoError(t, err)
			assert.Equal(t, "2", id2)

			rows, err := tbl.FindByField(ctx, "t", "a", "x")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "1", rows[0].ID)
			assert.Equal(t, "x", rows[0].Data["a"])
			assert.NotEmpty(t, rows[0].Data[types.FieldCreatedAt])

			// Update moves the index entry.
			require.NoError(t, tbl.Update(ctx, "t", "1", types.Record{"a": "z"}))
			rows, err = tbl.FindByField(ctx, "t", "a", "x")
			require.NoError(t, err)
			assert.Empty(t, rows)
			rows, err = tbl.FindByField(ctx, "t", "a", "z")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "1", rows[0].ID)

			// Delete removes the row everywhere.
			require.NoError(t, tbl.Delete(ctx, "t", "1"))
			_, err = tbl.GetByID(ctx, "t", "1")
			assert.ErrorIs(t, err, types.ErrNotFound)
			count, err := tbl.Count(ctx, "t")
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			// Ids are never reused after deletes.
			id3, err := tbl.Insert(ctx, "t", types.Record{"a": "w"})
			require.NoError(t, err)
			assert.Equal(t, "3", id3)

			// Drop, then the table reads as absent and finds are empty.
			require.NoError(t, tbl.DropTable(ctx, "t"))
			exists, err := tbl.TableExists(ctx, "t")
			require.NoError(t, err)
			assert.False(t, exists)
			rows, err = tbl.FindByField(ctx, "t", "a", "z")
			require.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestFieldMismatchRejectedBeforeMutation(t *testing.T) {
	for name, cfg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := newTables(openBackend(t, cfg))

			require.NoError(t, tbl.CreateSchema(ctx, "t", []string{"a", "b"}))

			_, err := tbl.Insert(ctx, "t", types.Record{"a": "x"})
			require.ErrorIs(t, err, types.ErrFieldMismatch)

			_, err = tbl.Insert(ctx, "t", types.Record{"a": "x", "b": "y", "c": "z"})
			require.ErrorIs(t, err, types.ErrFieldMismatch)

			count, err := tbl.Count(ctx, "t")
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestSortedFieldJoin(t *testing.T) {
	for name, cfg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := newTables(openBackend(t, cfg))

			require.NoError(t, tbl.CreateSchema(ctx, "players", []string{"name"}))
			for _, p := range []struct {
				name  string
				score float64
			}{{"ada", 30}, {"bob", 10}, {"cyd", 20}} {
				id, err := tbl.Insert(ctx, "players", types.Record{"name": p.name})
				require.NoError(t, err)
				require.NoError(t, tbl.SetSortedField(ctx, "players", "score", id, p.score))
			}

			rng := types.FullScoreRange()
			rng.Rev = true
			rows, err := tbl.GetRowsBySortedField(ctx, "players", "score", rng)
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, "ada", rows[0].Data["name"])
			assert.Equal(t, "bob", rows[2].Data["name"])
		})
	}
}
