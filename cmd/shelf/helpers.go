// Shared helpers for shelf CLI commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/shelf/pkg/session"
	"github.com/mesh-intelligence/shelf/pkg/store"
	"github.com/mesh-intelligence/shelf/pkg/table"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// openStore connects the configured backend. The caller must close it.
func openStore(ctx context.Context) (types.Store, error) {
	st, err := store.Open(ctx, shelfConfig)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", shelfConfig.Backend, err)
	}
	return st, nil
}

// openTables connects the backend and wraps it in the table layer. The
// returned closer shuts the store down.
func openTables(ctx context.Context) (*table.Store, func(), error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	tbl := table.New(st,
		table.WithRetries(shelfConfig.Retries()),
		table.WithLogger(logger),
	)
	return tbl, func() { _ = st.Close() }, nil
}

// openSessions connects the backend and wraps it in the session layer.
func openSessions(ctx context.Context) (*session.Store, func(), error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return session.New(st), func() { _ = st.Close() }, nil
}

// parseFieldArgs turns repeated key=value flags into a record.
func parseFieldArgs(args []string) (types.Record, error) {
	rec := make(types.Record, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: field %q: expected name=value", errUsage, arg)
		}
		rec[key] = value
	}
	return rec, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// printRecord writes one record as aligned name: value lines, fields
// sorted, system fields last.
func printRecord(rec types.Record) {
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		si, sj := types.IsSystemField(names[i]), types.IsSystemField(names[j])
		if si != sj {
			return !si
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Printf("  %s: %s\n", name, rec[name])
	}
}

// printRows writes rows in the requested output format.
func printRows(rows []types.Row) error {
	if flagJSON {
		return printJSON(rows)
	}
	for _, row := range rows {
		fmt.Printf("id %s\n", row.ID)
		printRecord(row.Data)
	}
	return nil
}
