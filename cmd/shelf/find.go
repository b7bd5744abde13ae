// Index commands: find, reindex, tables.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find <table> <field> <value>",
	Short: "Find rows by field value",
	Long: `Find returns every row whose field currently holds the given value,
resolved through the field-value index. An unknown table or value
yields an empty result, not an error.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		rows, err := tbl.FindByField(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return printRows(rows)
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex <table>",
	Short: "Rebuild a table's field-value indexes from its rows",
	Long: `Reindex drops every field-value index of the table and recomputes it
from current row state. Use it to heal indexes after a crash in the
middle of a mutation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := tbl.RebuildIndexes(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Rebuilt indexes for %s\n", args[0])
		return nil
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List defined tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		names, err := tbl.ListTables(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(names)
		}
		if len(names) > 0 {
			fmt.Println(strings.Join(names, "\n"))
		}
		return nil
	},
}
