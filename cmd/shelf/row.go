// Row commands: insert, get, list, update, delete, count.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

var (
	insertFields []string
	updateFields []string
	listCursor   string
	listLimit    int64
	countField   string
	countValue   string
)

var insertCmd = &cobra.Command{
	Use:   "insert <table>",
	Short: "Insert a row",
	Long: `Insert adds one row to a table. Every schema field must be given
exactly once.

Example:
  shelf insert users --field name=ada --field email=ada@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := parseFieldArgs(insertFields)
		if err != nil {
			return err
		}

		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := tbl.Insert(cmd.Context(), args[0], rec)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]string{"id": id})
		}
		fmt.Printf("Inserted row %s\n", id)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <table> <id>",
	Short: "Fetch one row by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		rec, err := tbl.GetByID(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printRows([]types.Row{{ID: args[1], Data: rec}})
	},
}

var listCmd = &cobra.Command{
	Use:   "list <table>",
	Short: "List rows",
	Long: `List prints a table's rows. Without --cursor it fetches everything;
with --cursor it returns one page at a time and prints the cursor for
the next call.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if listCursor == "" && !cmd.Flags().Changed("cursor") {
			rows, err := tbl.GetAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRows(rows)
		}

		rows, next, err := tbl.Scan(cmd.Context(), args[0], listCursor, listLimit)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]any{"rows": rows, "cursor": next})
		}
		if err := printRows(rows); err != nil {
			return err
		}
		if next != "" {
			fmt.Printf("next cursor: %s\n", next)
		}
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <table> <id>",
	Short: "Update fields of a row",
	Long: `Update rewrites the given fields of one row. Unnamed fields keep
their values. Concurrent writers are detected and retried; persistent
contention fails rather than losing a write.

Example:
  shelf update users 1 --field email=new@example.com`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := parseFieldArgs(updateFields)
		if err != nil {
			return err
		}

		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := tbl.Update(cmd.Context(), args[0], args[1], rec); err != nil {
			return err
		}
		fmt.Printf("Updated row %s\n", args[1])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <table> <id>",
	Short: "Delete a row",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := tbl.Delete(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted row %s\n", args[1])
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count <table>",
	Short: "Count rows, optionally by field value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Changed, not emptiness: the empty string is a legal field
		// value to count by.
		byField := cmd.Flags().Changed("by-field")
		if byField != cmd.Flags().Changed("value") {
			return fmt.Errorf("%w: --by-field and --value must be given together", errUsage)
		}

		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		var n int64
		if byField {
			n, err = tbl.CountByField(cmd.Context(), args[0], countField, countValue)
		} else {
			n, err = tbl.Count(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]int64{"count": n})
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	insertCmd.Flags().StringArrayVar(&insertFields, "field", nil, "field as name=value (repeatable, required)")
	_ = insertCmd.MarkFlagRequired("field")

	updateCmd.Flags().StringArrayVar(&updateFields, "field", nil, "field as name=value (repeatable, required)")
	_ = updateCmd.MarkFlagRequired("field")

	listCmd.Flags().StringVar(&listCursor, "cursor", "", "resume cursor from a previous page")
	listCmd.Flags().Int64Var(&listLimit, "limit", 100, "page size when paging with --cursor")

	countCmd.Flags().StringVar(&countField, "by-field", "", "count rows holding a field value")
	countCmd.Flags().StringVar(&countValue, "value", "", "field value for --by-field")
}
