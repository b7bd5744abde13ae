// Schema subcommands: create, show, drop.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var schemaFields []string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage table schemas",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create <table>",
	Short: "Create a table schema",
	Long: `Create defines a table's field list. The schema is immutable once
created; drop the table to redefine it.

Example:
  shelf schema create users --fields name,email`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := tbl.CreateSchema(cmd.Context(), args[0], schemaFields); err != nil {
			return err
		}
		fmt.Printf("Created table %s (%s)\n", args[0], strings.Join(schemaFields, ", "))
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Show a table's schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		fields, err := tbl.GetSchema(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]any{"table": args[0], "fields": fields})
		}
		fmt.Printf("%s: %s\n", args[0], strings.Join(fields, ", "))
		return nil
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop <table>",
	Short: "Drop a table, its rows, and its indexes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, closeStore, err := openTables(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := tbl.DropTable(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Dropped table %s\n", args[0])
		return nil
	},
}

func init() {
	schemaCreateCmd.Flags().StringSliceVar(&schemaFields, "fields", nil, "comma-separated field names (required)")
	_ = schemaCreateCmd.MarkFlagRequired("fields")

	schemaCmd.AddCommand(schemaCreateCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaDropCmd)
}
