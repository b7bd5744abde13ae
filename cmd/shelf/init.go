package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file and verify the store",
	Long: `Init creates the configuration directory with a default config.yaml
if none exists, then connects to the configured backend once to verify
it is reachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := ensureDefaultConfigFile()
		if err != nil {
			return err
		}

		// Re-read config now that the file exists.
		if err := loadGlobalConfig(); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		_ = st.Close()

		fmt.Printf("Initialized shelf (%s backend, config at %s)\n", shelfConfig.Backend, path)
		return nil
	},
}
