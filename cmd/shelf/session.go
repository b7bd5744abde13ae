// Session subcommands: create, get, refresh, delete.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sessionSubject string
	sessionTTL     time.Duration
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage expiring sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session for a subject",
	Long: `Create mints a session id mapping to the subject and arms its
expiry.

Example:
  shelf session create --subject u1 --ttl 30m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeStore, err := openSessions(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		id, err := sess.Create(cmd.Context(), sessionSubject, sessionTTL)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]string{"id": id, "subject": sessionSubject})
		}
		fmt.Println(id)
		return nil
	},
}

var sessionGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Resolve a session to its subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeStore, err := openSessions(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		subject, err := sess.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]string{"id": args[0], "subject": subject})
		}
		fmt.Println(subject)
		return nil
	},
}

var sessionRefreshCmd = &cobra.Command{
	Use:   "refresh <id>",
	Short: "Reset a session's expiry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeStore, err := openSessions(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := sess.Refresh(cmd.Context(), args[0], sessionTTL); err != nil {
			return err
		}
		fmt.Printf("Refreshed session %s\n", args[0])
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Revoke a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeStore, err := openSessions(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		if err := sess.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionCreateCmd.Flags().StringVar(&sessionSubject, "subject", "", "subject id the session maps to (required)")
	sessionCreateCmd.Flags().DurationVar(&sessionTTL, "ttl", 30*time.Minute, "session lifetime")
	_ = sessionCreateCmd.MarkFlagRequired("subject")

	sessionRefreshCmd.Flags().DurationVar(&sessionTTL, "ttl", 30*time.Minute, "new session lifetime")

	sessionCmd.AddCommand(sessionCreateCmd)
	sessionCmd.AddCommand(sessionGetCmd)
	sessionCmd.AddCommand(sessionRefreshCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}
