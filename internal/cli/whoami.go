package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the local user identifier",
		Long:  "Print the local user identifier, creating it on first use.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			uid, err := ctx.Identity.Get(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd, map[string]string{"user_identifier": uid})
			}
			fmt.Fprintln(cmd.OutOrStdout(), uid)
			return nil
		},
	}
}
