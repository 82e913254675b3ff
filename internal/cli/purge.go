package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipe-backend/internal/repo"
)

// NewPurgeCmd creates the purge command.
func NewPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired idempotency records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			n, err := repo.PurgeIdempotency(cmd.Context(), ctx.DB, time.Now().UTC())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd, map[string]int64{"removed": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired idempotency records\n", n)
			return nil
		},
	}
}
