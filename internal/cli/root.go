// Package cli implements recipectl, an operator CLI over the same local
// storage the server uses: identity, favorites, reviews, profile and
// idempotency housekeeping.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipe-backend/internal/sysutil"
)

// AppName is the binary name shown in usage and version output.
const AppName = "recipectl"

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "recipectl - inspect and edit local recipe data",
		Long:          "recipectl reads and writes the local favorites, reviews and profile stored by the recipe server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := sysutil.FirstNonEmpty(os.Getenv("LOG_LEVEL"), "warn")
			if verbose {
				level = "debug"
			}
			sysutil.ConfigureLogger(level, !sysutil.IsTruthy(os.Getenv("LOG_JSON")), cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("db", "", "SQLite database path (default $DB_PATH or recipes.db)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("sync", false, "push changes to the remote recipe API and wait for the outcome")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	cmd.AddCommand(
		NewWhoamiCmd(),
		NewFavoritesCmd(),
		NewReviewsCmd(),
		NewProfileCmd(),
		NewPurgeCmd(),
	)
	return cmd
}

// Execute runs the root command with os.Args.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}
