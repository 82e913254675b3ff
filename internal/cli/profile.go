package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewProfileCmd creates the profile command group.
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the local profile",
	}
	cmd.AddCommand(newProfileShowCmd(), newProfileSetCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the local profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			p, err := ctx.Profiles.Get(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd, p)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Username: %s\n", p.Username)
			if p.Bio != "" {
				fmt.Fprintf(out, "Bio:      %s\n", p.Bio)
			}
			if p.Avatar != "" {
				fmt.Fprintf(out, "Avatar:   %d bytes\n", len(p.Avatar))
			}
			fmt.Fprintf(out, "User ID:  %s\n", p.UserID)
			return nil
		},
	}
}

func newProfileSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update username and/or bio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			p, err := ctx.Profiles.Get(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if cmd.Flags().Changed("username") {
				p.Username, _ = cmd.Flags().GetString("username")
			}
			if cmd.Flags().Changed("bio") {
				p.Bio, _ = cmd.Flags().GetString("bio")
			}
			saved, err := ctx.Profiles.Save(cmd.Context(), p)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd, saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile saved for %s\n", saved.Username)
			return nil
		},
	}
	cmd.Flags().String("username", "", "display name (1-50 characters)")
	cmd.Flags().String("bio", "", "short bio (up to 200 characters)")
	return cmd
}
