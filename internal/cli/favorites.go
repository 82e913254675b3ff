package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// NewFavoritesCmd creates the favorites command group.
func NewFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List or toggle favorites",
	}
	cmd.AddCommand(newFavoritesListCmd(), newFavoritesToggleCmd())
	return cmd
}

func newFavoritesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List favorites (optionally ranked by --query)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			query, _ := cmd.Flags().GetString("query")
			limit, _ := cmd.Flags().GetInt("limit")

			var list []domain.Favorite
			if query != "" {
				list, err = ctx.Favorites.Search(cmd.Context(), query, limit)
			} else {
				list, err = ctx.Favorites.List(cmd.Context())
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				if list == nil {
					list = []domain.Favorite{}
				}
				return writeJSON(cmd, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No favorites yet")
				return nil
			}
			out := cmd.OutOrStdout()
			for _, f := range list {
				name := f.Name
				if name == "" {
					name = "(no snapshot)"
				}
				fmt.Fprintf(out, "%-10s %s", f.RecipeID, name)
				if f.Category != "" {
					fmt.Fprintf(out, " [%s]", f.Category)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringP("query", "q", "", "rank favorites by snapshot text")
	cmd.Flags().Int("limit", 20, "max results with --query")
	return cmd
}

func newFavoritesToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <recipe-id>",
		Short: "Add or remove a favorite",
		Long:  "Remove the recipe from the favorites when present, otherwise add it with the snapshot given by the flags.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			var snap *domain.RecipeSnapshot
			name, _ := cmd.Flags().GetString("name")
			category, _ := cmd.Flags().GetString("category")
			if name != "" || category != "" {
				snap = &domain.RecipeSnapshot{Name: name, Category: category}
			}

			res, err := ctx.Favorites.Toggle(cmd.Context(), args[0], snap)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				o := <-res.Sync
				body := map[string]any{"recipe_id": args[0], "added": res.Added, "count": len(res.Favorites)}
				if o.Attempted {
					body["sync_ok"] = o.Err == nil
				}
				return writeJSON(cmd, body)
			}
			verb := "Removed"
			if res.Added {
				verb = "Added"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d favorites)\n", verb, args[0], len(res.Favorites))
			syncLine(cmd, res.Sync)
			return nil
		},
	}
	cmd.Flags().String("name", "", "recipe name stored with the favorite")
	cmd.Flags().String("category", "", "recipe category stored with the favorite")
	return cmd
}
