package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

// NewReviewsCmd creates the reviews command group.
func NewReviewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List, add or delete reviews",
	}
	cmd.AddCommand(newReviewsListCmd(), newReviewsAddCmd(), newReviewsRmCmd())
	return cmd
}

func newReviewsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your reviews, or all local reviews of --recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			recipeID, _ := cmd.Flags().GetString("recipe")
			var list []domain.Review
			if recipeID != "" {
				list, err = ctx.Reviews.ListForRecipe(cmd.Context(), recipeID)
			} else {
				list, err = ctx.Reviews.ListUserReviews(cmd.Context())
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				if list == nil {
					list = []domain.Review{}
				}
				return writeJSON(cmd, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reviews")
				return nil
			}
			out := cmd.OutOrStdout()
			for _, r := range list {
				label := r.RecipeName
				if label == "" {
					label = r.RecipeID.String()
				}
				fmt.Fprintf(out, "%s  %s  %s", r.ID, stars(r.Rating), label)
				if r.Comment != "" {
					fmt.Fprintf(out, ": %s", r.Comment)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().String("recipe", "", "recipe id")
	return cmd
}

func newReviewsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <recipe-id> <rating> [comment...]",
		Short: "Add a review (rating 1-5)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return writeCommandError(cmd, fmt.Errorf("rating must be a number: %q", args[1]))
			}

			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			res, err := ctx.Reviews.Submit(cmd.Context(), args[0], rating, strings.Join(args[2:], " "))
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				<-res.Sync
				return writeJSON(cmd, map[string]any{"review": res.Review, "summary": res.Summary})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved review %s. %s now averages %.1f over %d reviews\n",
				res.Review.ID, args[0], res.Summary.AverageRating, res.Summary.ReviewCount)
			syncLine(cmd, res.Sync)
			return nil
		},
	}
}

func newReviewsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <review-id>",
		Short: "Delete one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := ctx.Reviews.Delete(cmd.Context(), args[0]); err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd, map[string]any{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted review %s\n", args[0])
			return nil
		},
	}
}
