package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/mise/internal/presentation/graph"
	"github.com/aretw0/mise/internal/presentation/tui"
	"github.com/aretw0/mise/pkg/catalog"
	"github.com/aretw0/mise/pkg/recipebook"
	"github.com/aretw0/mise/pkg/view"
	"github.com/spf13/cobra"
)

var recipeCmd = &cobra.Command{
	Use:     "recipe",
	Aliases: []string{"recipes"},
	Short:   "Manage the recipe book",
}

var recipeListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List recipes",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			q   catalog.Query
			err error
		)
		difficulty, _ := cmd.Flags().GetString("difficulty")
		if q.Difficulty, err = catalog.ParseDifficulty(difficulty); err != nil {
			return err
		}
		sort, _ := cmd.Flags().GetString("sort")
		if q.Sort, err = catalog.ParseSort(sort); err != nil {
			return err
		}
		q.FavoritesOnly, _ = cmd.Flags().GetBool("favorites")

		a, err := setup(cmd.Context(), cmd, extras{})
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.kitchen.ListRecipes(cmd.Context(), q)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No recipes.")
			return nil
		}
		for _, r := range list {
			star := " "
			if r.Favorite {
				star = "*"
			}
			fmt.Fprintf(out, "%s %-20s %-32s %-6s %6s  %d steps\n",
				star, r.ID, r.Title, r.Difficulty, view.MMSS(r.TotalDurationSec()), len(r.Steps))
		}
		return nil
	},
}

var recipeShowCmd = &cobra.Command{
	Use:   "show <recipe-id>",
	Short: "Render a recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd, extras{})
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.kitchen.GetRecipe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(r, nil))
			return nil
		}

		style, _ := cmd.Flags().GetString("style")
		rendered, err := tui.NewRenderer(style)(tui.RecipeMarkdown(r))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

var recipeImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import recipes from yaml or json recipe books",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd, extras{})
		if err != nil {
			return err
		}
		defer a.Close()

		total := 0
		for _, path := range args {
			list, err := recipebook.Load(path)
			if err != nil {
				return err
			}
			n, err := a.kitchen.ImportRecipes(cmd.Context(), list)
			total += n
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d recipe(s).\n", total)
		return nil
	},
}

var recipeRemoveCmd = &cobra.Command{
	Use:     "rm <recipe-id>...",
	Aliases: []string{"delete"},
	Short:   "Delete recipes",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd, extras{})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range args {
			if err := a.kitchen.DeleteRecipe(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", strings.Join(args, ", "))
		return nil
	},
}

var recipeFavoriteCmd = &cobra.Command{
	Use:   "fav <recipe-id>",
	Short: "Toggle the favorite flag of a recipe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), cmd, extras{})
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.kitchen.ToggleFavorite(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		state := "no longer a favorite"
		if r.Favorite {
			state = "a favorite"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is %s.\n", r.Title, state)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recipeCmd)
	recipeCmd.AddCommand(recipeListCmd, recipeShowCmd, recipeImportCmd, recipeRemoveCmd, recipeFavoriteCmd)

	recipeListCmd.Flags().String("difficulty", "", "Only list Easy, Medium or Hard recipes")
	recipeListCmd.Flags().String("sort", "", "Sort by total time: asc or desc")
	recipeListCmd.Flags().Bool("favorites", false, "Only list favorites")

	recipeShowCmd.Flags().Bool("mermaid", false, "Print the steps as a Mermaid flowchart")
	recipeShowCmd.Flags().String("style", "", "Glamour style (dark, light, notty...); detected when empty")
}
