package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/query"
)

var flagName string

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"category", "c"},
	Short:   "List and manage categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories, optionally filtered by name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			p := query.Params{
				Page:   flagPage,
				Limit:  pageSize(cmd, a),
				Search: flagSearch,
			}
			resp := a.categories.List(cmd.Context(), p)
			return render(cmd, resp, func(w io.Writer) { categoryTable(w, resp.Data) })
		})
	},
}

var categoriesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			resp := a.categories.Get(cmd.Context(), args[0])
			return render(cmd, resp, func(w io.Writer) { categoryDetail(w, resp.Data) })
		})
	},
}

var categoriesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			resp := a.categories.Create(cmd.Context(), model.CategoryInput{Name: flagName})
			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "Created category %s\n", resp.Data.ID)
			})
		})
	},
}

var categoriesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("name") {
			return errors.New("nothing to update: pass --name")
		}
		return withApp(cmd, func(a *app) error {
			patch := model.CategoryPatch{Name: model.StringPtr(flagName)}
			resp := a.categories.Update(cmd.Context(), args[0], patch)
			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "Updated category %s\n", resp.Data.ID)
			})
		})
	},
}

var categoriesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			resp := a.categories.Delete(cmd.Context(), args[0])
			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted category %s\n", args[0])
			})
		})
	},
}

func init() {
	categoriesListCmd.Flags().IntVar(&flagPage, "page", 1, "page number")
	categoriesListCmd.Flags().IntVar(&flagLimit, "limit", 0, "page size (default from config)")
	categoriesListCmd.Flags().StringVar(&flagSearch, "search", "", "case-insensitive name match")

	categoriesCreateCmd.Flags().StringVar(&flagName, "name", "", "category name")
	categoriesUpdateCmd.Flags().StringVar(&flagName, "name", "", "new name")

	categoriesCmd.AddCommand(categoriesListCmd)
	categoriesCmd.AddCommand(categoriesGetCmd)
	categoriesCmd.AddCommand(categoriesCreateCmd)
	categoriesCmd.AddCommand(categoriesUpdateCmd)
	categoriesCmd.AddCommand(categoriesDeleteCmd)
}
