package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/query"
)

var (
	flagPage     int
	flagLimit    int
	flagSearch   string
	flagCategory string
	flagTitle    string
	flagContent  string
)

var articlesCmd = &cobra.Command{
	Use:     "articles",
	Aliases: []string{"article", "a"},
	Short:   "List and manage articles",
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles, optionally filtered by search text and category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			p := query.Params{
				Page:       flagPage,
				Limit:      pageSize(cmd, a),
				Search:     flagSearch,
				CategoryID: flagCategory,
			}
			resp := a.articles.List(cmd.Context(), p)
			return render(cmd, resp, func(w io.Writer) {
				articleTable(w, resp.Data, categoriesFor(cmd.Context(), a, resp.Data.Items...))
			})
		})
	},
}

var articlesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			resp := a.articles.Get(cmd.Context(), args[0])
			return render(cmd, resp, func(w io.Writer) {
				articleDetail(w, resp.Data, categoriesFor(cmd.Context(), a, resp.Data))
			})
		})
	},
}

var articlesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an article",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			resp := a.articles.Create(cmd.Context(), model.ArticleInput{
				Title:      flagTitle,
				Content:    flagContent,
				CategoryID: flagCategory,
			})
			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "Created article %s\n", resp.Data.ID)
			})
		})
	},
}

var articlesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the given fields of an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := articlePatch(cmd)
		if patch.Empty() {
			return errors.New("nothing to update: pass --title, --content or --category")
		}
		return withApp(cmd, func(a *app) error {
			resp := a.articles.Update(cmd.Context(), args[0], patch)
			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "Updated article %s\n", resp.Data.ID)
			})
		})
	},
}

var articlesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			resp := a.articles.Delete(cmd.Context(), args[0])
			return render(cmd, resp, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted article %s\n", args[0])
			})
		})
	},
}

var articlesRelatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "List other articles in the same category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			ctx := cmd.Context()
			article := a.articles.Get(ctx, args[0])
			if !article.Status {
				return errors.New(article.Message)
			}
			resp := a.articles.Related(ctx, article.Data.CategoryID, article.Data.ID, flagLimit)
			return render(cmd, resp, func(w io.Writer) {
				articleTable(w, resp.Data, categoriesFor(ctx, a, resp.Data.Items...))
			})
		})
	},
}

func init() {
	articlesListCmd.Flags().IntVar(&flagPage, "page", 1, "page number")
	articlesListCmd.Flags().IntVar(&flagLimit, "limit", 0, "page size (default from config)")
	articlesListCmd.Flags().StringVar(&flagSearch, "search", "", "case-insensitive title or content match")
	articlesListCmd.Flags().StringVar(&flagCategory, "category", "", `category id, or "all"`)

	articlesCreateCmd.Flags().StringVar(&flagTitle, "title", "", "article title")
	articlesCreateCmd.Flags().StringVar(&flagContent, "content", "", "article body")
	articlesCreateCmd.Flags().StringVar(&flagCategory, "category", "", "category id")

	articlesUpdateCmd.Flags().StringVar(&flagTitle, "title", "", "new title")
	articlesUpdateCmd.Flags().StringVar(&flagContent, "content", "", "new body")
	articlesUpdateCmd.Flags().StringVar(&flagCategory, "category", "", "new category id")

	articlesRelatedCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum number of articles (default from config)")

	articlesCmd.AddCommand(articlesListCmd)
	articlesCmd.AddCommand(articlesGetCmd)
	articlesCmd.AddCommand(articlesCreateCmd)
	articlesCmd.AddCommand(articlesUpdateCmd)
	articlesCmd.AddCommand(articlesDeleteCmd)
	articlesCmd.AddCommand(articlesRelatedCmd)
}

// articlePatch builds a patch from the flags the user actually passed, so an
// explicitly empty value is still sent.
func articlePatch(cmd *cobra.Command) model.ArticlePatch {
	var patch model.ArticlePatch
	if cmd.Flags().Changed("title") {
		patch.Title = model.StringPtr(flagTitle)
	}
	if cmd.Flags().Changed("content") {
		patch.Content = model.StringPtr(flagContent)
	}
	if cmd.Flags().Changed("category") {
		patch.CategoryID = model.StringPtr(flagCategory)
	}
	return patch
}

func pageSize(cmd *cobra.Command, a *app) int {
	if cmd.Flags().Changed("limit") && flagLimit > 0 {
		return flagLimit
	}
	return a.cfg.List.PageSize
}
